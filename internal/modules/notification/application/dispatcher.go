package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ChannelHandler delivers n over one channel. A nil error means sent.
type ChannelHandler func(ctx context.Context, n *domain.Notification) error

// UnimplementedPolicy decides what happens to a requested channel that has no
// registered handler.
type UnimplementedPolicy string

const (
	PolicyFailed  UnimplementedPolicy = "failed"
	PolicySent    UnimplementedPolicy = "sent"
	PolicyPending UnimplementedPolicy = "pending"
)

func ParseUnimplementedPolicy(s string) (UnimplementedPolicy, error) {
	switch p := UnimplementedPolicy(s); p {
	case PolicyFailed, PolicySent, PolicyPending:
		return p, nil
	case "":
		return PolicyFailed, nil
	default:
		return "", fmt.Errorf("unknown unimplemented channel policy %q", s)
	}
}

var deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "notify_deliveries_total",
	Help: "Per-channel delivery outcomes",
}, []string{"channel", "status"})

// Dispatcher runs every requested channel of a notification concurrently and
// records each outcome on the durable record. A channel never affects another.
type Dispatcher struct {
	handlers map[domain.Channel]ChannelHandler
	repo     domain.NotificationRepository
	prefs    *PreferenceService
	cache    domain.NotificationCache
	policy   UnimplementedPolicy
	logger   *zap.Logger
	now      func() time.Time
}

func NewDispatcher(repo domain.NotificationRepository, cache domain.NotificationCache, prefs *PreferenceService, policy UnimplementedPolicy, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == "" {
		policy = PolicyFailed
	}
	return &Dispatcher{
		handlers: make(map[domain.Channel]ChannelHandler),
		repo:     repo,
		prefs:    prefs,
		cache:    cache,
		policy:   policy,
		logger:   logger.Named("dispatcher"),
		now:      time.Now,
	}
}

// Handle registers h for channel c, replacing any previous handler.
func (d *Dispatcher) Handle(c domain.Channel, h ChannelHandler) {
	d.handlers[c] = h
}

// Dispatch attempts every channel on n and returns the recorded statuses in
// channel order. n.DeliveryStatus is updated to match.
func (d *Dispatcher) Dispatch(ctx context.Context, n *domain.Notification) []domain.DeliveryStatus {
	prefs := d.preferencesFor(ctx, n)

	outcomes := make([]*domain.DeliveryStatus, len(n.Channels))
	var g errgroup.Group
	for i, c := range n.Channels {
		g.Go(func() error {
			outcomes[i] = d.attempt(ctx, n, c, prefs)
			return nil
		})
	}
	_ = g.Wait()

	for _, s := range outcomes {
		if s == nil {
			continue
		}
		d.record(ctx, n, *s)
	}

	if d.cache != nil {
		if err := d.cache.Refresh(ctx, n); err != nil {
			d.logger.Warn("cache refresh failed", zap.String("notification_id", n.ID.String()), zap.Error(err))
		}
	}
	return n.DeliveryStatus
}

// attempt returns nil when the channel stays pending.
func (d *Dispatcher) attempt(ctx context.Context, n *domain.Notification, c domain.Channel, prefs domain.Preferences) (status *domain.DeliveryStatus) {
	defer func() {
		if r := recover(); r != nil {
			s := domain.FailedStatus(c, fmt.Errorf("channel handler panic: %v", r))
			status = &s
		}
	}()

	if !prefs.Allows(c) {
		s := domain.FailedStatus(c, domain.ErrChannelDisabled)
		return &s
	}

	h, ok := d.handlers[c]
	if !ok {
		switch d.policy {
		case PolicySent:
			s := domain.SentStatus(c, d.now())
			return &s
		case PolicyPending:
			return nil
		default:
			s := domain.FailedStatus(c, domain.ErrChannelNotImplemented)
			return &s
		}
	}

	if err := h(ctx, n); err != nil {
		d.logger.Warn("delivery failed",
			zap.String("notification_id", n.ID.String()),
			zap.String("user_id", n.Recipient.String()),
			zap.String("channel", string(c)),
			zap.Error(err))
		s := domain.FailedStatus(c, err)
		return &s
	}
	s := domain.SentStatus(c, d.now())
	return &s
}

func (d *Dispatcher) record(ctx context.Context, n *domain.Notification, s domain.DeliveryStatus) {
	deliveriesTotal.WithLabelValues(string(s.Channel), string(s.State)).Inc()

	if err := d.repo.UpdateDeliveryStatus(ctx, n.ID, s); err != nil {
		level := d.logger.Error
		if errors.Is(err, domain.ErrDeliveryNotPending) {
			level = d.logger.Debug
		}
		level("recording delivery status failed",
			zap.String("notification_id", n.ID.String()),
			zap.String("channel", string(s.Channel)),
			zap.Error(err))
		return
	}

	for i := range n.DeliveryStatus {
		if n.DeliveryStatus[i].Channel == s.Channel {
			n.DeliveryStatus[i] = s
		}
	}
}

func (d *Dispatcher) preferencesFor(ctx context.Context, n *domain.Notification) domain.Preferences {
	if d.prefs == nil {
		return domain.DefaultPreferences(n.Recipient)
	}
	p, err := d.prefs.Get(ctx, n.Recipient)
	if err != nil {
		d.logger.Warn("loading preferences failed, using defaults",
			zap.String("user_id", n.Recipient.String()), zap.Error(err))
		return domain.DefaultPreferences(n.Recipient)
	}
	return *p
}
