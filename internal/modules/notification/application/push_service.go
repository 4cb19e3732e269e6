package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPushIcon  = "/icons/notification.png"
	DefaultPushBadge = "/icons/badge.png"
)

var pushSendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "notify_push_sends_total",
	Help: "Push sends per subscription by result",
}, []string{"result"})

type PushSender interface {
	Send(ctx context.Context, sub domain.PushSubscription, payload []byte, priority domain.Priority) error
	PublicKey() string
}

type PushAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

type PushData struct {
	URL            string `json:"url,omitempty"`
	NotificationID string `json:"notificationId"`
}

// PushPayload is the JSON document the service worker receives.
type PushPayload struct {
	Title   string       `json:"title"`
	Body    string       `json:"body"`
	Icon    string       `json:"icon"`
	Badge   string       `json:"badge"`
	Data    PushData     `json:"data"`
	Actions []PushAction `json:"actions"`
}

// PushReport summarises one fan-out to a user's subscriptions.
type PushReport struct {
	Attempted int
	Delivered int
	Removed   int
}

type PushService struct {
	subs   domain.SubscriptionStore
	sender PushSender
	icon   string
	badge  string
	logger *zap.Logger
}

func NewPushService(subs domain.SubscriptionStore, sender PushSender, icon, badge string, logger *zap.Logger) *PushService {
	if icon == "" {
		icon = DefaultPushIcon
	}
	if badge == "" {
		badge = DefaultPushBadge
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PushService{subs: subs, sender: sender, icon: icon, badge: badge, logger: logger.Named("push")}
}

func (s *PushService) Payload(n *domain.Notification) PushPayload {
	return PushPayload{
		Title: n.Title,
		Body:  n.Content,
		Icon:  s.icon,
		Badge: s.badge,
		Data: PushData{
			URL:            n.ActionURL,
			NotificationID: n.ID.String(),
		},
		Actions: []PushAction{
			{Action: "view", Title: "View"},
			{Action: "dismiss", Title: "Dismiss"},
		},
	}
}

// SendToUser pushes n to every subscription of userID. Individual send
// failures are logged and swallowed; a gone subscription is removed. Only a
// failure to read the subscription set is returned.
func (s *PushService) SendToUser(ctx context.Context, userID uuid.UUID, n *domain.Notification) (PushReport, error) {
	subs, err := s.subs.List(ctx, userID)
	if err != nil {
		return PushReport{}, fmt.Errorf("load push subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return PushReport{}, nil
	}

	payload, err := json.Marshal(s.Payload(n))
	if err != nil {
		return PushReport{}, fmt.Errorf("marshal push payload: %w", err)
	}

	var delivered, removed atomic.Int32
	var g errgroup.Group
	for _, sub := range subs {
		g.Go(func() error {
			err := s.sender.Send(ctx, sub, payload, n.Priority)
			switch {
			case err == nil:
				delivered.Add(1)
				pushSendsTotal.WithLabelValues("delivered").Inc()
			case errors.Is(err, domain.ErrSubscriptionGone):
				pushSendsTotal.WithLabelValues("gone").Inc()
				if rmErr := s.subs.Remove(ctx, userID, sub.Endpoint); rmErr != nil {
					s.logger.Warn("removing gone subscription failed",
						zap.String("user_id", userID.String()),
						zap.String("endpoint", endpointHost(sub.Endpoint)),
						zap.Error(rmErr))
					return nil
				}
				removed.Add(1)
			default:
				pushSendsTotal.WithLabelValues("failed").Inc()
				s.logger.Warn("push send failed",
					zap.String("user_id", userID.String()),
					zap.String("notification_id", n.ID.String()),
					zap.String("endpoint", endpointHost(sub.Endpoint)),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return PushReport{
		Attempted: len(subs),
		Delivered: int(delivered.Load()),
		Removed:   int(removed.Load()),
	}, nil
}

// BroadcastReport counts users whose subscription set could not be read.
type BroadcastReport struct {
	Users  int
	Failed int
}

// Broadcast runs SendToUser for each user independently.
func (s *PushService) Broadcast(ctx context.Context, userIDs []uuid.UUID, n *domain.Notification) BroadcastReport {
	var failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(16)
	for _, userID := range userIDs {
		g.Go(func() error {
			if _, err := s.SendToUser(ctx, userID, n); err != nil {
				failed.Add(1)
				s.logger.Warn("broadcast to user failed", zap.String("user_id", userID.String()), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return BroadcastReport{Users: len(userIDs), Failed: int(failed.Load())}
}

// Save registers sub for userID. Saving a known endpoint is a no-op.
func (s *PushService) Save(ctx context.Context, userID uuid.UUID, sub domain.PushSubscription) error {
	if err := domain.Validate(sub); err != nil {
		return err
	}
	if _, err := s.subs.Add(ctx, userID, sub); err != nil {
		return fmt.Errorf("save push subscription: %w", err)
	}
	return nil
}

// Delete drops endpoint from userID's set. Unknown endpoints are not an error.
func (s *PushService) Delete(ctx context.Context, userID uuid.UUID, endpoint string) error {
	if endpoint == "" {
		return domain.NewValidationError("endpoint", "is required")
	}
	if err := s.subs.Remove(ctx, userID, endpoint); err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

func (s *PushService) PublicKey() (string, error) {
	key := s.sender.PublicKey()
	if key == "" {
		return "", domain.ErrVAPIDNotConfigured
	}
	return key, nil
}

// endpointHost keeps the per-device token out of logs.
func endpointHost(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return u.Host
}
