package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/application"
	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/infrastructure/cache"
	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/infrastructure/persistence/mongodb"
	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/infrastructure/persistence/postgres"
	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/infrastructure/push/webpush"
	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/infrastructure/websocket"
	notification_http "github.com/gaiathon25/gaiathon-notify/internal/modules/notification/interfaces/http"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Options selects the backing stores and tunes delivery. Exactly one of
// Postgres or Mongo must be set; Redis is always required.
type Options struct {
	Postgres *sqlx.DB
	Mongo    *mongo.Database
	Redis    *redis.Client

	Push      webpush.Config
	PushIcon  string
	PushBadge string

	CacheTTL            time.Duration
	DispatchTimeout     time.Duration
	UnimplementedPolicy string
	SweepInterval       time.Duration
	RelayChannel        string

	Logger *zap.Logger
}

type Module struct {
	service     *application.NotificationService
	preferences *application.PreferenceService
	push        *application.PushService
	handler     *notification_http.NotificationHandler
	hub         *websocket.Hub
	relay       *websocket.Relay
	janitor     *postgres.Janitor
	mongoStore  *mongodb.NotificationStore
	logger      *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewModule(opts Options) (*Module, error) {
	if opts.Redis == nil {
		return nil, errors.New("notification module requires a redis client")
	}
	if (opts.Postgres == nil) == (opts.Mongo == nil) {
		return nil, errors.New("notification module requires exactly one of postgres or mongo")
	}
	policy, err := application.ParseUnimplementedPolicy(opts.UnimplementedPolicy)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("notification")

	m := &Module{logger: logger}

	var (
		repo      domain.NotificationRepository
		prefsRepo domain.PreferenceRepository
	)
	if opts.Postgres != nil {
		pg := postgres.NewPgNotificationRepository(opts.Postgres)
		repo = pg
		prefsRepo = postgres.NewPgPreferenceRepository(opts.Postgres)
		m.janitor = postgres.NewJanitor(pg, opts.SweepInterval, logger.Named("janitor"))
	} else {
		m.mongoStore = mongodb.NewNotificationStore(opts.Mongo)
		repo = m.mongoStore
		prefsRepo = mongodb.NewPreferenceStore(opts.Mongo)
	}

	notificationCache := cache.NewRedisNotificationCache(opts.Redis, opts.CacheTTL)
	subscriptions := cache.NewRedisSubscriptionStore(opts.Redis)

	m.hub = websocket.NewHub(logger)
	m.relay = websocket.NewRelay(opts.Redis, m.hub, opts.RelayChannel, logger)

	m.preferences = application.NewPreferenceService(prefsRepo)
	m.push = application.NewPushService(subscriptions, webpush.NewSender(opts.Push, nil), opts.PushIcon, opts.PushBadge, logger)

	dispatcher := application.NewDispatcher(repo, notificationCache, m.preferences, policy, logger)
	dispatcher.Handle(domain.ChannelInApp, application.InAppHandler(m.relay))
	dispatcher.Handle(domain.ChannelPush, application.PushHandler(m.push))

	m.service = application.NewNotificationService(repo, notificationCache, dispatcher, opts.DispatchTimeout, logger)
	m.handler = notification_http.NewNotificationHandler(m.service, m.preferences, m.push, m.hub, logger)
	return m, nil
}

// Start prepares storage and launches the hub, the cross-instance relay and
// the expiry sweeper. It returns once the relay subscription is live.
func (m *Module) Start(ctx context.Context) error {
	if m.mongoStore != nil {
		if err := m.mongoStore.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure notification indexes: %w", err)
		}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.hub.Run()
	}()

	ready := make(chan struct{})
	relayErr := make(chan error, 1)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.relay.Run(runCtx, ready); err != nil {
			m.logger.Error("live relay stopped", zap.Error(err))
			relayErr <- err
		}
	}()

	if m.janitor != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.janitor.Run(runCtx)
		}()
	}

	select {
	case <-ready:
		return nil
	case err := <-relayErr:
		m.Shutdown()
		return err
	case <-ctx.Done():
		m.Shutdown()
		return ctx.Err()
	}
}

// Shutdown lets in-flight dispatches finish, then stops background work.
func (m *Module) Shutdown() {
	m.service.Wait()
	if m.cancel != nil {
		m.cancel()
	}
	m.hub.Stop()
	m.wg.Wait()
}

func (m *Module) HTTPHandler() *notification_http.NotificationHandler {
	return m.handler
}

func (m *Module) Service() *application.NotificationService {
	return m.service
}
