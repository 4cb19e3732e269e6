package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gaiathon25/gaiathon-notify/internal/gateway"
	"github.com/gaiathon25/gaiathon-notify/internal/gateway/middleware"
	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification"
	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/infrastructure/push/webpush"
	"github.com/gaiathon25/gaiathon-notify/internal/shared/infrastructure/config"
	"github.com/gaiathon25/gaiathon-notify/internal/shared/infrastructure/database"
	"github.com/gaiathon25/gaiathon-notify/internal/shared/infrastructure/logger"
	"github.com/gaiathon25/gaiathon-notify/pkg/migration"
	"go.uber.org/zap"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	opts := moduleOptions(cfg, log)

	redisClient, err := database.NewRedis(cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	opts.Redis = redisClient

	switch cfg.StoreDriver {
	case config.StorePostgres:
		if err := migration.AutoMigrate(cfg.Database.URL(), cfg.Notifications.MigrationsPath, log); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		db, err := database.NewPostgresDB(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		opts.Postgres = db
		log.Info("notification store ready", zap.String("driver", "postgres"))

	case config.StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, db, err := database.NewMongo(connectCtx, cfg.Mongo)
		cancel()
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		opts.Mongo = db
		log.Info("notification store ready", zap.String("driver", "mongo"))

	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		log.Warn("VAPID keys not configured, push delivery will fail")
	}

	module, err := notification.NewModule(opts)
	if err != nil {
		return err
	}
	if err := module.Start(ctx); err != nil {
		return err
	}
	defer module.Shutdown()

	router := gateway.SetupRoutes(gateway.RouterConfig{
		AuthMiddleware:      middleware.NewAuthMiddleware(cfg.JWT.Secret),
		NotificationHandler: module.HTTPHandler(),
		Logger:              log,
		AllowedOrigins:      cfg.Server.AllowedOrigins,
	})

	return gateway.NewServer(cfg.Server.Port, router, log).Start(ctx)
}

// moduleOptions maps configuration onto the notification module. Store and
// Redis handles are filled in by run once connected.
func moduleOptions(cfg config.Config, log *zap.Logger) notification.Options {
	return notification.Options{
		Push: webpush.Config{
			Subject:    cfg.Push.Subject,
			PublicKey:  cfg.Push.PublicKey,
			PrivateKey: cfg.Push.PrivateKey,
			TTL:        cfg.Push.TTL,
		},
		PushIcon:            cfg.Push.Icon,
		PushBadge:           cfg.Push.Badge,
		CacheTTL:            cfg.Notifications.CacheTTL,
		DispatchTimeout:     cfg.Notifications.DispatchTimeout,
		UnimplementedPolicy: cfg.Notifications.UnimplementedChannelPolicy,
		SweepInterval:       cfg.Notifications.ExpirySweepInterval,
		Logger:              log,
	}
}
