package postgres

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type expiredDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Janitor periodically purges notifications past their expiresAt. Queries
// already hide expired rows; this only reclaims space.
type Janitor struct {
	repo     expiredDeleter
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewJanitor(repo expiredDeleter, interval time.Duration, logger *zap.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{repo: repo, interval: interval, logger: logger, now: time.Now}
}

// Run sweeps on every tick until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

func (j *Janitor) Sweep(ctx context.Context) int64 {
	n, err := j.repo.DeleteExpired(ctx, j.now())
	if err != nil {
		j.logger.Warn("expired notification sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		j.logger.Info("expired notifications purged", zap.Int64("count", n))
	}
	return n
}
