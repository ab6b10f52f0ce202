package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CleanupFunc removes stale entries and reports how many went away.
type CleanupFunc func(ctx context.Context) (int64, error)

// Cleaner runs a cleanup once at start and then on a fixed interval.
type Cleaner struct {
	name     string
	interval time.Duration
	fn       CleanupFunc
}

func NewCleaner(name string, interval time.Duration, fn CleanupFunc) *Cleaner {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Cleaner{name: name, interval: interval, fn: fn}
}

// Run blocks until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	log := zap.L().With(zap.String("worker", c.name))
	log.Info("cleaner started", zap.Duration("interval", c.interval))

	c.runOnce(ctx, log)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("cleaner stopped")
			return
		case <-ticker.C:
			c.runOnce(ctx, log)
		}
	}
}

func (c *Cleaner) runOnce(ctx context.Context, log *zap.Logger) {
	removed, err := c.fn(ctx)
	if err != nil {
		log.Warn("cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		log.Info("cleanup removed entries", zap.Int64("removed", removed))
	}
}
