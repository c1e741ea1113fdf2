package eventbus

import (
	"context"
	"time"

	"socialhub-server-go/internal/domain/eventbus/repository"
	"socialhub-server-go/internal/platform/logging"
)

// Retention deletes audit events older than maxAge.
type Retention struct {
	repo     repository.EventRepository
	maxAge   time.Duration
	interval time.Duration
	logger   *logging.Logger
	now      func() time.Time
}

func NewRetention(repo repository.EventRepository, maxAge time.Duration, logger *logging.Logger) *Retention {
	return &Retention{
		repo:     repo,
		maxAge:   maxAge,
		interval: time.Hour,
		logger:   logger,
		now:      time.Now,
	}
}

// Prune removes expired events once. A non-positive maxAge keeps everything.
func (r *Retention) Prune(ctx context.Context) (int64, error) {
	if r.maxAge <= 0 {
		return 0, nil
	}
	removed, err := r.repo.DeleteOldEvents(ctx, r.now().Add(-r.maxAge).UTC())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		r.logger.InfoTag("EVENTS", "pruned %d audit events older than %s", removed, r.maxAge)
	}
	return removed, nil
}

// Run prunes immediately and then every interval until ctx is done.
func (r *Retention) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Prune(ctx); err != nil && ctx.Err() == nil {
			r.logger.WarnTag("EVENTS", "audit pruning failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
