package live

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// How often the retention sweep runs. Deletes are keyed on off_dt, so a
// coarse cadence is enough.
const sweepInterval = time.Hour

// retentionStore abstracts the snapshot store for the retention sweep
type retentionStore interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper prunes snapshots for races that went off more than the retention
// window ago, keeping ra_odds_live bounded to recent racing.
type Sweeper struct {
	store  retentionStore
	retain time.Duration
	logger *logrus.Entry
	now    func() time.Time
}

// NewSweeper creates a retention sweeper
func NewSweeper(store retentionStore, retain time.Duration, log *logrus.Entry) *Sweeper {
	return &Sweeper{
		store:  store,
		retain: retain,
		logger: log,
		now:    time.Now,
	}
}

// Sweep runs one retention pass
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := s.now().Add(-s.retain)
	deleted, err := s.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("retention sweep failed: %w", err)
	}
	if deleted > 0 {
		s.logger.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("pruned snapshots for finished races")
	}
	return nil
}

// Run sweeps on a fixed cadence until the context is canceled. A failed
// sweep is logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.WithError(err).Warn("retention sweep failed")
			}
		}
	}
}
