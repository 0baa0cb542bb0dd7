package live

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/darkhorses-odds/internal/config"
	"github.com/yourusername/darkhorses-odds/internal/metrics"
)

// Polling tiers by proximity to the nearest upcoming race. The closer a
// race is to its off time the faster prices move.
const (
	intervalImminent = 10 * time.Second
	intervalSoon     = 60 * time.Second
	intervalUpcoming = 5 * time.Minute
	intervalIdle     = 15 * time.Minute

	thresholdImminent = 5 * time.Minute
	thresholdSoon     = 30 * time.Minute
	thresholdUpcoming = 120 * time.Minute
)

// collectorRunner abstracts the collector for scheduler tests
type collectorRunner interface {
	Collect(ctx context.Context, now time.Time) (CycleOutcome, error)
}

// Scheduler drives collection cycles at proximity-adaptive intervals
type Scheduler struct {
	collector collectorRunner
	cfg       *config.LiveOddsConfig
	logger    *logrus.Entry
	now       func() time.Time
	after     func(time.Duration) <-chan time.Time
}

// NewScheduler creates a proximity-adaptive scheduler
func NewScheduler(collector collectorRunner, cfg *config.LiveOddsConfig, log *logrus.Entry) *Scheduler {
	return &Scheduler{
		collector: collector,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
		after:     time.After,
	}
}

// NextInterval picks the polling interval from the time to the nearest
// upcoming race. A nil nearest time means no races in the window, which
// gets the idle interval.
func NextInterval(nearest *time.Time, now time.Time) time.Duration {
	if nearest == nil {
		return intervalIdle
	}

	until := nearest.Sub(now)
	switch {
	case until <= thresholdImminent:
		return intervalImminent
	case until <= thresholdSoon:
		return intervalSoon
	case until <= thresholdUpcoming:
		return intervalUpcoming
	default:
		return intervalIdle
	}
}

// Run executes collection cycles until the context is canceled. The first
// cycle starts immediately. A failed cycle backs off for the configured
// duration; after the configured run of consecutive failures the loop
// halts with an error so the process restarts with a clean slate.
func (s *Scheduler) Run(ctx context.Context) error {
	consecutiveFailures := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		outcome, err := s.collector.Collect(ctx, s.now())

		var wait time.Duration
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			consecutiveFailures++
			metrics.CycleFailuresTotal.Inc()
			metrics.ConsecutiveFailures.Set(float64(consecutiveFailures))

			s.logger.WithError(err).WithField("consecutive_failures", consecutiveFailures).
				Error("collection cycle failed")

			if consecutiveFailures >= s.cfg.MaxConsecutiveFailures {
				return fmt.Errorf("halting after %d consecutive cycle failures: %w", consecutiveFailures, err)
			}
			wait = s.cfg.FailureBackoff()
		} else {
			consecutiveFailures = 0
			metrics.ConsecutiveFailures.Set(0)

			wait = NextInterval(outcome.NearestRace, s.now())
			metrics.NextCycleInterval.Set(wait.Seconds())

			entry := s.logger.WithField("next_cycle_in", wait.String())
			if outcome.NearestRaceID != "" {
				entry = entry.WithFields(logrus.Fields{
					"race_id": outcome.NearestRaceID,
					"course":  outcome.NearestCourse,
				})
			}
			entry.Debug("scheduled next cycle")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.after(wait):
		}
	}
}
