package historical

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/darkhorses-odds/internal/config"
	"github.com/yourusername/darkhorses-odds/internal/metrics"
	"github.com/yourusername/darkhorses-odds/internal/models"
	"github.com/yourusername/darkhorses-odds/internal/repository"
)

// Backfill walks the historical date range until coverage reaches the
// configured completion threshold, then hands off to daily maintenance.
type Backfill struct {
	reconciler *Reconciler
	repo       repository.HistoricalRepository
	cfg        *config.HistoricalConfig
	logger     *logrus.Entry
	cron       *cron.Cron
	now        func() time.Time
}

// NewBackfill creates a backfill runner
func NewBackfill(reconciler *Reconciler, repo repository.HistoricalRepository, cfg *config.HistoricalConfig, log *logrus.Entry) *Backfill {
	return &Backfill{
		reconciler: reconciler,
		repo:       repo,
		cfg:        cfg,
		logger:     log,
		now:        time.Now,
	}
}

// LoadState reads the durable backfill state. A missing file starts a fresh
// run from the configured start date.
func (b *Backfill) LoadState() (*models.BackfillState, error) {
	data, err := os.ReadFile(b.cfg.StateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return &models.BackfillState{StartDate: b.cfg.StartDate}, nil
		}
		return nil, fmt.Errorf("failed to read backfill state: %w", err)
	}

	state := &models.BackfillState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to parse backfill state: %w", err)
	}
	if state.StartDate == "" {
		state.StartDate = b.cfg.StartDate
	}
	return state, nil
}

// SaveState persists the backfill state atomically
func (b *Backfill) SaveState(state *models.BackfillState) error {
	state.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backfill state: %w", err)
	}

	dir := filepath.Dir(b.cfg.StateFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := b.cfg.StateFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write backfill state: %w", err)
	}
	if err := os.Rename(tmp, b.cfg.StateFile); err != nil {
		return fmt.Errorf("failed to replace backfill state: %w", err)
	}
	return nil
}

// MissingDates derives the dates still absent from storage by comparing the
// expected range (start date through yesterday) against the distinct dates
// already persisted. The state file records progress but the database is
// the source of truth, so interrupted runs resume correctly.
func (b *Backfill) MissingDates(ctx context.Context, state *models.BackfillState) ([]time.Time, float64, error) {
	start, err := time.Parse("2006-01-02", state.StartDate)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid backfill start date %q: %w", state.StartDate, err)
	}

	end := b.now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	if end.Before(start) {
		return nil, 1, nil
	}

	stored, err := b.repo.DistinctDates(ctx, start, end)
	if err != nil {
		return nil, 0, err
	}
	have := make(map[string]bool, len(stored))
	for _, d := range stored {
		have[d] = true
	}

	var missing []time.Time
	expected := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		expected++
		if !have[d.Format("2006-01-02")] {
			missing = append(missing, d)
		}
	}

	coverage := 1.0
	if expected > 0 {
		coverage = float64(expected-len(missing)) / float64(expected)
	}
	return missing, coverage, nil
}

// Run drives the backfill to completion. Each cycle re-derives the missing
// dates from the database, processes up to the configured batch, and saves
// progress. The run finishes once date coverage reaches the completion
// threshold; some dates genuinely have no racing, so 100% never arrives.
// Dates that stay missing after one attempt (no data at the provider, or a
// persistent fetch error) are not retried within the run: once every gap
// has been tried the run returns and leaves them to daily maintenance.
func (b *Backfill) Run(ctx context.Context) error {
	state, err := b.LoadState()
	if err != nil {
		return err
	}

	if state.Complete {
		b.logger.Info("backfill already complete")
		return nil
	}

	threshold := float64(b.cfg.CompletionPercent) / 100
	attempted := make(map[string]bool)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		missing, coverage, err := b.MissingDates(ctx, state)
		if err != nil {
			return err
		}
		metrics.BackfillCoverage.Set(coverage)

		if coverage >= threshold {
			now := time.Now().UTC()
			state.Complete = true
			state.CompletedAt = &now
			if err := b.SaveState(state); err != nil {
				return err
			}
			b.logger.WithField("coverage", fmt.Sprintf("%.1f%%", coverage*100)).
				Info("backfill complete")
			return nil
		}

		var batch []time.Time
		for _, date := range missing {
			if attempted[date.Format("2006-01-02")] {
				continue
			}
			batch = append(batch, date)
			if len(batch) == b.cfg.DatesPerCycle {
				break
			}
		}

		if len(batch) == 0 {
			b.logger.WithFields(logrus.Fields{
				"missing":  len(missing),
				"coverage": fmt.Sprintf("%.1f%%", coverage*100),
			}).Warn("remaining dates yielded no data, deferring to daily maintenance")
			return b.SaveState(state)
		}

		b.logger.WithFields(logrus.Fields{
			"missing":  len(missing),
			"batch":    len(batch),
			"coverage": fmt.Sprintf("%.1f%%", coverage*100),
		}).Info("starting backfill cycle")

		for _, date := range batch {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			attempted[date.Format("2006-01-02")] = true

			if _, err := b.reconciler.ReconcileDate(ctx, date); err != nil {
				// A single bad date must not stall the whole range
				b.logger.WithError(err).WithField("date", date.Format("2006-01-02")).
					Warn("failed to reconcile date, continuing")
				continue
			}

			state.DatesProcessed++
			state.LastDate = date.Format("2006-01-02")
			metrics.HistoricalDatesProcessedTotal.Inc()

			if err := b.SaveState(state); err != nil {
				return err
			}
		}
	}
}

// StartMaintenance schedules the daily top-up: reconcile yesterday plus a
// re-check of the most recent missing dates to patch gaps. Runs at the
// configured cron spec in UK racing time.
func (b *Backfill) StartMaintenance(ctx context.Context) error {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		return fmt.Errorf("failed to load UK timezone: %w", err)
	}

	b.cron = cron.New(cron.WithLocation(loc))
	_, err = b.cron.AddFunc(b.cfg.MaintenanceCron, func() {
		runCtx, cancel := context.WithTimeout(ctx, 2*time.Hour)
		defer cancel()
		b.runMaintenance(runCtx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance: %w", err)
	}

	b.cron.Start()
	b.logger.WithField("cron", b.cfg.MaintenanceCron).Info("daily maintenance scheduled")
	return nil
}

// StopMaintenance stops the cron scheduler, waiting for a running job
func (b *Backfill) StopMaintenance() {
	if b.cron != nil {
		<-b.cron.Stop().Done()
	}
}

func (b *Backfill) runMaintenance(ctx context.Context) {
	yesterday := b.now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)

	b.logger.WithField("date", yesterday.Format("2006-01-02")).Info("running daily maintenance")

	if _, err := b.reconciler.ReconcileDate(ctx, yesterday); err != nil {
		b.logger.WithError(err).WithField("date", yesterday.Format("2006-01-02")).
			Warn("maintenance reconcile failed")
	}

	state, err := b.LoadState()
	if err != nil {
		b.logger.WithError(err).Warn("maintenance could not load backfill state")
		return
	}

	missing, _, err := b.MissingDates(ctx, state)
	if err != nil {
		b.logger.WithError(err).Warn("maintenance could not derive missing dates")
		return
	}
	// Most recent gaps only; the backfill run already swept the full range.
	if b.cfg.RecheckLimit > 0 && len(missing) > b.cfg.RecheckLimit {
		missing = missing[len(missing)-b.cfg.RecheckLimit:]
	}

	for _, d := range missing {
		if ctx.Err() != nil {
			return
		}
		if d.Equal(yesterday) {
			continue
		}
		if _, err := b.reconciler.ReconcileDate(ctx, d); err != nil {
			b.logger.WithError(err).WithField("date", d.Format("2006-01-02")).
				Warn("maintenance reconcile failed")
		}
	}
}
