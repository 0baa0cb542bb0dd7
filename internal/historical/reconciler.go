package historical

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/darkhorses-odds/internal/metrics"
	"github.com/yourusername/darkhorses-odds/internal/models"
	"github.com/yourusername/darkhorses-odds/internal/racingapi"
	"github.com/yourusername/darkhorses-odds/internal/repository"
)

// apiSource abstracts the two Racing API endpoints the join needs
type apiSource interface {
	FetchRacecards(ctx context.Context, date time.Time, regions []string) ([]racingapi.Racecard, error)
	FetchResults(ctx context.Context, date time.Time) ([]racingapi.Result, error)
}

// DateSummary reports the outcome of reconciling one date
type DateSummary struct {
	Date        string
	Races       int
	Results     int
	Created     int
	Updated     int
	NoRacecard  int
	Duration    time.Duration
}

// Reconciler joins pre-race racecards with official results for a date and
// persists the settled records
type Reconciler struct {
	source  apiSource
	repo    repository.HistoricalRepository
	regions []string
	logger  *logrus.Entry
}

// NewReconciler creates a historical reconciler
func NewReconciler(source apiSource, repo repository.HistoricalRepository, regions []string, log *logrus.Entry) *Reconciler {
	return &Reconciler{
		source:  source,
		repo:    repo,
		regions: regions,
		logger:  log,
	}
}

// ReconcileDate fetches both endpoints for a date, joins runners on
// (race_id, horse_id), and upserts the reconciled records. Result runners
// with no racecard entry are skipped; they are usually late declarations
// the pre-race feed never carried.
func (r *Reconciler) ReconcileDate(ctx context.Context, date time.Time) (DateSummary, error) {
	started := time.Now()
	day := date.Format("2006-01-02")
	summary := DateSummary{Date: day}

	cards, err := r.source.FetchRacecards(ctx, date, r.regions)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch racecards for %s: %w", day, err)
	}

	results, err := r.source.FetchResults(ctx, date)
	if err != nil {
		return summary, fmt.Errorf("failed to fetch results for %s: %w", day, err)
	}

	summary.Results = len(results)
	idx := indexRacecards(cards)

	var records []*models.HistoricalOdds
	for i := range results {
		result := &results[i]
		raceSPs := raceStartingPrices(result)
		summary.Races++

		for j := range result.Runners {
			runner := &result.Runners[j]

			preRace, ok := idx.lookup(result.RaceID, runner.HorseID)
			if !ok {
				summary.NoRacecard++
				r.logger.WithFields(logrus.Fields{
					"race_id": result.RaceID,
					"horse":   runner.Horse,
				}).Debug("result runner has no racecard entry, skipping")
				continue
			}

			records = append(records, buildRecord(result, runner, preRace, raceSPs))
		}
	}

	created, updated, err := r.repo.UpsertBatch(ctx, records)
	summary.Created = created
	summary.Updated = updated
	if err != nil {
		return summary, fmt.Errorf("failed to persist records for %s: %w", day, err)
	}

	summary.Duration = time.Since(started)
	metrics.DateReconcileDuration.Observe(summary.Duration.Seconds())
	metrics.HistoricalRecordsTotal.WithLabelValues("created").Add(float64(created))
	metrics.HistoricalRecordsTotal.WithLabelValues("updated").Add(float64(updated))

	r.logger.WithFields(logrus.Fields{
		"date":        day,
		"races":       summary.Races,
		"created":     created,
		"updated":     updated,
		"no_racecard": summary.NoRacecard,
		"duration":    summary.Duration.Round(time.Millisecond).String(),
	}).Info("reconciled date")

	return summary, nil
}
