// Package snapshot implements change detection for live odds writes. Each
// (race, horse, bookmaker) key has one current row; a write happens only
// when the decimal price actually moved.
package snapshot

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/darkhorses-odds/internal/bookmakers"
	"github.com/yourusername/darkhorses-odds/internal/models"
	"github.com/yourusername/darkhorses-odds/internal/repository"
)

// Result summarizes one change-detection pass
type Result struct {
	New     int
	Updated int
	Skipped int
	Errors  int
}

// Written returns the number of rows that reached the database
func (r Result) Written() int {
	return r.New + r.Updated
}

// Engine applies snapshot batches with change detection
type Engine struct {
	repo        repository.LiveOddsRepository
	invalidator *Invalidator
	bypass      bool
	logger      *logrus.Entry
}

// NewEngine creates a change-detection engine. When bypass is set every
// incoming snapshot is written regardless of the stored price, which is the
// recovery path when stored state is suspect.
func NewEngine(repo repository.LiveOddsRepository, invalidator *Invalidator, bypass bool, log *logrus.Entry) *Engine {
	return &Engine{
		repo:        repo,
		invalidator: invalidator,
		bypass:      bypass,
		logger:      log,
	}
}

// Apply runs change detection over a batch and persists what changed.
// Snapshots whose stored decimal price is unchanged are skipped; everything
// else is upserted. A failed upsert falls back to a plain insert of the same
// rows so a broken conflict target cannot silently drop a cycle.
func (e *Engine) Apply(ctx context.Context, snapshots []*models.OddsSnapshot) (Result, error) {
	var res Result
	if len(snapshots) == 0 {
		return res, nil
	}

	toWrite := snapshots
	if !e.bypass {
		existing, err := e.repo.GetExisting(ctx, raceIDs(snapshots))
		if err != nil {
			// Comparison state unavailable; write everything rather than
			// lose the cycle
			e.logger.WithError(err).Warn("change detection unavailable, writing full batch")
			res.Errors++
			res.New = len(snapshots)
		} else {
			toWrite = e.classify(snapshots, existing, &res)
		}
	} else {
		res.New = len(snapshots)
	}

	if len(toWrite) == 0 {
		return res, nil
	}

	written, err := e.repo.UpsertBatch(ctx, toWrite)
	if err != nil {
		e.logger.WithError(err).Warn("batch upsert failed, retrying as plain insert")
		remaining := toWrite[written:]
		retried, retryErr := e.repo.InsertBatch(ctx, remaining)
		written += retried
		if retryErr != nil {
			e.adjustForPartialWrite(&res, len(toWrite), written)
			return res, retryErr
		}
	}

	e.adjustForPartialWrite(&res, len(toWrite), written)

	if written > 0 && e.invalidator != nil {
		e.invalidator.Publish(ctx, raceIDs(toWrite[:written]))
	}

	return res, nil
}

// classify splits the batch into writes and skips against stored prices
func (e *Engine) classify(snapshots []*models.OddsSnapshot, existing map[models.SnapshotKey]decimal.Decimal, res *Result) []*models.OddsSnapshot {
	var toWrite []*models.OddsSnapshot
	for _, s := range snapshots {
		stored, known := existing[s.Key()]
		switch {
		case !known:
			res.New++
			toWrite = append(toWrite, s)
		case s.OddsDecimal != nil && !stored.Equal(*s.OddsDecimal):
			e.logger.WithFields(logrus.Fields{
				"race_id":   s.RaceID,
				"horse":     s.HorseName,
				"bookmaker": s.BookmakerID,
				"from":      bookmakers.FormatPrice(stored),
				"to":        bookmakers.FormatPrice(*s.OddsDecimal),
			}).Debug("price moved")
			res.Updated++
			toWrite = append(toWrite, s)
		case s.OddsDecimal == nil:
			// Price withdrawn upstream; keep the stored row
			res.Skipped++
		default:
			res.Skipped++
		}
	}
	return toWrite
}

func (e *Engine) adjustForPartialWrite(res *Result, attempted, written int) {
	if written >= attempted {
		return
	}
	// Rows past the write point never landed; count them as errors and
	// remove them from the new/updated tallies, newest classifications first
	lost := attempted - written
	res.Errors += lost
	for lost > 0 && res.Updated > 0 {
		res.Updated--
		lost--
	}
	for lost > 0 && res.New > 0 {
		res.New--
		lost--
	}
}

func raceIDs(snapshots []*models.OddsSnapshot) []string {
	seen := make(map[string]bool, len(snapshots))
	var ids []string
	for _, s := range snapshots {
		if !seen[s.RaceID] {
			seen[s.RaceID] = true
			ids = append(ids, s.RaceID)
		}
	}
	return ids
}
