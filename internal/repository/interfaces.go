// Package repository provides PostgreSQL persistence for live odds
// snapshots, reconciled historical odds, and cycle statistics.
package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/darkhorses-odds/internal/models"
)

// LiveOddsRepository handles ra_odds_live persistence
type LiveOddsRepository interface {
	// GetExisting returns the current stored decimal odds for the given
	// race IDs, keyed by (race, horse, bookmaker)
	GetExisting(ctx context.Context, raceIDs []string) (map[models.SnapshotKey]decimal.Decimal, error)

	// UpsertBatch writes snapshots using ON CONFLICT on the snapshot key.
	// Returns the number of rows written.
	UpsertBatch(ctx context.Context, snapshots []*models.OddsSnapshot) (int, error)

	// InsertBatch writes snapshots without conflict handling. Used as the
	// narrow retry path when a batch upsert fails.
	InsertBatch(ctx context.Context, snapshots []*models.OddsSnapshot) (int, error)

	// DeleteBefore removes snapshots for races that went off before the
	// cutoff. Returns the number of rows removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// HistoricalRepository handles ra_odds_historical persistence
type HistoricalRepository interface {
	// Exists reports whether a record with the natural key is stored
	Exists(ctx context.Context, key models.HistoricalKey) (bool, error)

	// Get returns the record stored under the natural key, or
	// models.ErrNotFound when no row matches
	Get(ctx context.Context, key models.HistoricalKey) (*models.HistoricalOdds, error)

	// Upsert inserts or updates a record on its natural key. Returns true
	// when a new row was created.
	Upsert(ctx context.Context, record *models.HistoricalOdds) (bool, error)

	// UpsertBatch upserts records one by one, returning created and
	// updated counts
	UpsertBatch(ctx context.Context, records []*models.HistoricalOdds) (created, updated int, err error)

	// DistinctDates returns the distinct race dates stored in the range,
	// formatted YYYY-MM-DD
	DistinctDates(ctx context.Context, start, end time.Time) ([]string, error)

	// CountForDate returns the number of records stored for a date
	CountForDate(ctx context.Context, date string) (int64, error)
}

// StatisticsRepository handles ra_odds_statistics persistence
type StatisticsRepository interface {
	// Insert stores one cycle summary row
	Insert(ctx context.Context, stats *models.CycleStatistics) error

	// Recent returns the most recent cycle summaries
	Recent(ctx context.Context, limit int) ([]*models.CycleStatistics, error)
}
