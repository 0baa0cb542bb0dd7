package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/darkhorses-odds/internal/database"
	"github.com/yourusername/darkhorses-odds/internal/models"
)

// PostgresStatisticsRepository implements StatisticsRepository for PostgreSQL
type PostgresStatisticsRepository struct {
	db *database.DB
}

// NewPostgresStatisticsRepository creates a new statistics repository
func NewPostgresStatisticsRepository(db *database.DB) StatisticsRepository {
	return &PostgresStatisticsRepository{db: db}
}

// Insert stores one cycle summary row
func (r *PostgresStatisticsRepository) Insert(ctx context.Context, stats *models.CycleStatistics) error {
	if stats.FetchTimestamp.IsZero() {
		stats.FetchTimestamp = time.Now().UTC()
	}
	stats.FetchDurationMS = stats.FetchDuration.Milliseconds()

	query := `
		INSERT INTO ra_odds_statistics (
			fetch_timestamp, races_count, horses_count, total_odds_fetched,
			odds_new, odds_updated, odds_skipped, errors_count,
			bookmaker_list, fetch_duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.GetPool().Exec(ctx, query,
		stats.FetchTimestamp, stats.RacesCount, stats.HorsesCount, stats.OddsFetched,
		stats.OddsNew, stats.OddsUpdated, stats.OddsSkipped, stats.ErrorsCount,
		stats.BookmakerList, stats.FetchDurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cycle statistics: %w", err)
	}
	return nil
}

// Recent returns the most recent cycle summaries
func (r *PostgresStatisticsRepository) Recent(ctx context.Context, limit int) ([]*models.CycleStatistics, error) {
	query := `
		SELECT fetch_timestamp, races_count, horses_count, total_odds_fetched,
		       odds_new, odds_updated, odds_skipped, errors_count,
		       bookmaker_list, fetch_duration_ms
		FROM ra_odds_statistics
		ORDER BY fetch_timestamp DESC
		LIMIT $1
	`

	rows, err := r.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycle statistics: %w", err)
	}
	defer rows.Close()

	var out []*models.CycleStatistics
	for rows.Next() {
		s := &models.CycleStatistics{}
		if err := rows.Scan(
			&s.FetchTimestamp, &s.RacesCount, &s.HorsesCount, &s.OddsFetched,
			&s.OddsNew, &s.OddsUpdated, &s.OddsSkipped, &s.ErrorsCount,
			&s.BookmakerList, &s.FetchDurationMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cycle statistics: %w", err)
		}
		s.FetchDuration = time.Duration(s.FetchDurationMS) * time.Millisecond
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cycle statistics: %w", err)
	}

	return out, nil
}
