package database

import (
	"context"
	"fmt"

	"github.com/yourusername/darkhorses-odds/internal/config"
)

// Initialize creates a database connection pool and verifies that the odds
// schema has been migrated
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	// Verify the core tables exist; migrations are run out of band with the
	// migrate CLI (see migrations/)
	var tableCount int
	err = db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM information_schema.tables
		 WHERE table_name IN ('ra_odds_live', 'ra_odds_historical', 'ra_odds_statistics')`,
	).Scan(&tableCount)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}

	if tableCount < 3 {
		db.Close()
		return nil, fmt.Errorf(
			"odds tables missing (%d of 3 found); run migrations: migrate -path migrations -database \"your_dsn\" up",
			tableCount,
		)
	}

	return db, nil
}
