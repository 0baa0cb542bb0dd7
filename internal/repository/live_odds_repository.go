package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/yourusername/darkhorses-odds/internal/database"
	"github.com/yourusername/darkhorses-odds/internal/models"
)

const liveOddsColumns = `
	id, race_id, horse_id, bookmaker_id,
	race_date, race_time, off_dt, course, race_name, race_class, race_type,
	distance, going, runners,
	horse_name, horse_number, jockey, trainer, draw, weight, age, form,
	bookmaker_name, bookmaker_type, market_type,
	odds_decimal, odds_fractional, market_status, in_play,
	odds_timestamp, updated_at`

// PostgresLiveOddsRepository implements LiveOddsRepository for PostgreSQL
type PostgresLiveOddsRepository struct {
	db *database.DB
}

// NewPostgresLiveOddsRepository creates a new live odds repository
func NewPostgresLiveOddsRepository(db *database.DB) LiveOddsRepository {
	return &PostgresLiveOddsRepository{db: db}
}

// GetExisting returns the stored decimal odds for all snapshots belonging to
// the given races. The read is scoped to exactly the races in the incoming
// batch so the comparison map stays bounded.
func (r *PostgresLiveOddsRepository) GetExisting(ctx context.Context, raceIDs []string) (map[models.SnapshotKey]decimal.Decimal, error) {
	existing := make(map[models.SnapshotKey]decimal.Decimal)
	if len(raceIDs) == 0 {
		return existing, nil
	}

	query := `
		SELECT race_id, horse_id, bookmaker_id, odds_decimal
		FROM ra_odds_live
		WHERE race_id = ANY($1) AND odds_decimal IS NOT NULL
	`

	rows, err := r.db.GetPool().Query(ctx, query, raceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing odds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key models.SnapshotKey
		var odds decimal.Decimal
		if err := rows.Scan(&key.RaceID, &key.HorseID, &key.BookmakerID, &odds); err != nil {
			return nil, fmt.Errorf("failed to scan existing odds: %w", err)
		}
		existing[key] = odds
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read existing odds: %w", err)
	}

	return existing, nil
}

// UpsertBatch writes snapshots with ON CONFLICT on the snapshot key
func (r *PostgresLiveOddsRepository) UpsertBatch(ctx context.Context, snapshots []*models.OddsSnapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO ra_odds_live (` + liveOddsColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26,
		        $27, $28, $29, $30, $31)
		ON CONFLICT (race_id, horse_id, bookmaker_id) DO UPDATE SET
			odds_decimal = EXCLUDED.odds_decimal,
			odds_fractional = EXCLUDED.odds_fractional,
			market_status = EXCLUDED.market_status,
			in_play = EXCLUDED.in_play,
			odds_timestamp = EXCLUDED.odds_timestamp,
			race_date = EXCLUDED.race_date,
			race_time = EXCLUDED.race_time,
			off_dt = EXCLUDED.off_dt,
			going = EXCLUDED.going,
			runners = EXCLUDED.runners,
			updated_at = EXCLUDED.updated_at
	`

	return r.execBatch(ctx, query, snapshots)
}

// InsertBatch writes snapshots without conflict handling. Used as the retry
// path after a failed upsert, where conflicts should surface as errors.
func (r *PostgresLiveOddsRepository) InsertBatch(ctx context.Context, snapshots []*models.OddsSnapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO ra_odds_live (` + liveOddsColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26,
		        $27, $28, $29, $30, $31)
	`

	return r.execBatch(ctx, query, snapshots)
}

func (r *PostgresLiveOddsRepository) execBatch(ctx context.Context, query string, snapshots []*models.OddsSnapshot) (int, error) {
	written := 0
	for _, s := range snapshots {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = time.Now().UTC()
		}

		_, err := r.db.GetPool().Exec(ctx, query,
			s.ID, s.RaceID, s.HorseID, s.BookmakerID,
			s.RaceDate, s.RaceTime, s.OffDT, s.Course, s.RaceName, s.RaceClass, s.RaceType,
			s.Distance, s.Going, s.Runners,
			s.HorseName, s.HorseNumber, s.Jockey, s.Trainer, s.Draw, s.Weight, s.Age, s.Form,
			s.BookmakerName, s.BookmakerType, s.MarketType,
			s.OddsDecimal, s.OddsFractional, s.MarketStatus, s.InPlay,
			s.OddsTimestamp, s.UpdatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				err = models.ErrDuplicateKey
			}
			return written, fmt.Errorf("failed to write snapshot %s/%s/%s: %w", s.RaceID, s.HorseID, s.BookmakerID, err)
		}
		written++
	}
	return written, nil
}

// DeleteBefore removes snapshots for races that went off before the cutoff
func (r *PostgresLiveOddsRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.GetPool().Exec(ctx, `DELETE FROM ra_odds_live WHERE off_dt < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
