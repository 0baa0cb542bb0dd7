package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/darkhorses-odds/internal/database"
	"github.com/yourusername/darkhorses-odds/internal/models"
)

// PostgresHistoricalRepository implements HistoricalRepository for PostgreSQL
type PostgresHistoricalRepository struct {
	db *database.DB
}

// NewPostgresHistoricalRepository creates a new historical odds repository
func NewPostgresHistoricalRepository(db *database.DB) HistoricalRepository {
	return &PostgresHistoricalRepository{db: db}
}

// Exists reports whether a record with the natural key is stored
func (r *PostgresHistoricalRepository) Exists(ctx context.Context, key models.HistoricalKey) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM ra_odds_historical
			WHERE date_of_race = $1 AND track = $2 AND race_time = $3 AND horse_name = $4
		)
	`

	var exists bool
	err := r.db.GetPool().QueryRow(ctx, query, key.DateOfRace, key.Track, key.RaceTime, key.HorseName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check historical record: %w", err)
	}
	return exists, nil
}

// Get returns the record stored under the natural key, or
// models.ErrNotFound when no row matches
func (r *PostgresHistoricalRepository) Get(ctx context.Context, key models.HistoricalKey) (*models.HistoricalOdds, error) {
	query := `
		SELECT
			date_of_race, country, track, race_time, horse_name,
			going, race_type, distance, race_class,
			age, weight, jockey, trainer, headgear, stall_number,
			runners_count, finishing_position, winning_distance,
			industry_sp, sp_favorite_position,
			pre_race_min, pre_race_max, forecasted_odds,
			sp_win_return, ew_return, place_return,
			tote_win, tote_pl, racecard_comment, form,
			data_source, created_at, updated_at
		FROM ra_odds_historical
		WHERE date_of_race = $1 AND track = $2 AND race_time = $3 AND horse_name = $4
	`

	var h models.HistoricalOdds
	var raceDate time.Time
	err := r.db.GetPool().QueryRow(ctx, query, key.DateOfRace, key.Track, key.RaceTime, key.HorseName).Scan(
		&raceDate, &h.Country, &h.Track, &h.RaceTime, &h.HorseName,
		&h.Going, &h.RaceType, &h.Distance, &h.RaceClass,
		&h.Age, &h.Weight, &h.Jockey, &h.Trainer, &h.Headgear, &h.StallNumber,
		&h.RunnersCount, &h.FinishingPosition, &h.WinningDistance,
		&h.IndustrySP, &h.SPFavoritePosition,
		&h.PreRaceMin, &h.PreRaceMax, &h.ForecastedOdds,
		&h.SPWinReturn, &h.EWReturn, &h.PlaceReturn,
		&h.ToteWin, &h.TotePl, &h.RacecardComment, &h.Form,
		&h.DataSource, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get historical record: %w", err)
	}
	h.DateOfRace = raceDate.Format("2006-01-02")

	return &h, nil
}

// Upsert inserts or updates a record on its natural key. Result-derived
// fields are authoritative on update; racecard-only fields are only filled
// when the stored value is missing. The existence check and the write run
// in one transaction so a concurrent writer cannot slip a row in between.
func (r *PostgresHistoricalRepository) Upsert(ctx context.Context, record *models.HistoricalOdds) (bool, error) {
	created := false
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		key := record.Key()
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(
				SELECT 1 FROM ra_odds_historical
				WHERE date_of_race = $1 AND track = $2 AND race_time = $3 AND horse_name = $4
			)`,
			key.DateOfRace, key.Track, key.RaceTime, key.HorseName,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check historical record: %w", err)
		}

		now := time.Now().UTC()
		record.UpdatedAt = now

		if exists {
			return r.update(ctx, tx, record)
		}

		record.CreatedAt = now
		created = true
		return r.insert(ctx, tx, record)
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

func (r *PostgresHistoricalRepository) insert(ctx context.Context, tx pgx.Tx, h *models.HistoricalOdds) error {
	query := `
		INSERT INTO ra_odds_historical (
			date_of_race, country, track, race_time, horse_name,
			going, race_type, distance, race_class,
			age, weight, jockey, trainer, headgear, stall_number,
			runners_count, finishing_position, winning_distance,
			industry_sp, sp_favorite_position,
			pre_race_min, pre_race_max, forecasted_odds,
			sp_win_return, ew_return, place_return,
			tote_win, tote_pl, racecard_comment, form,
			data_source, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28,
			$29, $30, $31, $32, $33
		)
	`

	_, err := tx.Exec(ctx, query,
		h.DateOfRace, h.Country, h.Track, h.RaceTime, h.HorseName,
		h.Going, h.RaceType, h.Distance, h.RaceClass,
		h.Age, h.Weight, h.Jockey, h.Trainer, h.Headgear, h.StallNumber,
		h.RunnersCount, h.FinishingPosition, h.WinningDistance,
		h.IndustrySP, h.SPFavoritePosition,
		h.PreRaceMin, h.PreRaceMax, h.ForecastedOdds,
		h.SPWinReturn, h.EWReturn, h.PlaceReturn,
		h.ToteWin, h.TotePl, h.RacecardComment, h.Form,
		h.DataSource, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert historical record: %w", err)
	}
	return nil
}

func (r *PostgresHistoricalRepository) update(ctx context.Context, tx pgx.Tx, h *models.HistoricalOdds) error {
	query := `
		UPDATE ra_odds_historical SET
			country = $5,
			going = COALESCE($6, going),
			race_type = COALESCE($7, race_type),
			distance = COALESCE($8, distance),
			race_class = COALESCE($9, race_class),
			age = COALESCE($10, age),
			weight = COALESCE($11, weight),
			jockey = COALESCE($12, jockey),
			trainer = COALESCE($13, trainer),
			headgear = COALESCE($14, headgear),
			stall_number = COALESCE($15, stall_number),
			runners_count = $16,
			finishing_position = $17,
			winning_distance = $18,
			industry_sp = $19,
			sp_favorite_position = $20,
			pre_race_min = COALESCE($21, pre_race_min),
			pre_race_max = COALESCE($22, pre_race_max),
			forecasted_odds = COALESCE($23, forecasted_odds),
			sp_win_return = $24,
			ew_return = $25,
			place_return = $26,
			tote_win = $27,
			tote_pl = $28,
			racecard_comment = COALESCE($29, racecard_comment),
			form = COALESCE($30, form),
			data_source = $31,
			updated_at = $32
		WHERE date_of_race = $1 AND track = $2 AND race_time = $3 AND horse_name = $4
	`

	_, err := tx.Exec(ctx, query,
		h.DateOfRace, h.Track, h.RaceTime, h.HorseName,
		h.Country,
		h.Going, h.RaceType, h.Distance, h.RaceClass,
		h.Age, h.Weight, h.Jockey, h.Trainer, h.Headgear, h.StallNumber,
		h.RunnersCount, h.FinishingPosition, h.WinningDistance,
		h.IndustrySP, h.SPFavoritePosition,
		h.PreRaceMin, h.PreRaceMax, h.ForecastedOdds,
		h.SPWinReturn, h.EWReturn, h.PlaceReturn,
		h.ToteWin, h.TotePl, h.RacecardComment, h.Form,
		h.DataSource, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update historical record: %w", err)
	}
	return nil
}

// UpsertBatch upserts records one by one, returning created and updated counts
func (r *PostgresHistoricalRepository) UpsertBatch(ctx context.Context, records []*models.HistoricalOdds) (created, updated int, err error) {
	for _, record := range records {
		wasCreated, err := r.Upsert(ctx, record)
		if err != nil {
			return created, updated, err
		}
		if wasCreated {
			created++
		} else {
			updated++
		}
	}
	return created, updated, nil
}

// DistinctDates returns the distinct race dates stored in the range
func (r *PostgresHistoricalRepository) DistinctDates(ctx context.Context, start, end time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT date_of_race
		FROM ra_odds_historical
		WHERE date_of_race >= $1 AND date_of_race <= $2
		ORDER BY date_of_race
	`

	rows, err := r.db.GetPool().Query(ctx, query, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan date: %w", err)
		}
		dates = append(dates, d.Format("2006-01-02"))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read distinct dates: %w", err)
	}

	return dates, nil
}

// CountForDate returns the number of records stored for a date
func (r *PostgresHistoricalRepository) CountForDate(ctx context.Context, date string) (int64, error) {
	var count int64
	err := r.db.GetPool().QueryRow(ctx,
		`SELECT COUNT(*) FROM ra_odds_historical WHERE date_of_race = $1`, date,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records for date: %w", err)
	}
	return count, nil
}
