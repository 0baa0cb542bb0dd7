package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SnapshotKey identifies the single current quote for a
// (race, runner, bookmaker) combination.
type SnapshotKey struct {
	RaceID      string
	HorseID     string
	BookmakerID string
}

// OddsSnapshot is the persisted current quote per snapshot key, written
// only when the decimal value changes. Race and runner metadata is
// denormalized onto the row so consumers can query it standalone.
type OddsSnapshot struct {
	ID          uuid.UUID `db:"id" json:"id"`
	RaceID      string    `db:"race_id" json:"race_id" validate:"required"`
	HorseID     string    `db:"horse_id" json:"horse_id" validate:"required"`
	BookmakerID string    `db:"bookmaker_id" json:"bookmaker_id" validate:"required"`

	RaceDate  string    `db:"race_date" json:"race_date"`
	RaceTime  string    `db:"race_time" json:"race_time"`
	OffDT     time.Time `db:"off_dt" json:"off_dt"`
	Course    string    `db:"course" json:"course"`
	RaceName  string    `db:"race_name" json:"race_name"`
	RaceClass string    `db:"race_class" json:"race_class"`
	RaceType  string    `db:"race_type" json:"race_type"`
	Distance  string    `db:"distance" json:"distance"`
	Going     string    `db:"going" json:"going"`
	Runners   int       `db:"runners" json:"runners"`

	HorseName   string  `db:"horse_name" json:"horse_name"`
	HorseNumber *int    `db:"horse_number" json:"horse_number"`
	Jockey      *string `db:"jockey" json:"jockey"`
	Trainer     *string `db:"trainer" json:"trainer"`
	Draw        *int    `db:"draw" json:"draw"`
	Weight      *string `db:"weight" json:"weight"`
	Age         *int    `db:"age" json:"age"`
	Form        *string `db:"form" json:"form"`

	BookmakerName string `db:"bookmaker_name" json:"bookmaker_name"`
	BookmakerType string `db:"bookmaker_type" json:"bookmaker_type"`
	MarketType    string `db:"market_type" json:"market_type"`

	OddsDecimal    *decimal.Decimal `db:"odds_decimal" json:"odds_decimal"`
	OddsFractional *string          `db:"odds_fractional" json:"odds_fractional"`
	MarketStatus   string           `db:"market_status" json:"market_status"`
	InPlay         bool             `db:"in_play" json:"in_play"`

	OddsTimestamp time.Time `db:"odds_timestamp" json:"odds_timestamp"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Key returns the snapshot identity for this row.
func (s *OddsSnapshot) Key() SnapshotKey {
	return SnapshotKey{RaceID: s.RaceID, HorseID: s.HorseID, BookmakerID: s.BookmakerID}
}

// CycleStatistics summarizes one live fetch cycle for operational
// observability.
type CycleStatistics struct {
	FetchTimestamp  time.Time     `db:"fetch_timestamp" json:"fetch_timestamp"`
	RacesCount      int           `db:"races_count" json:"races_count"`
	HorsesCount     int           `db:"horses_count" json:"horses_count"`
	OddsFetched     int           `db:"total_odds_fetched" json:"total_odds_fetched"`
	OddsNew         int           `db:"odds_new" json:"odds_new"`
	OddsUpdated     int           `db:"odds_updated" json:"odds_updated"`
	OddsSkipped     int           `db:"odds_skipped" json:"odds_skipped"`
	ErrorsCount     int           `db:"errors_count" json:"errors_count"`
	BookmakerList   []string      `db:"bookmaker_list" json:"bookmaker_list"`
	FetchDuration   time.Duration `db:"-" json:"fetch_duration"`
	FetchDurationMS int64         `db:"fetch_duration_ms" json:"fetch_duration_ms"`
}
