package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoricalKey is the natural key used to persist reconciled records.
// No stable cross-endpoint race identifier survives into the target
// schema, so records match on date + track + time + horse name.
type HistoricalKey struct {
	DateOfRace string
	Track      string
	RaceTime   string
	HorseName  string
}

// HistoricalOdds is one reconciled record per (race, runner) pair where
// both a pre-race racecard and a result exist. Immutable after creation
// except for update-on-conflict for late corrections.
type HistoricalOdds struct {
	DateOfRace string `db:"date_of_race" json:"date_of_race" validate:"required"`
	Country    string `db:"country" json:"country"`
	Track      string `db:"track" json:"track" validate:"required"`
	RaceTime   string `db:"race_time" json:"race_time"`
	HorseName  string `db:"horse_name" json:"horse_name" validate:"required"`

	Going     *string `db:"going" json:"going"`
	RaceType  *string `db:"race_type" json:"race_type"`
	Distance  *string `db:"distance" json:"distance"`
	RaceClass *int    `db:"race_class" json:"race_class"`

	Age         *int    `db:"age" json:"age"`
	Weight      *string `db:"weight" json:"weight"`
	Jockey      *string `db:"jockey" json:"jockey"`
	Trainer     *string `db:"trainer" json:"trainer"`
	Headgear    *string `db:"headgear" json:"headgear"`
	StallNumber *int    `db:"stall_number" json:"stall_number"`

	RunnersCount       *int             `db:"runners_count" json:"runners_count"`
	FinishingPosition  *string          `db:"finishing_position" json:"finishing_position"`
	WinningDistance    *string          `db:"winning_distance" json:"winning_distance"`
	IndustrySP         *decimal.Decimal `db:"industry_sp" json:"industry_sp"`
	SPFavoritePosition *int             `db:"sp_favorite_position" json:"sp_favorite_position"`

	PreRaceMin     *decimal.Decimal `db:"pre_race_min" json:"pre_race_min"`
	PreRaceMax     *decimal.Decimal `db:"pre_race_max" json:"pre_race_max"`
	ForecastedOdds *decimal.Decimal `db:"forecasted_odds" json:"forecasted_odds"`

	SPWinReturn *decimal.Decimal `db:"sp_win_return" json:"sp_win_return"`
	EWReturn    *decimal.Decimal `db:"ew_return" json:"ew_return"`
	PlaceReturn *decimal.Decimal `db:"place_return" json:"place_return"`

	ToteWin *string `db:"tote_win" json:"tote_win"`
	TotePl  *string `db:"tote_pl" json:"tote_pl"`

	RacecardComment *string `db:"racecard_comment" json:"racecard_comment"`
	Form            *string `db:"form" json:"form"`

	DataSource string    `db:"data_source" json:"data_source"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Key returns the natural key for upsert and duplicate detection.
func (h *HistoricalOdds) Key() HistoricalKey {
	return HistoricalKey{
		DateOfRace: h.DateOfRace,
		Track:      h.Track,
		RaceTime:   h.RaceTime,
		HorseName:  h.HorseName,
	}
}
