package historical

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yourusername/darkhorses-odds/internal/bookmakers"
	"github.com/yourusername/darkhorses-odds/internal/models"
	"github.com/yourusername/darkhorses-odds/internal/racingapi"
)

const dataSourceName = "racing_api"

// irishCourses is the allow-list of Irish tracks. Courses not listed are
// treated as GB; the feed does not always carry a usable region code on
// results.
var irishCourses = map[string]bool{
	"LEOPARDSTOWN": true,
	"CURRAGH":      true,
	"FAIRYHOUSE":   true,
	"PUNCHESTOWN":  true,
	"GALWAY":       true,
	"LISTOWEL":     true,
	"NAAS":         true,
	"CORK":         true,
	"TIPPERARY":    true,
	"KILLARNEY":    true,
	"DOWNPATRICK":  true,
	"DUNDALK":      true,
	"GOWRAN PARK":  true,
	"KILBEGGAN":    true,
	"ROSCOMMON":    true,
	"SLIGO":        true,
	"TRAMORE":      true,
	"WEXFORD":      true,
	"CLONMEL":      true,
	"THURLES":      true,
	"BALLINROBE":   true,
	"BELLEWSTOWN":  true,
	"LAYTOWN":      true,
}

var raceClassPattern = regexp.MustCompile(`\d+`)

// normalizeTrack canonicalizes a course name for the natural key. Suffixes
// like "(AW)" on all-weather cards vary between endpoints and are dropped.
func normalizeTrack(course string) string {
	track := strings.ToUpper(strings.TrimSpace(course))
	if idx := strings.Index(track, "("); idx > 0 {
		track = strings.TrimSpace(track[:idx])
	}
	return track
}

// inferCountry classifies a course as IRE or GB by the Irish allow-list
func inferCountry(course string) string {
	if irishCourses[normalizeTrack(course)] {
		return "IRE"
	}
	return "GB"
}

// parseRaceClass extracts the first integer from a race class string
// ("Class 4", "(Class 2)"). Nil when no digit is present.
func parseRaceClass(raceClass string) *int {
	match := raceClassPattern.FindString(raceClass)
	if match == "" {
		return nil
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &n
}

// runnerKey joins race ID and horse ID for the reconciliation lookup
type runnerKey struct {
	raceID  string
	horseID string
}

// racecardIndex provides pre-race lookups for the join
type racecardIndex struct {
	runners map[runnerKey]*racingapi.RacecardRunner
}

func indexRacecards(cards []racingapi.Racecard) *racecardIndex {
	idx := &racecardIndex{
		runners: make(map[runnerKey]*racingapi.RacecardRunner),
	}
	for i := range cards {
		card := &cards[i]
		for j := range card.Runners {
			runner := &card.Runners[j]
			idx.runners[runnerKey{raceID: card.RaceID, horseID: runner.HorseID}] = runner
		}
	}
	return idx
}

func (idx *racecardIndex) lookup(raceID, horseID string) (*racingapi.RacecardRunner, bool) {
	r, ok := idx.runners[runnerKey{raceID: raceID, horseID: horseID}]
	return r, ok
}

// buildRecord assembles one reconciled record from a result runner and its
// matched racecard entry. Result fields are authoritative; the racecard
// contributes pre-race context only.
func buildRecord(
	result *racingapi.Result,
	runner *racingapi.ResultRunner,
	preRace *racingapi.RacecardRunner,
	raceSPs []decimal.Decimal,
) *models.HistoricalOdds {
	runners := len(result.Runners)

	sp := parseSP(runner)

	rec := &models.HistoricalOdds{
		DateOfRace: result.Date,
		Country:    inferCountry(result.Course),
		Track:      normalizeTrack(result.Course),
		RaceTime:   result.Off,
		HorseName:  runner.Horse,

		Going:     strPtr(result.Going),
		RaceType:  strPtr(result.RaceType),
		Distance:  strPtr(result.Distance),
		RaceClass: parseRaceClass(result.RaceClass),

		Age:         atoiPtr(runner.Age),
		Weight:      runner.WeightLbs,
		Jockey:      runner.Jockey,
		Trainer:     runner.Trainer,
		StallNumber: atoiPtr(runner.Draw),

		RunnersCount:       &runners,
		FinishingPosition:  runner.Position,
		WinningDistance:    runner.BTN,
		IndustrySP:         sp,
		SPFavoritePosition: FavoriteRank(sp, raceSPs),

		SPWinReturn: WinReturn(sp, runner.Position),
		PlaceReturn: PlaceReturn(sp, runner.Position, runners),
		EWReturn:    EachWayReturn(sp, runner.Position, runners),

		ToteWin: runner.ToteWin,
		TotePl:  runner.TotePl,

		RacecardComment: runner.Comment,

		DataSource: dataSourceName,
	}

	if preRace != nil {
		rec.Form = preRace.Form
		if rec.RacecardComment == nil {
			rec.RacecardComment = preRace.Comment
		}

		var quotes []decimal.Decimal
		for _, o := range preRace.Odds {
			if d := bookmakers.ParseDecimalOdds(o.Decimal); d != nil {
				quotes = append(quotes, *d)
			} else if d := bookmakers.ParseFractionalOdds(o.Fractional); d != nil {
				quotes = append(quotes, *d)
			}
		}
		rec.PreRaceMin, rec.PreRaceMax, rec.ForecastedOdds = PreRaceRange(quotes)

		// No bookmaker quotes on the card: fall back to the provider's
		// forecast price so the column is still populated.
		if rec.ForecastedOdds == nil && preRace.SPForecast != nil {
			rec.ForecastedOdds = bookmakers.ParseFractionalOdds(*preRace.SPForecast)
		}
	}

	return rec
}

// parseSP extracts a runner's starting price, preferring the decimal field
func parseSP(runner *racingapi.ResultRunner) *decimal.Decimal {
	if runner.SPDecimal != nil {
		if d := bookmakers.ParseDecimalOdds(*runner.SPDecimal); d != nil {
			return d
		}
	}
	if runner.SP != nil {
		if d := bookmakers.ParseFractionalOdds(*runner.SP); d != nil {
			return d
		}
	}
	return nil
}

// raceStartingPrices collects all valid SPs for favorite ranking
func raceStartingPrices(result *racingapi.Result) []decimal.Decimal {
	var sps []decimal.Decimal
	for i := range result.Runners {
		if sp := parseSP(&result.Runners[i]); sp != nil {
			sps = append(sps, *sp)
		}
	}
	return sps
}

func strPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func atoiPtr(s *string) *int {
	if s == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*s))
	if err != nil {
		return nil
	}
	return &n
}
