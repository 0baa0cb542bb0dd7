package racingapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"
)

const racecardsEndpoint = "/racecards/pro"

// Racecard represents a race card from the Racing API pro endpoint
type Racecard struct {
	RaceID    string           `json:"race_id"`
	Course    string           `json:"course"`
	Date      string           `json:"date"`
	OffTime   string           `json:"off_time"`
	OffDT     string           `json:"off_dt"`
	RaceName  string           `json:"race_name"`
	RaceClass string           `json:"race_class"`
	RaceType  string           `json:"type"`
	Distance  string           `json:"distance_f"`
	Going     string           `json:"going"`
	Region    string           `json:"region"`
	FieldSize int              `json:"field_size"`
	Runners   []RacecardRunner `json:"runners"`
}

// RacecardRunner represents a declared runner on a race card
type RacecardRunner struct {
	HorseID     string       `json:"horse_id"`
	Horse       string       `json:"horse"`
	Number      *string      `json:"number"`
	Draw        *string      `json:"draw"`
	Jockey      *string      `json:"jockey"`
	Trainer     *string      `json:"trainer"`
	Age         *string      `json:"age"`
	WeightLbs   *string      `json:"lbs"`
	Form        *string      `json:"form"`
	Comment     *string      `json:"comment"`
	SPForecast  *string      `json:"sp_forecast"`
	Odds        []RunnerOdds `json:"odds"`
}

// RunnerOdds represents one bookmaker's quote for a runner
type RunnerOdds struct {
	Bookmaker  string `json:"bookmaker"`
	Fractional string `json:"fractional"`
	Decimal    string `json:"decimal"`
	EWPlaces   string `json:"ew_places"`
	EWDenom    string `json:"ew_denom"`
	Updated    string `json:"updated"`
}

type racecardsResponse struct {
	Racecards []Racecard `json:"racecards"`
}

// FetchRacecards retrieves the pro race cards for a date across the given
// regions. A 404 from the API means no meetings that day and returns an
// empty slice.
func (c *Client) FetchRacecards(ctx context.Context, date time.Time, regions []string) ([]Racecard, error) {
	params := url.Values{}
	params.Set("date", date.Format("2006-01-02"))
	for _, region := range regions {
		params.Add("region_codes", region)
	}

	body, err := c.get(ctx, racecardsEndpoint, c.baseURL+racecardsEndpoint+"?"+params.Encode())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var resp racecardsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, NewAPIError(racecardsEndpoint, ErrCodeInvalidData, "failed to parse racecards response", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"date":      date.Format("2006-01-02"),
		"racecards": len(resp.Racecards),
	}).Debug("fetched racecards")

	return resp.Racecards, nil
}
