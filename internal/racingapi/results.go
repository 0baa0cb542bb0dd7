package racingapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"
)

const resultsEndpoint = "/results"

// Result represents a completed race from the Racing API results endpoint
type Result struct {
	RaceID    string         `json:"race_id"`
	Date      string         `json:"date"`
	Course    string         `json:"course"`
	Off       string         `json:"off"`
	RaceName  string         `json:"race_name"`
	RaceClass string         `json:"class"`
	RaceType  string         `json:"type"`
	Going     string         `json:"going"`
	Distance  string         `json:"dist"`
	Region    string         `json:"region"`
	Runners   []ResultRunner `json:"runners"`
}

// ResultRunner represents a runner's final placing and starting price
type ResultRunner struct {
	HorseID   string  `json:"horse_id"`
	Horse     string  `json:"horse"`
	Position  *string `json:"position"`
	SP        *string `json:"sp"`
	SPDecimal *string `json:"sp_dec"`
	BTN       *string `json:"btn"`
	Number    *string `json:"number"`
	Draw      *string `json:"draw"`
	Jockey    *string `json:"jockey"`
	Trainer   *string `json:"trainer"`
	Age       *string `json:"age"`
	WeightLbs *string `json:"weight_lbs"`
	Comment   *string `json:"comment"`
	ToteWin   *string `json:"tote_win"`
	TotePl    *string `json:"tote_pl"`
}

type resultsResponse struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Skip    int      `json:"skip"`
}

// FetchResults retrieves all race results for a date, walking the paginated
// endpoint until the reported total is exhausted. A 404 means no results for
// that day and returns an empty slice.
func (c *Client) FetchResults(ctx context.Context, date time.Time) ([]Result, error) {
	var all []Result
	skip := 0

	for {
		page, total, err := c.fetchResultsPage(ctx, date, skip)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return all, nil
			}
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		all = append(all, page...)
		skip += len(page)
		if skip >= total {
			break
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"date":    date.Format("2006-01-02"),
		"results": len(all),
	}).Debug("fetched results")

	return all, nil
}

func (c *Client) fetchResultsPage(ctx context.Context, date time.Time, skip int) ([]Result, int, error) {
	day := date.Format("2006-01-02")
	params := url.Values{}
	params.Set("start_date", day)
	params.Set("end_date", day)
	params.Set("limit", fmt.Sprintf("%d", c.pageLimit))
	params.Set("skip", fmt.Sprintf("%d", skip))

	body, err := c.get(ctx, resultsEndpoint, c.baseURL+resultsEndpoint+"?"+params.Encode())
	if err != nil {
		return nil, 0, err
	}

	var resp resultsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, NewAPIError(resultsEndpoint, ErrCodeInvalidData, "failed to parse results response", err)
	}

	return resp.Results, resp.Total, nil
}
