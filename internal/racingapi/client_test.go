package racingapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/darkhorses-odds/internal/config"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	cfg := &config.RacingAPIConfig{
		BaseURL:           serverURL,
		Username:          "test-user",
		Password:          "test-pass",
		TimeoutSeconds:    5,
		MaxRetries:        0,
		RequestsPerSecond: 100,
		BurstSize:         100,
	}

	httpClient := NewRateLimitedHTTPClient(HTTPClientConfig{
		Timeout:           5 * time.Second,
		MaxRetries:        0,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      time.Millisecond,
		RateLimit:         100,
		Burst:             100,
		CircuitBreakerMax: 5,
	}, nil)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	client := NewClient(cfg, httpClient, 50, logrus.NewEntry(log))
	client.cooldown = 10 * time.Millisecond
	return client
}

// TestFetchRacecardsSuccess tests parsing a racecards response
func TestFetchRacecardsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-user" || pass != "test-pass" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if got := r.URL.Query().Get("date"); got != "2026-03-14" {
			t.Errorf("expected date query 2026-03-14, got %s", got)
		}
		if regions := r.URL.Query()["region_codes"]; len(regions) != 2 {
			t.Errorf("expected 2 region codes, got %v", regions)
		}

		resp := racecardsResponse{Racecards: []Racecard{
			{
				RaceID:  "rac_1",
				Course:  "Ascot",
				Date:    "2026-03-14",
				OffTime: "14:30",
				Runners: []RacecardRunner{
					{
						HorseID: "hrs_1",
						Horse:   "Test Horse",
						Odds: []RunnerOdds{
							{Bookmaker: "Bet365", Fractional: "5/2", Decimal: "3.5"},
						},
					},
				},
			},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	defer client.Close()

	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	cards, err := client.FetchRacecards(context.Background(), date, []string{"gb", "ire"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(cards) != 1 {
		t.Fatalf("expected 1 racecard, got %d", len(cards))
	}
	if cards[0].RaceID != "rac_1" {
		t.Errorf("expected race_id rac_1, got %s", cards[0].RaceID)
	}
	if len(cards[0].Runners) != 1 || len(cards[0].Runners[0].Odds) != 1 {
		t.Fatalf("expected 1 runner with 1 quote, got %+v", cards[0].Runners)
	}
	if cards[0].Runners[0].Odds[0].Decimal != "3.5" {
		t.Errorf("expected decimal odds 3.5, got %s", cards[0].Runners[0].Odds[0].Decimal)
	}
}

// TestFetchRacecardsNotFound tests that a 404 means an empty day
func TestFetchRacecardsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	defer client.Close()

	cards, err := client.FetchRacecards(context.Background(), time.Now(), []string{"gb"})
	if err != nil {
		t.Fatalf("expected no error for 404, got %v", err)
	}
	if len(cards) != 0 {
		t.Errorf("expected empty racecards for 404, got %d", len(cards))
	}
}

// TestFetchRacecardsAuthFailure tests credential rejection
func TestFetchRacecardsAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	defer client.Close()

	_, err := client.FetchRacecards(context.Background(), time.Now(), []string{"gb"})
	if err == nil {
		t.Fatal("expected auth error, got nil")
	}

	apiErr, ok := err.(APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != ErrCodeAuthenticationFailed {
		t.Errorf("expected code %s, got %s", ErrCodeAuthenticationFailed, apiErr.Code)
	}
}

// TestFetchRacecardsRateLimitRetry tests the 429 cooldown-and-retry path
func TestFetchRacecardsRateLimitRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(racecardsResponse{Racecards: []Racecard{{RaceID: "rac_2"}}})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	defer client.Close()

	cards, err := client.FetchRacecards(context.Background(), time.Now(), []string{"gb"})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
	if len(cards) != 1 {
		t.Errorf("expected 1 racecard after retry, got %d", len(cards))
	}
}

// TestFetchResultsPagination tests walking a paginated results response
func TestFetchResultsPagination(t *testing.T) {
	const total = 120
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit != 50 {
			t.Errorf("expected limit 50, got %d", limit)
		}

		var page []Result
		for i := skip; i < skip+limit && i < total; i++ {
			page = append(page, Result{RaceID: fmt.Sprintf("rac_%d", i)})
		}
		_ = json.NewEncoder(w).Encode(resultsResponse{Results: page, Total: total, Limit: limit, Skip: skip})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	defer client.Close()

	results, err := client.FetchResults(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(results) != total {
		t.Errorf("expected %d results, got %d", total, len(results))
	}
	if results[0].RaceID != "rac_0" || results[total-1].RaceID != fmt.Sprintf("rac_%d", total-1) {
		t.Error("expected results in pagination order")
	}
}

// TestFetchResultsConfiguredPageLimit tests that the page size handed to
// the constructor drives the results query
func TestFetchResultsConfiguredPageLimit(t *testing.T) {
	const total = 40
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit != 25 {
			t.Errorf("expected limit 25, got %d", limit)
		}

		var page []Result
		for i := skip; i < skip+limit && i < total; i++ {
			page = append(page, Result{RaceID: fmt.Sprintf("rac_%d", i)})
		}
		_ = json.NewEncoder(w).Encode(resultsResponse{Results: page, Total: total, Limit: limit, Skip: skip})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	defer client.Close()
	client.pageLimit = 25

	results, err := client.FetchResults(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(results) != total {
		t.Errorf("expected %d results, got %d", total, len(results))
	}
}

// TestFetchResultsNotFound tests that a 404 yields an empty day
func TestFetchResultsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	defer client.Close()

	results, err := client.FetchResults(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("expected no error for 404, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}
