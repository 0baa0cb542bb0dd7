package historical

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/darkhorses-odds/internal/models"
	"github.com/yourusername/darkhorses-odds/internal/racingapi"
)

func testEntry() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

// fakeAPI serves scripted racecards and results keyed by date
type fakeAPI struct {
	racecards map[string][]racingapi.Racecard
	results   map[string][]racingapi.Result
	err       error
}

func (f *fakeAPI) FetchRacecards(ctx context.Context, date time.Time, regions []string) ([]racingapi.Racecard, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.racecards[date.Format("2006-01-02")], nil
}

func (f *fakeAPI) FetchResults(ctx context.Context, date time.Time) ([]racingapi.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results[date.Format("2006-01-02")], nil
}

// fakeHistRepo is an in-memory HistoricalRepository
type fakeHistRepo struct {
	records map[models.HistoricalKey]*models.HistoricalOdds
	err     error
}

func newFakeHistRepo() *fakeHistRepo {
	return &fakeHistRepo{records: make(map[models.HistoricalKey]*models.HistoricalOdds)}
}

func (f *fakeHistRepo) Exists(ctx context.Context, key models.HistoricalKey) (bool, error) {
	_, ok := f.records[key]
	return ok, f.err
}

func (f *fakeHistRepo) Get(ctx context.Context, key models.HistoricalKey) (*models.HistoricalOdds, error) {
	if f.err != nil {
		return nil, f.err
	}
	record, ok := f.records[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return record, nil
}

func (f *fakeHistRepo) Upsert(ctx context.Context, record *models.HistoricalOdds) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, existed := f.records[record.Key()]
	f.records[record.Key()] = record
	return !existed, nil
}

func (f *fakeHistRepo) UpsertBatch(ctx context.Context, records []*models.HistoricalOdds) (created, updated int, err error) {
	for _, r := range records {
		wasCreated, err := f.Upsert(ctx, r)
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

func (f *fakeHistRepo) DistinctDates(ctx context.Context, start, end time.Time) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	seen := make(map[string]bool)
	var dates []string
	for key := range f.records {
		if !seen[key.DateOfRace] && key.DateOfRace >= start.Format("2006-01-02") && key.DateOfRace <= end.Format("2006-01-02") {
			seen[key.DateOfRace] = true
			dates = append(dates, key.DateOfRace)
		}
	}
	return dates, nil
}

func (f *fakeHistRepo) CountForDate(ctx context.Context, date string) (int64, error) {
	var n int64
	for key := range f.records {
		if key.DateOfRace == date {
			n++
		}
	}
	return n, nil
}

func sixRunnerDay(day string) *fakeAPI {
	runners := []racingapi.ResultRunner{
		{HorseID: "hrs_1", Horse: "Alpha", Position: strp("1"), SPDecimal: strp("2.0")},
		{HorseID: "hrs_2", Horse: "Beta", Position: strp("2"), SPDecimal: strp("3.0")},
		{HorseID: "hrs_3", Horse: "Gamma", Position: strp("3"), SPDecimal: strp("5.0")},
		{HorseID: "hrs_4", Horse: "Delta", Position: strp("4"), SPDecimal: strp("8.0")},
		{HorseID: "hrs_5", Horse: "Epsilon", Position: strp("5"), SPDecimal: strp("12.0")},
		{HorseID: "hrs_6", Horse: "Zeta", Position: strp("6"), SPDecimal: strp("21.0")},
	}

	var cardRunners []racingapi.RacecardRunner
	for _, r := range runners {
		cardRunners = append(cardRunners, racingapi.RacecardRunner{
			HorseID: r.HorseID,
			Horse:   r.Horse,
			Odds:    []racingapi.RunnerOdds{{Bookmaker: "Bet365", Decimal: "4.0"}},
		})
	}

	return &fakeAPI{
		racecards: map[string][]racingapi.Racecard{
			day: {{RaceID: "rac_1", Course: "Ascot", Date: day, OffTime: "14:30", Runners: cardRunners}},
		},
		results: map[string][]racingapi.Result{
			day: {{RaceID: "rac_1", Course: "Ascot", Date: day, Off: "14:30", Runners: runners}},
		},
	}
}

// TestReconcileDateSixRunnerSettlement tests the full join and settlement
// for a six-runner race
func TestReconcileDateSixRunnerSettlement(t *testing.T) {
	day := "2026-03-14"
	api := sixRunnerDay(day)
	repo := newFakeHistRepo()

	rec := NewReconciler(api, repo, []string{"gb", "ire"}, testEntry())
	date, _ := time.Parse("2006-01-02", day)

	summary, err := rec.ReconcileDate(context.Background(), date)
	require.NoError(t, err)

	assert.Equal(t, 6, summary.Created)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 0, summary.NoRacecard)

	key := func(horse string) models.HistoricalKey {
		return models.HistoricalKey{DateOfRace: day, Track: "ASCOT", RaceTime: "14:30", HorseName: horse}
	}

	winner := repo.records[key("Alpha")]
	require.NotNil(t, winner)
	require.NotNil(t, winner.EWReturn)
	assert.True(t, winner.EWReturn.Equal(dec("3.25")), "winner EW expected 3.25, got %s", winner.EWReturn)
	require.NotNil(t, winner.SPWinReturn)
	assert.True(t, winner.SPWinReturn.Equal(dec("2.0")))
	require.NotNil(t, winner.SPFavoritePosition)
	assert.Equal(t, 1, *winner.SPFavoritePosition)

	second := repo.records[key("Beta")]
	require.NotNil(t, second)
	require.NotNil(t, second.EWReturn)
	assert.True(t, second.EWReturn.Equal(dec("1.5")), "second EW expected 1.5, got %s", second.EWReturn)
	require.NotNil(t, second.SPWinReturn)
	assert.True(t, second.SPWinReturn.IsZero())

	third := repo.records[key("Gamma")]
	require.NotNil(t, third)
	require.NotNil(t, third.EWReturn)
	assert.True(t, third.EWReturn.IsZero(), "third EW expected 0, got %s", third.EWReturn)
}

// TestReconcileDateSkipsUnmatchedRunners tests that result runners with no
// racecard entry are skipped
func TestReconcileDateSkipsUnmatchedRunners(t *testing.T) {
	day := "2026-03-14"
	api := sixRunnerDay(day)

	// Drop one runner from the racecard so the join misses it
	cards := api.racecards[day]
	cards[0].Runners = cards[0].Runners[:5]

	repo := newFakeHistRepo()
	rec := NewReconciler(api, repo, []string{"gb"}, testEntry())
	date, _ := time.Parse("2006-01-02", day)

	summary, err := rec.ReconcileDate(context.Background(), date)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Created)
	assert.Equal(t, 1, summary.NoRacecard)
	assert.Len(t, repo.records, 5)
}

// TestReconcileDateRerunUpdates tests that reprocessing a date updates
// rather than duplicates
func TestReconcileDateRerunUpdates(t *testing.T) {
	day := "2026-03-14"
	api := sixRunnerDay(day)
	repo := newFakeHistRepo()
	rec := NewReconciler(api, repo, []string{"gb"}, testEntry())
	date, _ := time.Parse("2006-01-02", day)

	_, err := rec.ReconcileDate(context.Background(), date)
	require.NoError(t, err)

	summary, err := rec.ReconcileDate(context.Background(), date)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 6, summary.Updated)
	assert.Len(t, repo.records, 6)
}

// TestReconcileDateAPIFailure tests that fetch failures fail the date
func TestReconcileDateAPIFailure(t *testing.T) {
	api := &fakeAPI{err: errors.New("upstream down")}
	rec := NewReconciler(api, newFakeHistRepo(), []string{"gb"}, testEntry())

	_, err := rec.ReconcileDate(context.Background(), time.Now())
	require.Error(t, err)
}

// TestReconcileDateEmptyDay tests a day with no racing
func TestReconcileDateEmptyDay(t *testing.T) {
	api := &fakeAPI{racecards: map[string][]racingapi.Racecard{}, results: map[string][]racingapi.Result{}}
	rec := NewReconciler(api, newFakeHistRepo(), []string{"gb"}, testEntry())

	summary, err := rec.ReconcileDate(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 0, summary.Races)
}
