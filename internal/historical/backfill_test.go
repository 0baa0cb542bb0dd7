package historical

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/darkhorses-odds/internal/config"
	"github.com/yourusername/darkhorses-odds/internal/models"
	"github.com/yourusername/darkhorses-odds/internal/racingapi"
)

func testBackfillConfig(t *testing.T, startDate string) *config.HistoricalConfig {
	t.Helper()
	return &config.HistoricalConfig{
		StartDate:         startDate,
		DatesPerCycle:     50,
		CompletionPercent: 95,
		MaintenanceCron:   "0 1 * * *",
		RecheckLimit:      10,
		StateFile:         filepath.Join(t.TempDir(), "backfill_state.json"),
		ResultsPageLimit:  50,
	}
}

// seedDates fills the repo with one record per date so DistinctDates sees
// those dates as covered
func seedDates(repo *fakeHistRepo, dates ...string) {
	for _, d := range dates {
		key := models.HistoricalKey{DateOfRace: d, Track: "ASCOT", RaceTime: "14:30", HorseName: "Alpha"}
		repo.records[key] = &models.HistoricalOdds{DateOfRace: d, Track: "ASCOT", RaceTime: "14:30", HorseName: "Alpha"}
	}
}

func fixedNow(day string) func() time.Time {
	t, _ := time.Parse("2006-01-02", day)
	return func() time.Time { return t.Add(12 * time.Hour) }
}

// TestLoadStateFreshStart tests a missing state file
func TestLoadStateFreshStart(t *testing.T) {
	cfg := testBackfillConfig(t, "2026-01-01")
	b := NewBackfill(nil, newFakeHistRepo(), cfg, testEntry())

	state, err := b.LoadState()
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", state.StartDate)
	assert.False(t, state.Complete)
	assert.Zero(t, state.DatesProcessed)
}

// TestSaveAndReloadState tests state round-tripping
func TestSaveAndReloadState(t *testing.T) {
	cfg := testBackfillConfig(t, "2026-01-01")
	b := NewBackfill(nil, newFakeHistRepo(), cfg, testEntry())

	state := &models.BackfillState{
		StartDate:      "2026-01-01",
		DatesProcessed: 17,
		LastDate:       "2026-01-17",
	}
	require.NoError(t, b.SaveState(state))

	loaded, err := b.LoadState()
	require.NoError(t, err)
	assert.Equal(t, 17, loaded.DatesProcessed)
	assert.Equal(t, "2026-01-17", loaded.LastDate)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

// TestMissingDatesDerivedFromStorage tests that gaps come from the
// database, not the state file
func TestMissingDatesDerivedFromStorage(t *testing.T) {
	cfg := testBackfillConfig(t, "2026-03-01")
	repo := newFakeHistRepo()
	seedDates(repo, "2026-03-01", "2026-03-02", "2026-03-04")

	b := NewBackfill(nil, repo, cfg, testEntry())
	b.now = fixedNow("2026-03-06") // expected range 03-01 .. 03-05

	missing, coverage, err := b.MissingDates(context.Background(), &models.BackfillState{StartDate: cfg.StartDate})
	require.NoError(t, err)

	require.Len(t, missing, 2)
	assert.Equal(t, "2026-03-03", missing[0].Format("2006-01-02"))
	assert.Equal(t, "2026-03-05", missing[1].Format("2006-01-02"))
	assert.InDelta(t, 0.6, coverage, 0.001)
}

// TestRunCompletesAtThreshold tests the coverage-based completion rule
func TestRunCompletesAtThreshold(t *testing.T) {
	cfg := testBackfillConfig(t, "2026-03-01")
	repo := newFakeHistRepo()
	// 19 of 20 expected dates present: 95% coverage
	start, _ := time.Parse("2006-01-02", "2026-03-01")
	for i := 0; i < 20; i++ {
		if i == 10 {
			continue
		}
		seedDates(repo, start.AddDate(0, 0, i).Format("2006-01-02"))
	}

	api := &fakeAPI{racecards: map[string][]racingapi.Racecard{}, results: map[string][]racingapi.Result{}}
	rec := NewReconciler(api, repo, []string{"gb"}, testEntry())

	b := NewBackfill(rec, repo, cfg, testEntry())
	b.now = fixedNow("2026-03-21") // expected range covers 20 dates

	require.NoError(t, b.Run(context.Background()))

	state, err := b.LoadState()
	require.NoError(t, err)
	assert.True(t, state.Complete)
	require.NotNil(t, state.CompletedAt)
}

// TestRunProcessesMissingDatesThenCompletes tests an end-to-end backfill
// that fills gaps until the threshold is reached
func TestRunProcessesMissingDatesThenCompletes(t *testing.T) {
	cfg := testBackfillConfig(t, "2026-03-01")
	repo := newFakeHistRepo()
	// 3 of 5 dates present; the two missing days have racing
	seedDates(repo, "2026-03-01", "2026-03-02", "2026-03-04")

	api := sixRunnerDay("2026-03-03")
	day2 := sixRunnerDay("2026-03-05")
	api.racecards["2026-03-05"] = day2.racecards["2026-03-05"]
	api.results["2026-03-05"] = day2.results["2026-03-05"]

	rec := NewReconciler(api, repo, []string{"gb"}, testEntry())
	b := NewBackfill(rec, repo, cfg, testEntry())
	b.now = fixedNow("2026-03-06")

	require.NoError(t, b.Run(context.Background()))

	state, err := b.LoadState()
	require.NoError(t, err)
	assert.True(t, state.Complete)
	assert.Equal(t, 2, state.DatesProcessed)
	assert.Equal(t, "2026-03-05", state.LastDate)

	count, err := repo.CountForDate(context.Background(), "2026-03-03")
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

// TestRunResumesFromInterruption tests that a canceled run picks up where
// the database left off
func TestRunResumesFromInterruption(t *testing.T) {
	cfg := testBackfillConfig(t, "2026-03-01")
	repo := newFakeHistRepo()
	seedDates(repo, "2026-03-01", "2026-03-02", "2026-03-04")

	api := sixRunnerDay("2026-03-03")
	day2 := sixRunnerDay("2026-03-05")
	api.racecards["2026-03-05"] = day2.racecards["2026-03-05"]
	api.results["2026-03-05"] = day2.results["2026-03-05"]

	rec := NewReconciler(api, repo, []string{"gb"}, testEntry())
	b := NewBackfill(rec, repo, cfg, testEntry())
	b.now = fixedNow("2026-03-06")

	// Cancel immediately; nothing processed
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.Run(canceled)
	assert.ErrorIs(t, err, context.Canceled)

	count, err := repo.CountForDate(context.Background(), "2026-03-03")
	require.NoError(t, err)
	assert.Zero(t, count)

	// Resume fills the remaining gaps from the database state
	require.NoError(t, b.Run(context.Background()))

	state, err := b.LoadState()
	require.NoError(t, err)
	assert.True(t, state.Complete)
	assert.Equal(t, 2, state.DatesProcessed)

	count, err = repo.CountForDate(context.Background(), "2026-03-03")
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

// TestRunDefersEmptyDatesToMaintenance tests that dates the provider has
// no data for are attempted once and then left to daily maintenance
// instead of being refetched in a tight loop
func TestRunDefersEmptyDatesToMaintenance(t *testing.T) {
	cfg := testBackfillConfig(t, "2026-03-01")
	repo := newFakeHistRepo()
	// 3 of 5 dates present; the two gaps have no racing at the provider,
	// so coverage can never reach the threshold
	seedDates(repo, "2026-03-01", "2026-03-02", "2026-03-04")

	api := &fakeAPI{racecards: map[string][]racingapi.Racecard{}, results: map[string][]racingapi.Result{}}
	rec := NewReconciler(api, repo, []string{"gb"}, testEntry())

	b := NewBackfill(rec, repo, cfg, testEntry())
	b.now = fixedNow("2026-03-06")

	require.NoError(t, b.Run(context.Background()))

	state, err := b.LoadState()
	require.NoError(t, err)
	assert.False(t, state.Complete)
	assert.Equal(t, 2, state.DatesProcessed)
}

// TestMaintenancePatchesYesterdayAndGaps tests the daily top-up: yesterday
// is always reconciled, and recent missing dates are re-checked
func TestMaintenancePatchesYesterdayAndGaps(t *testing.T) {
	cfg := testBackfillConfig(t, "2026-03-01")
	repo := newFakeHistRepo()
	seedDates(repo, "2026-03-01", "2026-03-02", "2026-03-04")

	api := sixRunnerDay("2026-03-03")
	day2 := sixRunnerDay("2026-03-05")
	api.racecards["2026-03-05"] = day2.racecards["2026-03-05"]
	api.results["2026-03-05"] = day2.results["2026-03-05"]

	rec := NewReconciler(api, repo, []string{"gb"}, testEntry())
	b := NewBackfill(rec, repo, cfg, testEntry())
	b.now = fixedNow("2026-03-06") // yesterday is 03-05, 03-03 is a gap

	b.runMaintenance(context.Background())

	count, err := repo.CountForDate(context.Background(), "2026-03-05")
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)

	count, err = repo.CountForDate(context.Background(), "2026-03-03")
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

// TestMaintenanceRecheckLimitBoundsGapSweep tests that only the most
// recent missing dates are re-checked
func TestMaintenanceRecheckLimitBoundsGapSweep(t *testing.T) {
	cfg := testBackfillConfig(t, "2026-03-01")
	cfg.RecheckLimit = 1
	repo := newFakeHistRepo()
	seedDates(repo, "2026-03-01", "2026-03-02", "2026-03-04")

	api := sixRunnerDay("2026-03-03")
	day2 := sixRunnerDay("2026-03-05")
	api.racecards["2026-03-05"] = day2.racecards["2026-03-05"]
	api.results["2026-03-05"] = day2.results["2026-03-05"]

	rec := NewReconciler(api, repo, []string{"gb"}, testEntry())
	b := NewBackfill(rec, repo, cfg, testEntry())
	b.now = fixedNow("2026-03-06")

	b.runMaintenance(context.Background())

	// The one-date re-check budget lands on 03-05, which the yesterday
	// pass already covered, so the older 03-03 gap stays open
	count, err := repo.CountForDate(context.Background(), "2026-03-03")
	require.NoError(t, err)
	assert.Zero(t, count)
}

// TestRunAlreadyComplete tests the fast path when state is complete
func TestRunAlreadyComplete(t *testing.T) {
	cfg := testBackfillConfig(t, "2026-03-01")
	b := NewBackfill(nil, newFakeHistRepo(), cfg, testEntry())

	now := time.Now().UTC()
	require.NoError(t, b.SaveState(&models.BackfillState{
		StartDate:   "2026-03-01",
		Complete:    true,
		CompletedAt: &now,
	}))

	// A nil reconciler would panic if Run tried to process anything
	require.NoError(t, b.Run(context.Background()))
}
