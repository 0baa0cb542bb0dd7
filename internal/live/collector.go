// Package live implements the live odds collection loop: fetching race
// cards, normalizing bookmaker quotes, and persisting snapshots through
// change detection on a proximity-driven schedule.
package live

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/darkhorses-odds/internal/bookmakers"
	"github.com/yourusername/darkhorses-odds/internal/config"
	"github.com/yourusername/darkhorses-odds/internal/metrics"
	"github.com/yourusername/darkhorses-odds/internal/models"
	"github.com/yourusername/darkhorses-odds/internal/racingapi"
	"github.com/yourusername/darkhorses-odds/internal/repository"
	"github.com/yourusername/darkhorses-odds/internal/snapshot"
)

// racecardSource abstracts the Racing API racecards endpoint
type racecardSource interface {
	FetchRacecards(ctx context.Context, date time.Time, regions []string) ([]racingapi.Racecard, error)
}

// Collector runs one collection cycle: racecards in, snapshots out
type Collector struct {
	source  racecardSource
	engine  *snapshot.Engine
	stats   repository.StatisticsRepository
	cache   *gocache.Cache
	cfg     *config.LiveOddsConfig
	regions []string
	logger  *logrus.Entry
}

// CycleOutcome carries the cycle summary plus the scheduling signal
type CycleOutcome struct {
	Stats       models.CycleStatistics
	NearestRace *time.Time

	// Identity of the race behind NearestRace, for the scheduler log
	NearestRaceID string
	NearestCourse string
}

// NewCollector creates a live odds collector
func NewCollector(
	source racecardSource,
	engine *snapshot.Engine,
	stats repository.StatisticsRepository,
	cfg *config.LiveOddsConfig,
	regions []string,
	log *logrus.Entry,
) *Collector {
	ttl := cfg.RacecardCacheTTL()
	return &Collector{
		source:  source,
		engine:  engine,
		stats:   stats,
		cache:   gocache.New(ttl, 2*ttl),
		cfg:     cfg,
		regions: regions,
		logger:  log,
	}
}

// Collect runs one cycle over today's and tomorrow's race cards. Races past
// their off time stay in scope for the grace period so late price moves and
// in-play flags are captured.
func (c *Collector) Collect(ctx context.Context, now time.Time) (CycleOutcome, error) {
	started := time.Now()

	var cards []racingapi.Racecard
	for _, day := range []time.Time{now, now.AddDate(0, 0, 1)} {
		dayCards, err := c.racecardsFor(ctx, day)
		if err != nil {
			metrics.APIRequestErrorsTotal.Inc()
			return CycleOutcome{}, fmt.Errorf("failed to fetch racecards for %s: %w", day.Format("2006-01-02"), err)
		}
		cards = append(cards, dayCards...)
	}

	active, nearest, nearestCard := c.filterActive(cards, now)
	metrics.UpcomingRaces.Set(float64(len(active)))

	snapshots, horses, bookmakerSet := c.buildSnapshots(active, now)

	res, err := c.engine.Apply(ctx, snapshots)
	if err != nil {
		return CycleOutcome{}, fmt.Errorf("failed to apply snapshots: %w", err)
	}

	stats := models.CycleStatistics{
		FetchTimestamp: now.UTC(),
		RacesCount:     len(active),
		HorsesCount:    horses,
		OddsFetched:    len(snapshots),
		OddsNew:        res.New,
		OddsUpdated:    res.Updated,
		OddsSkipped:    res.Skipped,
		ErrorsCount:    res.Errors,
		BookmakerList:  sortedKeys(bookmakerSet),
		FetchDuration:  time.Since(started),
	}

	if c.stats != nil {
		if err := c.stats.Insert(ctx, &stats); err != nil {
			c.logger.WithError(err).Warn("failed to record cycle statistics")
		}
	}

	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Observe(stats.FetchDuration.Seconds())
	metrics.OddsWrittenTotal.WithLabelValues("new").Add(float64(res.New))
	metrics.OddsWrittenTotal.WithLabelValues("updated").Add(float64(res.Updated))
	metrics.OddsSkippedTotal.Add(float64(res.Skipped))

	c.logger.WithFields(logrus.Fields{
		"races":    stats.RacesCount,
		"horses":   stats.HorsesCount,
		"odds":     stats.OddsFetched,
		"new":      stats.OddsNew,
		"updated":  stats.OddsUpdated,
		"skipped":  stats.OddsSkipped,
		"errors":   stats.ErrorsCount,
		"duration": stats.FetchDuration.Round(time.Millisecond).String(),
	}).Info("collection cycle complete")

	outcome := CycleOutcome{Stats: stats, NearestRace: nearest}
	if nearestCard != nil {
		outcome.NearestRaceID = nearestCard.RaceID
		outcome.NearestCourse = nearestCard.Course
	}
	return outcome, nil
}

// racecardsFor fetches one day's race cards through the TTL cache. Odds
// embedded in a cached card go stale within the TTL, so the TTL bounds
// quote staleness, not correctness.
func (c *Collector) racecardsFor(ctx context.Context, day time.Time) ([]racingapi.Racecard, error) {
	key := day.Format("2006-01-02")
	if cached, ok := c.cache.Get(key); ok {
		return cached.([]racingapi.Racecard), nil
	}

	cards, err := c.source.FetchRacecards(ctx, day, c.regions)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, cards)
	return cards, nil
}

// filterActive keeps races inside the collection window and finds the
// earliest off time among them along with the race behind it
func (c *Collector) filterActive(cards []racingapi.Racecard, now time.Time) ([]racingapi.Racecard, *time.Time, *racingapi.Racecard) {
	grace := c.cfg.GracePeriod()
	var active []racingapi.Racecard
	var nearest *time.Time
	var nearestCard *racingapi.Racecard

	for _, card := range cards {
		off, ok := parseOffTime(card)
		if !ok {
			c.logger.WithField("race_id", card.RaceID).Debug("racecard missing usable off time")
			continue
		}
		if now.Sub(off) > grace {
			continue
		}

		// In-grace races stay in the interval decision: their negative
		// time-to-off keeps polling at the imminent tier until the grace
		// window closes.
		active = append(active, card)
		if nearest == nil || off.Before(*nearest) {
			t := off
			nearest = &t
			cc := card
			nearestCard = &cc
		}
	}
	return active, nearest, nearestCard
}

// buildSnapshots converts race cards into odds snapshots using a bounded
// worker pool
func (c *Collector) buildSnapshots(cards []racingapi.Racecard, now time.Time) ([]*models.OddsSnapshot, int, map[string]bool) {
	workers := c.cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	var (
		mu           sync.Mutex
		wg           sync.WaitGroup
		snapshots    []*models.OddsSnapshot
		horses       int
		bookmakerSet = make(map[string]bool)
	)

	sem := make(chan struct{}, workers)
	for i := range cards {
		card := &cards[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			raceSnaps := c.raceSnapshots(card, now)

			mu.Lock()
			snapshots = append(snapshots, raceSnaps...)
			horses += len(card.Runners)
			for _, s := range raceSnaps {
				bookmakerSet[s.BookmakerName] = true
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	return snapshots, horses, bookmakerSet
}

// raceSnapshots flattens one race card into per-bookmaker snapshots
func (c *Collector) raceSnapshots(card *racingapi.Racecard, now time.Time) []*models.OddsSnapshot {
	off, _ := parseOffTime(*card)

	var out []*models.OddsSnapshot
	for i := range card.Runners {
		runner := &card.Runners[i]
		for _, quote := range runner.Odds {
			bm := bookmakers.Lookup(quote.Bookmaker)

			odds := bookmakers.ParseDecimalOdds(quote.Decimal)
			if odds == nil {
				odds = bookmakers.ParseFractionalOdds(quote.Fractional)
			}

			var fractional *string
			if !bookmakers.IsSentinel(quote.Fractional) {
				f := quote.Fractional
				fractional = &f
			}

			s := &models.OddsSnapshot{
				RaceID:      card.RaceID,
				HorseID:     runner.HorseID,
				BookmakerID: bm.ID,

				RaceDate:  card.Date,
				RaceTime:  card.OffTime,
				OffDT:     off,
				Course:    card.Course,
				RaceName:  card.RaceName,
				RaceClass: card.RaceClass,
				RaceType:  card.RaceType,
				Distance:  card.Distance,
				Going:     card.Going,
				Runners:   len(card.Runners),

				HorseName:   runner.Horse,
				HorseNumber: atoiPtr(runner.Number),
				Jockey:      runner.Jockey,
				Trainer:     runner.Trainer,
				Draw:        atoiPtr(runner.Draw),
				Weight:      runner.WeightLbs,
				Age:         atoiPtr(runner.Age),
				Form:        runner.Form,

				BookmakerName: bm.Name,
				BookmakerType: bm.Type,
				MarketType:    "WIN",

				OddsDecimal:    odds,
				OddsFractional: fractional,
				MarketStatus:   "OPEN",
				InPlay:         off.Before(now) && !off.IsZero(),

				OddsTimestamp: now.UTC(),
			}
			out = append(out, s)
		}
	}
	return out
}

// parseOffTime extracts the race off datetime from a card. The pro feed
// sends off_dt in RFC3339 with or without a zone suffix.
func parseOffTime(card racingapi.Racecard) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, card.OffDT); err == nil {
			return t, true
		}
	}
	if card.Date != "" && card.OffTime != "" {
		if t, err := time.Parse("2006-01-02 15:04", card.Date+" "+card.OffTime); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func atoiPtr(s *string) *int {
	if s == nil {
		return nil
	}
	n, err := strconv.Atoi(*s)
	if err != nil {
		return nil
	}
	return &n
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
