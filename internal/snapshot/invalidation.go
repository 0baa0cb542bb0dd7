package snapshot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/darkhorses-odds/internal/config"
)

// InvalidationEvent is published after a cycle writes odds rows so
// downstream caches can drop stale entries for the affected races
type InvalidationEvent struct {
	RaceIDs   []string  `json:"race_ids"`
	Timestamp time.Time `json:"timestamp"`
}

// Invalidator publishes cache invalidation events to a Redis channel
type Invalidator struct {
	client  *redis.Client
	channel string
	logger  *logrus.Entry
}

// NewInvalidator creates an invalidation publisher. Returns nil when no
// Redis address is configured, which disables publishing.
func NewInvalidator(cfg *config.RedisConfig, log *logrus.Entry) *Invalidator {
	if cfg == nil || cfg.Address == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Invalidator{
		client:  client,
		channel: cfg.InvalidationChannel,
		logger:  log,
	}
}

// Publish sends an invalidation event for the given races. Publish failures
// are logged and swallowed; invalidation is advisory and must never fail a
// write cycle.
func (i *Invalidator) Publish(ctx context.Context, raceIDs []string) {
	if i == nil || len(raceIDs) == 0 {
		return
	}

	event := InvalidationEvent{RaceIDs: raceIDs, Timestamp: time.Now().UTC()}
	payload, err := json.Marshal(event)
	if err != nil {
		i.logger.WithError(err).Warn("failed to marshal invalidation event")
		return
	}

	if err := i.client.Publish(ctx, i.channel, payload).Err(); err != nil {
		i.logger.WithError(err).Warn("failed to publish invalidation event")
		return
	}

	i.logger.WithField("races", len(raceIDs)).Debug("published cache invalidation")
}

// Close releases the Redis connection
func (i *Invalidator) Close() error {
	if i == nil {
		return nil
	}
	return i.client.Close()
}
