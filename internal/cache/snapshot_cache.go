// Package cache keeps the latest per-source snapshots and the last
// ranked comparison result in Redis for the read-only API. The cache is
// advisory: every operation degrades to a miss or a logged warning, and
// the pipeline never depends on it.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/skinmarket/arbiter/internal/models"
)

const (
	snapshotPrefix = "arbiter:snapshot:"
	resultsKey     = "arbiter:results:latest"
)

// ResultsEntry is the cached outcome of one comparison run. Candidates
// may legitimately be empty: a recorded run with no opportunities is
// distinct from no recorded run at all.
type ResultsEntry struct {
	RunID      string                      `json:"run_id"`
	MinProfit  string                      `json:"min_profit"`
	Candidates []models.ArbitrageCandidate `json:"candidates"`
	CachedAt   time.Time                   `json:"cached_at"`
}

type SnapshotCache struct {
	redis *redis.Client
	ttl   time.Duration
	log   *logrus.Logger
}

func NewSnapshotCache(redisClient *redis.Client, ttl time.Duration, log *logrus.Logger) *SnapshotCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SnapshotCache{redis: redisClient, ttl: ttl, log: log}
}

// SetSnapshot stores the latest snapshot of a source.
func (c *SnapshotCache) SetSnapshot(ctx context.Context, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, snapshotPrefix+snap.Source, data, c.ttl).Err()
}

// GetSnapshot retrieves the cached snapshot of a source, reporting a
// miss for absent keys, Redis errors and undecodable entries alike.
func (c *SnapshotCache) GetSnapshot(ctx context.Context, source string) (models.Snapshot, bool) {
	data, err := c.redis.Get(ctx, snapshotPrefix+source).Result()
	if err == redis.Nil {
		return models.Snapshot{}, false
	}
	if err != nil {
		c.log.WithError(err).WithField("source", source).Warn("Snapshot cache read failed")
		return models.Snapshot{}, false
	}

	var snap models.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		c.log.WithError(err).WithField("source", source).Warn("Snapshot cache entry undecodable")
		return models.Snapshot{}, false
	}
	return snap, true
}

// SetResults records the ranked outcome of a comparison run.
func (c *SnapshotCache) SetResults(ctx context.Context, entry ResultsEntry) error {
	entry.CachedAt = time.Now().UTC()
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, resultsKey, data, c.ttl).Err()
}

// GetResults retrieves the last recorded comparison run.
func (c *SnapshotCache) GetResults(ctx context.Context) (ResultsEntry, bool) {
	data, err := c.redis.Get(ctx, resultsKey).Result()
	if err == redis.Nil {
		return ResultsEntry{}, false
	}
	if err != nil {
		c.log.WithError(err).Warn("Results cache read failed")
		return ResultsEntry{}, false
	}

	var entry ResultsEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		c.log.WithError(err).Warn("Results cache entry undecodable")
		return ResultsEntry{}, false
	}
	return entry, true
}
