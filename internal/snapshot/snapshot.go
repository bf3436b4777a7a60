// Package snapshot caches the latest stats of each run in redis so they can
// be served after the engine hosting the run is gone.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/playperu/pacer/internal/pacer"
)

// ErrMiss is returned by Get when nothing is cached for the run.
var ErrMiss = errors.New("snapshot not cached")

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func key(runID string) string {
	return "pacer:run:" + runID + ":stats"
}

// Put overwrites the run's snapshot and restarts its TTL.
func (c *Cache) Put(ctx context.Context, runID string, stats pacer.RunStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, key(runID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching stats for run %s: %w", runID, err)
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, runID string) (pacer.RunStats, error) {
	var stats pacer.RunStats
	data, err := c.rdb.Get(ctx, key(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return stats, ErrMiss
	}
	if err != nil {
		return stats, fmt.Errorf("reading stats for run %s: %w", runID, err)
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		return stats, fmt.Errorf("decoding stats for run %s: %w", runID, err)
	}
	return stats, nil
}

func (c *Cache) Delete(ctx context.Context, runID string) error {
	return c.rdb.Del(ctx, key(runID)).Err()
}

// Check pings redis; it satisfies health.Checker.
func (c *Cache) Check(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
