package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keys. The counter and the timestamp window are shared across all
// server instances pointing at the same Redis.
const (
	counterKey   = "patakha:counter"
	rateKey      = "patakha:rate"
	cooldownKeyF = "patakha:ratelimit:%s"
)

// LaunchStore persists the global launch counter, the trailing window of
// launch timestamps, and the per-client cooldown keys.
type LaunchStore struct {
	rdb *redis.Client
}

func NewLaunchStore(rdb *redis.Client) *LaunchStore {
	return &LaunchStore{rdb: rdb}
}

// Init creates the counter key if it does not exist yet, so a fresh
// deployment starts at zero instead of a missing key.
func (s *LaunchStore) Init(ctx context.Context) error {
	if err := s.rdb.SetNX(ctx, counterKey, 0, 0).Err(); err != nil {
		return fmt.Errorf("failed to initialize counter: %w", err)
	}
	return nil
}

// IncrementCounter atomically increments the global counter and returns the
// new value.
func (s *LaunchStore) IncrementCounter(ctx context.Context) (int64, error) {
	n, err := s.rdb.Incr(ctx, counterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return n, nil
}

// Counter returns the current counter value, or 0 when the key is absent.
func (s *LaunchStore) Counter(ctx context.Context) (int64, error) {
	n, err := s.rdb.Get(ctx, counterKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}
	return n, nil
}

// RecordLaunch adds a launch timestamp to the rate window. The timestamp is
// both score and member, so every launch is a distinct entry.
func (s *LaunchStore) RecordLaunch(ctx context.Context, at time.Time) error {
	ts := unixSeconds(at)
	err := s.rdb.ZAdd(ctx, rateKey, redis.Z{
		Score:  ts,
		Member: strconv.FormatFloat(ts, 'f', 6, 64),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to record launch timestamp: %w", err)
	}
	return nil
}

// CountLaunches counts launches with timestamps in [from, to].
func (s *LaunchStore) CountLaunches(ctx context.Context, from, to time.Time) (int64, error) {
	count, err := s.rdb.ZCount(ctx, rateKey,
		formatScore(unixSeconds(from)),
		formatScore(unixSeconds(to)),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count launches: %w", err)
	}
	return count, nil
}

// PruneLaunches drops timestamps older than the given horizon.
func (s *LaunchStore) PruneLaunches(ctx context.Context, before time.Time) error {
	err := s.rdb.ZRemRangeByScore(ctx, rateKey, "0", formatScore(unixSeconds(before))).Err()
	if err != nil {
		return fmt.Errorf("failed to prune launches: %w", err)
	}
	return nil
}

// TryCooldown attempts to place the client into cooldown. Returns true when
// the cooldown key was set (client may launch), false when the client is
// still inside an earlier cooldown window. A denied attempt does not touch
// the existing key.
func (s *LaunchStore) TryCooldown(ctx context.Context, clientID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf(cooldownKeyF, clientID)
	acquired, err := s.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set cooldown for %s: %w", clientID, err)
	}
	return acquired, nil
}

// Ping verifies the Redis connection for health checks.
func (s *LaunchStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
