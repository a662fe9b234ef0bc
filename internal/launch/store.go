// Package launch implements the core of the broadcaster: the launch pipeline
// (cooldown limiting, counter increment, rate estimation, display sampling)
// on top of a pluggable store.
package launch

import (
	"context"
	"time"
)

// Store is the persistence port for the launch pipeline. The Redis
// implementation lives in internal/redis; MemoryStore backs tests.
// Every operation may fail with a transient store error; callers are expected
// to fail open (rate → 0.0, limiter → allow, counter read → 0).
type Store interface {
	// IncrementCounter atomically increments the global counter and returns
	// the new value.
	IncrementCounter(ctx context.Context) (int64, error)
	// Counter returns the current counter value (0 when unset).
	Counter(ctx context.Context) (int64, error)
	// RecordLaunch adds a launch timestamp to the rate window.
	RecordLaunch(ctx context.Context, at time.Time) error
	// CountLaunches counts launches with timestamps in [from, to].
	CountLaunches(ctx context.Context, from, to time.Time) (int64, error)
	// PruneLaunches drops timestamps older than the given horizon.
	PruneLaunches(ctx context.Context, before time.Time) error
	// TryCooldown places clientID into cooldown for ttl. Returns true when
	// acquired, false when the client is still cooling down. A denied attempt
	// must not extend the existing window.
	TryCooldown(ctx context.Context, clientID string, ttl time.Duration) (bool, error)
}
