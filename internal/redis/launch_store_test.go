package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore connects to the Redis named by REDIS_URL and flushes it. Tests
// are skipped in short mode or when no Redis is available.
func testStore(t *testing.T) *LaunchStore {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping Redis integration test")
	}

	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)

	rdb := goredis.NewClient(opts)
	t.Cleanup(func() { rdb.Close() })

	require.NoError(t, rdb.FlushAll(context.Background()).Err())

	return NewLaunchStore(rdb)
}

func TestLaunchStore_Counter(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	// Absent key reads as zero.
	n, err := store.Counter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.NoError(t, store.Init(ctx))

	n, err = store.IncrementCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.IncrementCounter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = store.Counter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestLaunchStore_InitDoesNotResetCounter(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Init(ctx))
	_, err := store.IncrementCounter(ctx)
	require.NoError(t, err)

	// A second instance booting must not clobber the running counter.
	require.NoError(t, store.Init(ctx))

	n, err := store.Counter(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLaunchStore_RateWindow(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := range 5 {
		require.NoError(t, store.RecordLaunch(ctx, now.Add(-time.Duration(i)*10*time.Second)))
	}

	// Entries at now, -10s, -20s, -30s fall inside a 30 second window.
	count, err := store.CountLaunches(ctx, now.Add(-30*time.Second), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	require.NoError(t, store.PruneLaunches(ctx, now.Add(-15*time.Second)))

	count, err = store.CountLaunches(ctx, now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestLaunchStore_SimultaneousLaunchesAreDistinct(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	at := time.Now()

	// Identical timestamps collapse to one sorted-set member; nanosecond
	// resolution keeps real launches apart, so only exact duplicates merge.
	require.NoError(t, store.RecordLaunch(ctx, at))
	require.NoError(t, store.RecordLaunch(ctx, at.Add(time.Microsecond)))

	count, err := store.CountLaunches(ctx, at.Add(-time.Second), at.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestLaunchStore_TryCooldown(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	ok, err := store.TryCooldown(ctx, "203.0.113.7", 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TryCooldown(ctx, "203.0.113.7", 200*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)

	// Another client is independent.
	ok, err = store.TryCooldown(ctx, "203.0.113.8", 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(250 * time.Millisecond)

	ok, err = store.TryCooldown(ctx, "203.0.113.7", 200*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLaunchStore_Ping(t *testing.T) {
	store := testStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
