package launch

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestCooldownLimiter_EnforcesSpacing(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := NewMemoryStore(clock)
	limiter := NewCooldownLimiter(store, 300*time.Millisecond)
	ctx := context.Background()

	assert.True(t, limiter.TryAcquire(ctx, "203.0.113.7"))
	assert.False(t, limiter.TryAcquire(ctx, "203.0.113.7"))

	// A different client is unaffected.
	assert.True(t, limiter.TryAcquire(ctx, "203.0.113.8"))

	// The denied attempt must not have extended the window.
	clock.Advance(301 * time.Millisecond)
	assert.True(t, limiter.TryAcquire(ctx, "203.0.113.7"))
}

func TestCooldownLimiter_StoreFailureFailsOpen(t *testing.T) {
	limiter := NewCooldownLimiter(failingStore{}, 300*time.Millisecond)

	assert.True(t, limiter.TryAcquire(context.Background(), "203.0.113.7"))
}
