package launch

import (
	"context"
	"log/slog"
	"time"
)

// CooldownLimiter enforces a minimum spacing between launches per client
// identity using an expiring store key. It is a token bucket of size one:
// a denied attempt has no side effect and does not extend the cooldown.
type CooldownLimiter struct {
	store Store
	ttl   time.Duration
}

func NewCooldownLimiter(store Store, ttl time.Duration) *CooldownLimiter {
	return &CooldownLimiter{store: store, ttl: ttl}
}

// TryAcquire reports whether clientID may launch now, starting a new cooldown
// window when it may. On store failure it fails open: availability is
// preferred over strict fairness.
func (l *CooldownLimiter) TryAcquire(ctx context.Context, clientID string) bool {
	acquired, err := l.store.TryCooldown(ctx, clientID, l.ttl)
	if err != nil {
		slog.Warn("Cooldown check failed, allowing launch", "client_ip", clientID, "error", err)
		return true
	}
	return acquired
}
