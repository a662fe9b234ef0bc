package launch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/jonboulle/clockwork"
	"github.com/siphyshu/ascii-patakhe/internal/metrics"
)

// Outcome describes what happened to one launch request.
type Outcome struct {
	// Allowed is false when the client was rejected by the cooldown limiter.
	Allowed bool
	// Count is the counter value after this launch.
	Count int64
	// Rate is the launch rate estimate at the time of this launch.
	Rate float64
	// SampleRate is the display sampling divisor derived from Rate.
	SampleRate int
	// Display reports whether this launch carries a firework payload.
	Display bool
	// X is the horizontal display position in [0.1, 0.9], set when Display.
	X float64
}

// Service runs the launch pipeline: cooldown check, counter increment,
// timestamp recording, rate estimation, and the sampling decision.
// It is the only component that requests counter increments.
type Service struct {
	store     Store
	limiter   *CooldownLimiter
	estimator *RateEstimator
	clock     clockwork.Clock
	randFloat func() float64
}

func NewService(store Store, limiter *CooldownLimiter, estimator *RateEstimator, clock clockwork.Clock) *Service {
	return &Service{
		store:     store,
		limiter:   limiter,
		estimator: estimator,
		clock:     clock,
		randFloat: rand.Float64,
	}
}

// Launch processes one launch request from the given client. A non-nil error
// means the counter could not be incremented; the caller should log it and
// keep the session alive.
func (s *Service) Launch(ctx context.Context, clientID string) (Outcome, error) {
	if !s.limiter.TryAcquire(ctx, clientID) {
		metrics.LaunchesRejectedTotal.Inc()
		return Outcome{Allowed: false}, nil
	}

	count, err := s.store.IncrementCounter(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("launch dropped: %w", err)
	}
	metrics.LaunchesTotal.Inc()

	if err := s.store.RecordLaunch(ctx, s.clock.Now()); err != nil {
		// The estimator is approximate; a missing timestamp only skews the
		// rate slightly.
		slog.Warn("Failed to record launch timestamp", "error", err)
	}

	rate := s.estimator.Estimate(ctx)
	divisor := SampleDivisor(rate)
	display := ShouldDisplay(count, divisor)

	outcome := Outcome{
		Allowed:    true,
		Count:      count,
		Rate:       rate,
		SampleRate: divisor,
		Display:    display,
	}
	if display {
		outcome.X = 0.1 + s.randFloat()*0.8
	} else {
		metrics.LaunchesSampledOut.Inc()
	}
	return outcome, nil
}

// Stats returns the current counter value and rate estimate, falling back to
// zero on store failure.
func (s *Service) Stats(ctx context.Context) (total int64, rate float64) {
	total, err := s.store.Counter(ctx)
	if err != nil {
		slog.Warn("Failed to read counter, reporting 0", "error", err)
		total = 0
	}
	return total, s.estimator.Estimate(ctx)
}
