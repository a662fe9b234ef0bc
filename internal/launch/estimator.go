package launch

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/siphyshu/ascii-patakhe/internal/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	// countWindow is the trailing window the rate is computed over.
	countWindow = 30 * time.Second
	// pruneHorizon is wider than the count window so estimates stay stable
	// right after a prune.
	pruneHorizon = 60 * time.Second
)

// RateEstimator derives a launches-per-second figure from the trailing window
// of timestamps in the store. Concurrent estimates are coalesced; under a
// burst of launches every caller shares one store round-trip.
type RateEstimator struct {
	store Store
	clock clockwork.Clock
	group singleflight.Group
}

func NewRateEstimator(store Store, clock clockwork.Clock) *RateEstimator {
	return &RateEstimator{store: store, clock: clock}
}

// Estimate returns the current launch rate rounded to one decimal place.
// On store failure it returns 0.0: a broken store must look calm, not block
// or crash the caller.
func (e *RateEstimator) Estimate(ctx context.Context) float64 {
	rate, _, _ := e.group.Do("rate", func() (any, error) {
		return e.estimate(ctx), nil
	})
	return rate.(float64)
}

func (e *RateEstimator) estimate(ctx context.Context) float64 {
	now := e.clock.Now()

	count, err := e.store.CountLaunches(ctx, now.Add(-countWindow), now)
	if err != nil {
		slog.Warn("Rate estimate failed, assuming calm", "error", err)
		return 0.0
	}

	// Opportunistic prune; a failure here does not affect the estimate.
	if err := e.store.PruneLaunches(ctx, now.Add(-pruneHorizon)); err != nil {
		slog.Debug("Failed to prune launch window", "error", err)
	}

	rate := math.Round(float64(count)/countWindow.Seconds()*10) / 10
	metrics.LaunchRate.Set(rate)
	return rate
}
