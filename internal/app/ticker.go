// Package app holds the long-lived background tasks of the server.
package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/siphyshu/ascii-patakhe/internal/domain"
	"github.com/siphyshu/ascii-patakhe/internal/metrics"
)

const defaultTickInterval = 2 * time.Second

// Registry is the slice of the hub the ticker needs.
type Registry interface {
	OnlineCount() int
	Broadcast(messageType string, data []byte)
}

// StatsSource provides the aggregate counter and rate values.
type StatsSource interface {
	Stats(ctx context.Context) (total int64, rate float64)
}

// StatsTicker broadcasts aggregate stats to all connections on a fixed
// cadence for the lifetime of the process. Ticks with no clients online are
// skipped; a failing tick is logged and the loop keeps running.
type StatsTicker struct {
	stats    StatsSource
	registry Registry
	clock    clockwork.Clock
	interval time.Duration
}

func NewStatsTicker(stats StatsSource, registry Registry, clock clockwork.Clock) *StatsTicker {
	return &StatsTicker{
		stats:    stats,
		registry: registry,
		clock:    clock,
		interval: defaultTickInterval,
	}
}

// Run starts the periodic broadcast loop. It blocks until ctx is cancelled.
func (t *StatsTicker) Run(ctx context.Context) {
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			t.tick(ctx)
		}
	}
}

func (t *StatsTicker) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Stats tick panic recovered", "panic", r)
			metrics.TickerFailuresTotal.Inc()
		}
	}()

	online := t.registry.OnlineCount()
	if online <= 0 {
		return
	}

	total, rate := t.stats.Stats(ctx)

	data, err := json.Marshal(domain.NewStatsMessage(total, rate, online))
	if err != nil {
		slog.Error("Failed to marshal stats message", "error", err)
		metrics.TickerFailuresTotal.Inc()
		return
	}

	t.registry.Broadcast(domain.TypeStats, data)
}
