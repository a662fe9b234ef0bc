// Package metrics defines the prometheus collectors shared across the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Launch pipeline metrics
var (
	// LaunchesTotal tracks accepted launch events.
	LaunchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "launches_total",
			Help: "Total accepted launch events",
		},
	)

	// LaunchesRejectedTotal tracks launches denied by the per-client cooldown.
	LaunchesRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "launches_rejected_total",
			Help: "Total launches rejected by the cooldown limiter",
		},
	)

	// LaunchesSampledOut tracks accepted launches broadcast as count_update only.
	LaunchesSampledOut = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "launches_sampled_out_total",
			Help: "Total accepted launches suppressed from display by sampling",
		},
	)

	// LaunchRate exports the latest rate estimate.
	LaunchRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "launch_rate_per_second",
			Help: "Most recent launches-per-second estimate",
		},
	)
)

// Hub metrics
var (
	// HubConnectedClients tracks currently connected WebSocket clients.
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Currently connected WebSocket clients",
		},
	)

	// HubBroadcastsTotal tracks broadcast messages by type.
	HubBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Total broadcast fan-outs by message type",
		},
		[]string{"type"},
	)

	// HubSlowClientsEvicted tracks clients dropped because their send buffer filled.
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Total slow clients evicted during broadcast",
		},
	)
)

// Redis metrics (populated by the client hooks)
var (
	// RedisOpsTotal tracks total Redis operations by operation type and status.
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency in seconds.
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks Redis connection errors.
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// CircuitBreakerState reports the Redis circuit breaker state (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// CircuitBreakerStateChanges counts breaker transitions by target state.
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by new state",
		},
		[]string{"state"},
	)
)

// Ticker metrics
var (
	// TickerFailuresTotal counts periodic stats broadcast ticks that failed.
	TickerFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_ticker_failures_total",
			Help: "Total periodic stats ticks that errored or panicked",
		},
	)
)
