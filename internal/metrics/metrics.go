package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scheduler Metrics
var (
	// TicksTotal counts scheduler passes by domain (media, directory, voice)
	TicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_ticks_total",
			Help: "Total scheduler ticks by domain",
		},
		[]string{"domain"},
	)

	// TickDuration tracks how long one scheduler pass takes
	TickDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_tick_duration_seconds",
			Help:    "Scheduler tick duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"domain"},
	)
)

// Media Source Metrics
var (
	// FetchesTotal counts per-link fetches by platform and outcome
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_fetches_total",
			Help: "Total media fetches by platform and outcome",
		},
		[]string{"platform", "outcome"},
	)

	// PostsDiscovered counts new posts returned by adapters
	PostsDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_posts_discovered_total",
			Help: "Total new posts discovered by platform",
		},
		[]string{"platform"},
	)

	// AdaptersDisabled tracks adapters disabled by a permanent source error (1=disabled)
	AdaptersDisabled = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_adapter_disabled",
			Help: "Whether an adapter is permanently disabled (1) or active (0)",
		},
		[]string{"platform"},
	)
)

// Delivery Metrics
var (
	// CardsDelivered counts notification cards handed to the messaging sink
	CardsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_cards_delivered_total",
			Help: "Total notification cards delivered by status",
		},
		[]string{"status"},
	)
)

// Directory Metrics
var (
	// DirectoryRefreshes counts directory refresh round trips by outcome
	DirectoryRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_refreshes_total",
			Help: "Total directory refreshes by outcome",
		},
		[]string{"outcome"},
	)

	// DirectoryServers tracks the number of servers in the cached snapshot
	DirectoryServers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "directory_servers_current",
			Help: "Number of servers in the cached directory snapshot",
		},
	)
)

// Voice Metrics
var (
	// VoiceConnectionsOpen tracks currently open voice control connections
	VoiceConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "voice_connections_open",
			Help: "Number of open voice control connections",
		},
	)

	// VoiceReconcileActions counts connection opens and closes by result
	VoiceReconcileActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voice_reconcile_actions_total",
			Help: "Total reconcile actions by action (open/close) and status",
		},
		[]string{"action", "status"},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)
)

// Redis Metrics
var (
	// RedisOpsTotal tracks total Redis operations by operation type and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisConnectionErrors tracks Redis connection errors
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)
)
