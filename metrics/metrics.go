package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch cycle metrics
var (
	FetchCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyphase_fetch_cycles_total",
			Help: "Total number of finished fetch cycles",
		},
		[]string{"trigger", "outcome"},
	)

	FetchCycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skyphase_fetch_cycle_duration_seconds",
			Help:    "Duration of fetch cycles, location resolution included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trigger"},
	)

	// StaleResultsTotal counts completions dropped because a newer request was issued
	StaleResultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skyphase_stale_results_total",
			Help: "Fetch results discarded because a newer request superseded them",
		},
	)
)

// Upstream metrics
var (
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyphase_upstream_requests_total",
			Help: "Requests sent to upstream services",
		},
		[]string{"upstream", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skyphase_upstream_request_duration_seconds",
			Help:    "Duration of upstream requests in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream"},
	)

	UpstreamCircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skyphase_upstream_circuit_state",
			Help: "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
		},
		[]string{"upstream"},
	)
)

var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skyphase_app_info",
			Help: "Application information (always 1)",
		},
		[]string{"version"},
	)

	AppStartTime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skyphase_app_start_time_seconds",
			Help: "Unix timestamp of when the application started",
		},
	)
)

// Websocket metrics
var (
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skyphase_websocket_clients",
			Help: "Number of connected websocket clients",
		},
	)

	WebsocketDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skyphase_websocket_dropped_clients_total",
			Help: "Websocket clients disconnected because they could not keep up",
		},
	)
)

func init() {
	AppStartTime.SetToCurrentTime()
}

func SetVersion(version string) {
	AppInfo.WithLabelValues(version).Set(1)
}

// RecordFetchCycle records a finished fetch cycle
func RecordFetchCycle(trigger, outcome string, duration time.Duration) {
	FetchCyclesTotal.WithLabelValues(trigger, outcome).Inc()
	FetchCycleDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// RecordUpstreamRequest records one logical upstream request
func RecordUpstreamRequest(upstream, status string, duration time.Duration) {
	UpstreamRequestsTotal.WithLabelValues(upstream, status).Inc()
	UpstreamRequestDuration.WithLabelValues(upstream).Observe(duration.Seconds())
}
