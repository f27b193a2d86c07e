package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stream Pipeline Metrics
var (
	// SamplesEmitted counts samples emitted by sources, per stream class
	SamplesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_samples_emitted_total",
			Help: "Samples emitted by stream sources, by stream class",
		},
		[]string{"class"},
	)

	// SamplesPublished counts samples accepted onto the broadcast bus
	SamplesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telemetry_samples_published_total",
			Help: "Samples and batches accepted by the broadcaster",
		},
	)

	// SamplesEvicted counts drop-oldest evictions on the broadcast ring
	SamplesEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telemetry_samples_evicted_total",
			Help: "Entries evicted from the broadcast ring before all subscribers read them",
		},
	)

	// SubscriberGaps counts samples missed by lagging subscribers
	SubscriberGaps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telemetry_subscriber_gaps_total",
			Help: "Samples skipped by lagging subscribers across all sessions",
		},
	)

	// FramesDropped counts malformed inbound frames, per source
	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_frames_dropped_total",
			Help: "Malformed inbound frames dropped at the source",
		},
		[]string{"source"},
	)
)

// Session Metrics
var (
	// ActiveSessions tracks currently connected websocket clients
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "telemetry_active_sessions",
			Help: "Number of active websocket client sessions",
		},
	)

	// ControlCommands counts inbound control messages by outcome
	ControlCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_control_commands_total",
			Help: "Inbound control messages by outcome (applied/limited/invalid)",
		},
		[]string{"outcome"},
	)
)

// Feed Health Metrics
var (
	// FeedHealthy is 1 while a live source is connected and decoding
	FeedHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "telemetry_feed_healthy",
			Help: "Live feed health flag per source (1=healthy, 0=degraded)",
		},
		[]string{"source"},
	)

	// FeedReconnects counts reconnect attempts per live source
	FeedReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_feed_reconnects_total",
			Help: "Reconnect attempts per live source",
		},
		[]string{"source"},
	)
)

// -----------------------------------------------------------------------------
// Process-wide message counter
// -----------------------------------------------------------------------------

// msgCount backs the msg_rate field of the system metrics stream. It is a
// plain atomic (not only a prometheus counter) because the system source
// needs to read it back every cycle.
var msgCount atomic.Uint64

// CountMessage records one emitted sample on the process-wide counter.
func CountMessage(class string) {
	msgCount.Add(1)
	SamplesEmitted.WithLabelValues(class).Inc()
}

// MessageCount returns the cumulative emitted-sample count.
func MessageCount() uint64 {
	return msgCount.Load()
}
