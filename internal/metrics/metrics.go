// Package metrics exposes prometheus collectors for the realtime chat core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway metrics
	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loopin_chat_live_connections",
			Help: "Currently open websocket sessions",
		},
	)

	FramesIn = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loopin_chat_frames_in_total",
			Help: "Inbound frames by type",
		},
		[]string{"type"},
	)

	FrameRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loopin_chat_frame_rejections_total",
			Help: "Frames rejected at the gateway",
		},
		[]string{"code"},
	)

	BroadcastDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loopin_chat_broadcast_deliveries_total",
			Help: "Payloads delivered to live sessions",
		},
	)

	SessionEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loopin_chat_session_evictions_total",
			Help: "Sessions evicted after a failed write",
		},
	)

	// Pipeline metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loopin_chat_events_published_total",
			Help: "Events published to the bus by topic",
		},
		[]string{"topic"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loopin_chat_events_consumed_total",
			Help: "Events consumed from the bus by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)

	DuplicatesSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loopin_chat_duplicates_suppressed_total",
			Help: "Message deliveries collapsed by the idempotent upsert",
		},
	)

	// AI metrics
	ProviderAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loopin_chat_ai_provider_attempts_total",
			Help: "Model invocations by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderFailovers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loopin_chat_ai_failovers_total",
			Help: "Times the secondary provider was engaged",
		},
	)
)
