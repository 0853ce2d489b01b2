// Package metrics exposes Prometheus collectors for the HTTP API and the
// live performance session coordinator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guitarbuddy_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Live sessions
	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "guitarbuddy_live_connections",
			Help: "Current number of authenticated live WebSocket connections",
		},
	)

	LiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "guitarbuddy_live_sessions",
			Help: "Current number of active live performance sessions",
		},
	)

	LiveCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guitarbuddy_live_commands_total",
			Help: "Total number of accepted live session commands",
		},
		[]string{"type"},
	)

	LiveFramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guitarbuddy_live_frames_dropped_total",
			Help: "Total number of inbound frames dropped before dispatch",
		},
		[]string{"reason"}, // "malformed", "rate_limited", "binary"
	)

	LiveMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guitarbuddy_live_messages_dropped_total",
			Help: "Total number of outbound messages dropped for closed or saturated connections",
		},
	)

	LiveSessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guitarbuddy_live_sessions_ended_total",
			Help: "Total number of live sessions ended, by reason",
		},
		[]string{"reason"}, // "host_ended", "host_disconnected", "host_moved", "idle", "shutdown"
	)

	LivePersistErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "guitarbuddy_live_persist_errors_total",
			Help: "Total number of failed or skipped best-effort session snapshot writes",
		},
	)
)
