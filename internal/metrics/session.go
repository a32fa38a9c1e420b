// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the assurance session
// subsystem.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assurance_events_sent_total",
		Help: "Total number of events written to the transport, by event type",
	}, []string{"type"})

	EventsReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assurance_events_received_total",
		Help: "Total number of events received from the transport, by event type",
	}, []string{"type"})

	EventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assurance_events_dropped_total",
		Help: "Total number of inbound frames dropped, by reason",
	}, []string{"reason"})

	ChunkedPayloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assurance_chunked_payloads_total",
		Help: "Total number of oversized payloads split into chunk groups",
	})

	ChunksEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assurance_chunks_emitted_total",
		Help: "Total number of chunk events emitted by the chunker",
	})

	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assurance_reconnect_attempts_total",
		Help: "Total number of scheduled reconnect attempts",
	})

	SessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "assurance_session_state",
		Help: "Current session state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "assurance_queue_depth",
		Help: "Current number of events waiting in a queue worker",
	}, []string{"queue"})

	WorkItemFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assurance_work_item_failures_total",
		Help: "Total number of work items that panicked during processing, by queue",
	}, []string{"queue"})
)

// SetSessionState flips the state gauge so exactly one state reads 1.
func SetSessionState(state string) {
	for _, s := range []string{"idle", "connecting", "open", "reconnecting"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		SessionState.WithLabelValues(s).Set(v)
	}
}

// IncEventDropped records a dropped inbound frame with a concrete reason.
func IncEventDropped(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	EventsDroppedTotal.WithLabelValues(reason).Inc()
}
