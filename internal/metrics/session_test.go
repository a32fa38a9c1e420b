// SPDX-License-Identifier: MIT

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSessionStateIsExclusive(t *testing.T) {
	SetSessionState("open")
	assert.Equal(t, 1.0, testutil.ToFloat64(SessionState.WithLabelValues("open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(SessionState.WithLabelValues("idle")))

	SetSessionState("reconnecting")
	assert.Equal(t, 0.0, testutil.ToFloat64(SessionState.WithLabelValues("open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(SessionState.WithLabelValues("reconnecting")))
}

func TestIncEventDroppedDefaultsReason(t *testing.T) {
	before := testutil.ToFloat64(EventsDroppedTotal.WithLabelValues("unknown"))
	IncEventDropped("")
	assert.Equal(t, before+1, testutil.ToFloat64(EventsDroppedTotal.WithLabelValues("unknown")))

	IncEventDropped("parse_error")
	assert.GreaterOrEqual(t, testutil.ToFloat64(EventsDroppedTotal.WithLabelValues("parse_error")), 1.0)
}

func TestSessionMetricsRegistered(t *testing.T) {
	// The state gauge must exist with one series per lifecycle state.
	SetSessionState("idle")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	state, ok := byName["assurance_session_state"]
	require.True(t, ok, "session state gauge not registered")
	assert.Equal(t, dto.MetricType_GAUGE, state.GetType())
	assert.Len(t, state.GetMetric(), 4)

	for _, name := range []string{
		"assurance_chunked_payloads_total",
		"assurance_chunks_emitted_total",
		"assurance_reconnect_attempts_total",
	} {
		mf, ok := byName[name]
		require.True(t, ok, "%s not registered", name)
		assert.Equal(t, dto.MetricType_COUNTER, mf.GetType())
	}
}
