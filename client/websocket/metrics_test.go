package websocket

import (
	"testing"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()

	m, err := NewMetrics(reg)
	require.NoError(t, err, errors.ErrorStack(err))

	m.frameReceived("a", "data")
	m.frameReceived("a", "data")
	m.frameReceived("a", "pong")
	m.eventDispatched("a")
	m.controlFrameSent("a", OpSubscribe)
	m.sessionExited("a", ExitIdleTimeout)
	m.connectAttempted("a", nil)
	m.connectAttempted("a", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesReceived.WithLabelValues("a", "data")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.framesReceived.WithLabelValues("a", "pong")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsDispatched.WithLabelValues("a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.controlSent.WithLabelValues("a", "subscribe")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exits.WithLabelValues("a", "idle-timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connects.WithLabelValues("a", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connects.WithLabelValues("a", "error")))

	// Registering the same collectors twice must fail.
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestMetricsNil(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.frameReceived("a", "data")
		m.eventDispatched("a")
		m.controlFrameSent("a", OpPing)
		m.sessionExited("a", ExitCancelled)
		m.connectAttempted("a", nil)
	})
}
