package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveGeocode("nominatim", "ok", 120*time.Millisecond)
	m.ObserveGeocode("nominatim", "ok", 80*time.Millisecond)
	m.ObserveGeocode("google", "error", time.Second)
	m.IncRecordsCreated("check-in")
	m.AddRecordsDeleted(3)
	m.AddRecordsDeleted(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GeocodeAttempts.WithLabelValues("nominatim", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeAttempts.WithLabelValues("google", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsCreated.WithLabelValues("check-in")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsDeleted))
}

func TestMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveGeocode("x", "ok", time.Millisecond)
		m.ObserveQuery("SELECT", "ok", time.Millisecond)
		m.IncRecordsCreated("check-in")
		m.AddRecordsDeleted(1)
	})
}
