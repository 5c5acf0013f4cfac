package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_IsolatedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.SlotsProcessed.Inc()
	m.SlotsProcessed.Inc()
	m.TransactionsSkipped.WithLabelValues("malformed").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SlotsProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransactionsSkipped.WithLabelValues("malformed")))

	// A second registry accepts the same metric names.
	other := NewMetrics("test", prometheus.NewRegistry())
	assert.Equal(t, 0.0, testutil.ToFloat64(other.SlotsProcessed))
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.SlotsAbsent)
	RecordAbsentSlot()
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.SlotsAbsent))

	RecordSlot(308803801, 0.25)
	assert.Equal(t, 308803801.0, testutil.ToFloat64(DefaultMetrics.CurrentSlot))
}
