package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordAnalysis("success")
	r.RecordAnalysis("success")
	r.RecordCache("hit")
	r.RecordProbability("AAA", 0.62)
	r.RecordLatency("fetch", 0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.analyses.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookup.WithLabelValues("hit")))
	assert.Equal(t, 0.62, testutil.ToFloat64(r.probability.WithLabelValues("AAA")))
}
