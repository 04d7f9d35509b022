package repository

// Metrics records engine-level observations.
type Metrics interface {
	RecordAnalysis(outcome string)
	RecordCache(result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordProbability(symbol string, p float64)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) RecordAnalysis(string)             {}
func (NopMetrics) RecordCache(string)                {}
func (NopMetrics) RecordError(string)                {}
func (NopMetrics) RecordLatency(string, float64)     {}
func (NopMetrics) RecordProbability(string, float64) {}
