package models

import (
	"math"
	"time"
)

// FeatureSet selects the columns fed to the classifier.
type FeatureSet string

const (
	FeatureSetMinimal  FeatureSet = "minimal"
	FeatureSetExtended FeatureSet = "extended"
)

// Columns returns the ordered feature names of the set.
func (fs FeatureSet) Columns() []string {
	if fs == FeatureSetMinimal {
		return []string{"close", "return"}
	}
	return []string{"close", "return", "rsi", "volume_change"}
}

// Valid reports whether fs is a known feature set.
func (fs FeatureSet) Valid() bool {
	return fs == FeatureSetMinimal || fs == FeatureSetExtended
}

// FeatureRow holds the derived features of one bar. Undefined values are NaN.
type FeatureRow struct {
	Index        int       `json:"index"`
	Date         time.Time `json:"date"`
	Close        float64   `json:"close"`
	Return       float64   `json:"return"`
	VolumeChange float64   `json:"volume_change"`
	RSI          float64   `json:"rsi"`
}

// Vector extracts the feature vector for fs in Columns order.
func (r FeatureRow) Vector(fs FeatureSet) []float64 {
	if fs == FeatureSetMinimal {
		return []float64{r.Close, r.Return}
	}
	return []float64{r.Close, r.Return, r.RSI, r.VolumeChange}
}

// Complete reports whether every feature used by fs is defined.
func (r FeatureRow) Complete(fs FeatureSet) bool {
	for _, v := range r.Vector(fs) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// LabeledRow is a training sample: features plus "next bar closes higher".
type LabeledRow struct {
	FeatureRow
	Label int `json:"label"`
}

// TrainingSet is the labeled history plus the most recent, unlabeled row.
type TrainingSet struct {
	Rows      []LabeledRow
	Inference FeatureRow
}

// Matrix returns the design matrix and targets for fs.
func (t TrainingSet) Matrix(fs FeatureSet) ([][]float64, []float64) {
	x := make([][]float64, len(t.Rows))
	y := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		x[i] = r.Vector(fs)
		y[i] = float64(r.Label)
	}
	return x, y
}

// Band is the trailing support/resistance range.
type Band struct {
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
	Window     int     `json:"window"`
}

// AnalysisResult is the cacheable output of one pipeline run.
type AnalysisResult struct {
	Symbol            string     `json:"symbol"`
	DisplayName       string     `json:"display_name"`
	CurrentPrice      float64    `json:"current_price"`
	Support           float64    `json:"support"`
	Resistance        float64    `json:"resistance"`
	ProbabilityOfRise float64    `json:"probability_of_rise"`
	AsOf              time.Time  `json:"as_of"`
	PredictedFor      time.Time  `json:"predicted_for"`
	FeatureSet        FeatureSet `json:"feature_set"`
	Classifier        string     `json:"classifier"`
	TrainingRows      int        `json:"training_rows"`
	ComputedAt        time.Time  `json:"computed_at"`
}

// Band returns the support/resistance pair of the result.
func (r AnalysisResult) Band() Band {
	return Band{Support: r.Support, Resistance: r.Resistance}
}

// UserPosition is the caller's holding; CostBasis 0 means no position.
type UserPosition struct {
	CostBasis float64 `json:"cost_basis"`
}

// HasPosition reports whether a cost basis was supplied.
func (p UserPosition) HasPosition() bool { return p.CostBasis > 0 }

// Analysis is what the engine hands to the presentation layer.
type Analysis struct {
	Result         AnalysisResult `json:"result"`
	Recommendation Recommendation `json:"recommendation"`
	Cached         bool           `json:"cached"`
}
