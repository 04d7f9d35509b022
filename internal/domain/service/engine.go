package service

import "SignalDesk/internal/domain/models"

// Classifier trains a fresh model on every call; models are never shared.
type Classifier interface {
	Name() string
	Fit(x [][]float64, y []float64) (Model, error)
}

// Model scores a feature vector with a probability of the positive class.
type Model interface {
	PredictProba(x []float64) float64
}

// Advisor maps an analysis result and a user position to a recommendation.
type Advisor interface {
	Recommend(res models.AnalysisResult, pos models.UserPosition) models.Recommendation
}
