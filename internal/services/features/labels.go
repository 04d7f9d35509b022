package features

import (
	"SignalDesk/internal/domain/models"
)

// DefaultMinSamples is the smallest training set the model is trained on.
const DefaultMinSamples = 15

// BuildTrainingSet labels every filtered row but the last with
// close[idx+1] > close[idx] over the raw closes; the last row becomes the
// inference input. Fails with InsufficientData below minSamples labeled rows.
func BuildTrainingSet(symbol string, rows []models.FeatureRow, closes []float64, minSamples int) (models.TrainingSet, error) {
	if minSamples < 1 {
		minSamples = 1
	}
	if len(rows) == 0 {
		return models.TrainingSet{}, models.InsufficientData(symbol, 0, minSamples)
	}

	labeled := make([]models.LabeledRow, 0, len(rows)-1)
	for _, r := range rows[:len(rows)-1] {
		next := r.Index + 1
		if next >= len(closes) {
			continue
		}
		label := 0
		if closes[next] > closes[r.Index] {
			label = 1
		}
		labeled = append(labeled, models.LabeledRow{FeatureRow: r, Label: label})
	}
	if len(labeled) < minSamples {
		return models.TrainingSet{}, models.InsufficientData(symbol, len(labeled), minSamples)
	}
	return models.TrainingSet{Rows: labeled, Inference: rows[len(rows)-1]}, nil
}

// Positives counts rows labeled 1.
func Positives(ts models.TrainingSet) int {
	n := 0
	for _, r := range ts.Rows {
		n += r.Label
	}
	return n
}
