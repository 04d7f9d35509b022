package features

import (
	"errors"
	"testing"

	"SignalDesk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTrainingSet(t *testing.T) {
	closes := []float64{10, 11, 10, 12, 12, 13}
	s := seriesFromCloses(closes, 100)
	rows := DropIncomplete(Compute(s, DefaultConfig()), models.FeatureSetMinimal)

	ts, err := BuildTrainingSet("TEST", rows, s.Closes(), 3)
	require.NoError(t, err)

	// rows 1..5 survive; 1..4 are labeled, 5 is the inference row.
	require.Len(t, ts.Rows, 4)
	got := make([]int, len(ts.Rows))
	for i, r := range ts.Rows {
		got[i] = r.Label
	}
	assert.Equal(t, []int{0, 1, 0, 1}, got)
	assert.Equal(t, 5, ts.Inference.Index)
	assert.Equal(t, 2, Positives(ts))
}

func TestBuildTrainingSetInsufficient(t *testing.T) {
	s := seriesFromCloses(rising(10, 100, 110), 1000)
	rows := DropIncomplete(Compute(s, DefaultConfig()), models.FeatureSetExtended)

	_, err := BuildTrainingSet("TEST", rows, s.Closes(), DefaultMinSamples)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientData))

	var ae *models.AnalysisError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 0, ae.Rows)
	assert.Equal(t, DefaultMinSamples, ae.Required)
}

func TestBuildTrainingSetExactMinimum(t *testing.T) {
	s := seriesFromCloses(rising(30, 100, 130), 1000)
	rows := DropIncomplete(Compute(s, DefaultConfig()), models.FeatureSetExtended)

	ts, err := BuildTrainingSet("TEST", rows, s.Closes(), DefaultMinSamples)
	require.NoError(t, err)
	assert.Len(t, ts.Rows, 15)
	assert.Equal(t, 29, ts.Inference.Index)
	for _, r := range ts.Rows {
		assert.Equal(t, 1, r.Label)
	}
}
