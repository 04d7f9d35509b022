package model

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func synthetic(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		a, b := rng.NormFloat64(), rng.NormFloat64()
		x[i] = []float64{100 + a, a * 0.01, 50 + 10*b, b}
		if a+0.3*rng.NormFloat64() > 0 {
			y[i] = 1
		}
	}
	return x, y
}

func TestClassifiersLearnSignal(t *testing.T) {
	x, y := synthetic(300, 1)
	for _, name := range []string{ShallowEnsembleA, ShallowEnsembleB} {
		t.Run(name, func(t *testing.T) {
			clf, err := New(name, DefaultParams())
			require.NoError(t, err)
			assert.Equal(t, name, clf.Name())

			m, err := clf.Fit(x, y)
			require.NoError(t, err)

			up := m.PredictProba([]float64{102, 0.02, 50, 0})
			down := m.PredictProba([]float64{98, -0.02, 50, 0})
			assert.Greater(t, up, 0.6)
			assert.Less(t, down, 0.4)
		})
	}
}

func TestClassifiersDeterministic(t *testing.T) {
	x, y := synthetic(200, 3)
	probe := []float64{100.5, 0.005, 55, 0.5}
	for _, name := range []string{ShallowEnsembleA, ShallowEnsembleB} {
		t.Run(name, func(t *testing.T) {
			clf, err := New(name, Params{Seed: 9, Subsample: 0.8})
			require.NoError(t, err)
			m1, err := clf.Fit(x, y)
			require.NoError(t, err)
			m2, err := clf.Fit(x, y)
			require.NoError(t, err)
			assert.Equal(t, m1.PredictProba(probe), m2.PredictProba(probe))
		})
	}
}

func TestClassifiersSingleClass(t *testing.T) {
	x, _ := synthetic(40, 5)
	for _, label := range []float64{0, 1} {
		y := make([]float64, len(x))
		for i := range y {
			y[i] = label
		}
		for _, name := range []string{ShallowEnsembleA, ShallowEnsembleB} {
			clf, err := New(name, DefaultParams())
			require.NoError(t, err)
			m, err := clf.Fit(x, y)
			require.NoError(t, err, name)

			p := m.PredictProba(x[0])
			assert.False(t, math.IsNaN(p), name)
			assert.GreaterOrEqual(t, p, 0.0, name)
			assert.LessOrEqual(t, p, 1.0, name)
			assert.InDelta(t, label, p, 0.01, name)
		}
	}
}

func TestProbabilityAlwaysInRange(t *testing.T) {
	x, y := synthetic(120, 11)
	for _, name := range []string{ShallowEnsembleA, ShallowEnsembleB} {
		clf, err := New(name, Params{Trees: 30, MaxDepth: 4, LearningRate: 0.5})
		require.NoError(t, err)
		m, err := clf.Fit(x, y)
		require.NoError(t, err)
		for _, row := range x {
			p := m.PredictProba(row)
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
		}
	}
}

func TestFitRejectsBadInput(t *testing.T) {
	clf := NewForest(DefaultParams())
	_, err := clf.Fit(nil, nil)
	assert.Error(t, err)
	_, err = clf.Fit([][]float64{{1, 2}}, []float64{1, 0})
	assert.Error(t, err)
	_, err = clf.Fit([][]float64{{1, math.NaN()}}, []float64{1})
	assert.Error(t, err)
}

func TestNewUnknown(t *testing.T) {
	_, err := New("xgboost", DefaultParams())
	assert.Error(t, err)
}

func TestClamp(t *testing.T) {
	p, ok := Clamp(1.2)
	assert.True(t, ok)
	assert.Equal(t, 1.0, p)
	p, ok = Clamp(-0.1)
	assert.True(t, ok)
	assert.Equal(t, 0.0, p)
	_, ok = Clamp(math.NaN())
	assert.False(t, ok)
}
