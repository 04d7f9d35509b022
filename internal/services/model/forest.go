package model

import (
	"fmt"
	"math"
	"math/rand"

	domsvc "SignalDesk/internal/domain/service"
)

// Forest is a bagged ensemble of shallow classification trees.
type Forest struct {
	params Params
}

// NewForest builds the shallowEnsembleA classifier.
func NewForest(p Params) *Forest { return &Forest{params: p.withDefaults()} }

func (f *Forest) Name() string { return ShallowEnsembleA }

// Fit grows Trees trees on bootstrap samples, sampling sqrt(d) features per split.
// Leaves hold the positive-class frequency of their rows.
func (f *Forest) Fit(x [][]float64, y []float64) (domsvc.Model, error) {
	if err := checkInput(x, y); err != nil {
		return nil, err
	}
	p := f.params
	rng := rand.New(rand.NewSource(p.Seed))
	maxFeatures := int(math.Max(1, math.Round(math.Sqrt(float64(len(x[0]))))))

	trees := make([]*node, 0, p.Trees)
	n := len(x)
	for t := 0; t < p.Trees; t++ {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.Intn(n)
		}
		trees = append(trees, growTree(x, y, sample, 0, treeParams{
			maxDepth:    p.MaxDepth,
			minLeaf:     p.MinLeaf,
			maxFeatures: maxFeatures,
			rng:         rng,
			leafValue:   func(idx []int) float64 { return meanOf(y, idx) },
		}))
	}
	return &forestModel{trees: trees}, nil
}

type forestModel struct {
	trees []*node
}

func (m *forestModel) PredictProba(x []float64) float64 {
	if len(m.trees) == 0 {
		return math.NaN()
	}
	var s float64
	for _, t := range m.trees {
		s += t.predict(x)
	}
	return s / float64(len(m.trees))
}

func checkInput(x [][]float64, y []float64) error {
	if len(x) == 0 {
		return fmt.Errorf("model: empty training set")
	}
	if len(x) != len(y) {
		return fmt.Errorf("model: %d rows but %d labels", len(x), len(y))
	}
	d := len(x[0])
	if d == 0 {
		return fmt.Errorf("model: no features")
	}
	for i, row := range x {
		if len(row) != d {
			return fmt.Errorf("model: row %d has %d features, want %d", i, len(row), d)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("model: row %d has a non-finite feature", i)
			}
		}
	}
	return nil
}

var _ domsvc.Classifier = (*Forest)(nil)
