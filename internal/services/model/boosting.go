package model

import (
	"math"
	"math/rand"

	domsvc "SignalDesk/internal/domain/service"

	"github.com/montanaflynn/stats"
)

const probEps = 1e-6

// Booster is a gradient-boosted ensemble of shallow regression trees on logistic loss.
type Booster struct {
	params Params
}

// NewBooster builds the shallowEnsembleB classifier.
func NewBooster(p Params) *Booster { return &Booster{params: p.withDefaults()} }

func (b *Booster) Name() string { return ShallowEnsembleB }

// Fit starts from the base-rate logit and adds Trees Newton-step trees scaled by
// LearningRate. Subsample < 1 draws a seeded row subset per round.
func (b *Booster) Fit(x [][]float64, y []float64) (domsvc.Model, error) {
	if err := checkInput(x, y); err != nil {
		return nil, err
	}
	p := b.params
	rng := rand.New(rand.NewSource(p.Seed))

	base, err := stats.Mean(y)
	if err != nil {
		return nil, err
	}
	prior := logit(clampProb(base))

	n := len(x)
	raw := make([]float64, n)
	for i := range raw {
		raw[i] = prior
	}
	resid := make([]float64, n)
	hess := make([]float64, n)

	trees := make([]*node, 0, p.Trees)
	for t := 0; t < p.Trees; t++ {
		for i := range raw {
			pi := sigmoid(raw[i])
			resid[i] = y[i] - pi
			hess[i] = pi * (1 - pi)
		}
		idx := subsample(n, p.Subsample, rng)
		tree := growTree(x, resid, idx, 0, treeParams{
			maxDepth:  p.MaxDepth,
			minLeaf:   p.MinLeaf,
			leafValue: func(rows []int) float64 { return newtonStep(resid, hess, rows) },
		})
		for i := range raw {
			raw[i] += p.LearningRate * tree.predict(x[i])
		}
		trees = append(trees, tree)
	}
	return &boostedModel{prior: prior, rate: p.LearningRate, trees: trees}, nil
}

type boostedModel struct {
	prior float64
	rate  float64
	trees []*node
}

func (m *boostedModel) PredictProba(x []float64) float64 {
	raw := m.prior
	for _, t := range m.trees {
		raw += m.rate * t.predict(x)
	}
	return sigmoid(raw)
}

func newtonStep(resid, hess []float64, rows []int) float64 {
	var g, h float64
	for _, i := range rows {
		g += resid[i]
		h += hess[i]
	}
	if h < 1e-12 {
		return 0
	}
	return g / h
}

func subsample(n int, frac float64, rng *rand.Rand) []int {
	if frac <= 0 || frac >= 1 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	k := int(math.Max(1, math.Round(frac*float64(n))))
	idx := rng.Perm(n)[:k]
	return idx
}

func sigmoid(v float64) float64 { return 1 / (1 + math.Exp(-v)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }

func clampProb(p float64) float64 { return math.Max(probEps, math.Min(1-probEps, p)) }

var _ domsvc.Classifier = (*Booster)(nil)
