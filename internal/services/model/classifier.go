package model

import (
	"fmt"
	"math"

	domsvc "SignalDesk/internal/domain/service"
)

// Classifier family names accepted in configuration.
const (
	ShallowEnsembleA = "shallowEnsembleA" // bagged random forest
	ShallowEnsembleB = "shallowEnsembleB" // gradient-boosted trees
)

// Params are the small, regularized hyperparameters shared by both families.
type Params struct {
	Seed         int64
	Trees        int
	MaxDepth     int
	MinLeaf      int
	LearningRate float64 // boosting only
	Subsample    float64 // boosting only; 1 = all rows
}

// DefaultParams keeps training sub-second on a few hundred daily rows.
func DefaultParams() Params {
	return Params{
		Seed:         42,
		Trees:        100,
		MaxDepth:     3,
		MinLeaf:      2,
		LearningRate: 0.1,
		Subsample:    1,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Trees <= 0 {
		p.Trees = d.Trees
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.MinLeaf <= 0 {
		p.MinLeaf = d.MinLeaf
	}
	if p.LearningRate <= 0 {
		p.LearningRate = d.LearningRate
	}
	if p.Subsample <= 0 {
		p.Subsample = d.Subsample
	}
	return p
}

// New returns the classifier family registered under name.
func New(name string, p Params) (domsvc.Classifier, error) {
	switch name {
	case ShallowEnsembleA, "":
		return NewForest(p), nil
	case ShallowEnsembleB:
		return NewBooster(p), nil
	default:
		return nil, fmt.Errorf("unknown classifier %q", name)
	}
}

// Clamp bounds a probability to [0,1]; ok is false for NaN/Inf.
func Clamp(p float64) (float64, bool) {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, false
	}
	return math.Max(0, math.Min(1, p)), true
}
