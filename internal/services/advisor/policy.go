package advisor

import (
	"fmt"
)

// Policy holds every threshold of the recommendation engine.
type Policy struct {
	AvoidBelow           float64 `yaml:"avoid_below" default:"0.3"`
	OpportunityAbove     float64 `yaml:"opportunity_above" default:"0.6"`
	AverageDownReturn    float64 `yaml:"average_down_return" default:"-0.1"`
	AverageDownMinProb   float64 `yaml:"average_down_min_prob" default:"0.55"`
	TakeProfitReturn     float64 `yaml:"take_profit_return" default:"0.05"`
	NearSupportFactor    float64 `yaml:"near_support_factor" default:"1.02"`
	NearResistanceFactor float64 `yaml:"near_resistance_factor" default:"0.97"`
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		AvoidBelow:           0.3,
		OpportunityAbove:     0.6,
		AverageDownReturn:    -0.1,
		AverageDownMinProb:   0.55,
		TakeProfitReturn:     0.05,
		NearSupportFactor:    1.02,
		NearResistanceFactor: 0.97,
	}
}

// Validate checks that the tier cut points are ordered probabilities.
func (p Policy) Validate() error {
	if p.AvoidBelow < 0 || p.OpportunityAbove > 1 {
		return fmt.Errorf("policy: tier thresholds must lie in [0,1]")
	}
	if p.AvoidBelow > p.OpportunityAbove {
		return fmt.Errorf("policy: avoid_below (%.2f) exceeds opportunity_above (%.2f)", p.AvoidBelow, p.OpportunityAbove)
	}
	if p.NearSupportFactor <= 0 || p.NearResistanceFactor <= 0 {
		return fmt.Errorf("policy: proximity factors must be positive")
	}
	return nil
}
