package models

// Tier is the three-way decision of the recommendation engine.
type Tier string

const (
	TierStrongAvoid  Tier = "STRONG_AVOID"
	TierNeutralWatch Tier = "NEUTRAL_WATCH"
	TierOpportunity  Tier = "OPPORTUNITY"
)

// OverlayKind tags an informational annotation attached to a recommendation.
type OverlayKind string

const (
	OverlayAverageDown    OverlayKind = "AVERAGE_DOWN"
	OverlayTakeProfit     OverlayKind = "TAKE_PROFIT"
	OverlayNearSupport    OverlayKind = "NEAR_SUPPORT"
	OverlayNearResistance OverlayKind = "NEAR_RESISTANCE"
)

// Overlay is a position- or proximity-aware note anchored at a price level.
type Overlay struct {
	Kind    OverlayKind `json:"kind"`
	Message string      `json:"message"`
	Level   float64     `json:"level"`
}

// Recommendation carries the decision and the numbers that justified it.
type Recommendation struct {
	Tier              Tier      `json:"tier"`
	Message           string    `json:"message"`
	Overlays          []Overlay `json:"overlays"`
	CurrentPrice      float64   `json:"current_price"`
	ProbabilityOfRise float64   `json:"probability_of_rise"`
	Support           float64   `json:"support"`
	Resistance        float64   `json:"resistance"`
	CostBasis         float64   `json:"cost_basis,omitempty"`
	ReturnRate        *float64  `json:"return_rate,omitempty"`
}

// Has reports whether an overlay of kind k is attached.
func (r Recommendation) Has(k OverlayKind) bool {
	for _, o := range r.Overlays {
		if o.Kind == k {
			return true
		}
	}
	return false
}
