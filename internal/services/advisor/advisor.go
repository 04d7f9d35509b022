package advisor

import (
	"fmt"

	"SignalDesk/internal/domain/models"
	domsvc "SignalDesk/internal/domain/service"
)

// Advisor turns a probability, a band and an optional position into a recommendation.
// It is a pure function of its inputs.
type Advisor struct {
	policy Policy
}

// New returns an Advisor for policy.
func New(policy Policy) *Advisor {
	return &Advisor{policy: policy}
}

// Policy returns the thresholds in use.
func (a *Advisor) Policy() Policy { return a.policy }

// Recommend classifies the result into a tier and attaches overlays.
func (a *Advisor) Recommend(res models.AnalysisResult, pos models.UserPosition) models.Recommendation {
	p := res.ProbabilityOfRise
	rec := models.Recommendation{
		Tier:              a.tier(p),
		CurrentPrice:      res.CurrentPrice,
		ProbabilityOfRise: p,
		Support:           res.Support,
		Resistance:        res.Resistance,
		Overlays:          []models.Overlay{},
	}
	rec.Message = tierMessage(rec.Tier, p)

	if pos.HasPosition() {
		rate := (res.CurrentPrice - pos.CostBasis) / pos.CostBasis
		rec.CostBasis = pos.CostBasis
		rec.ReturnRate = &rate

		if rate < a.policy.AverageDownReturn && p > a.policy.AverageDownMinProb {
			rec.Overlays = append(rec.Overlays, models.Overlay{
				Kind:    models.OverlayAverageDown,
				Level:   res.Support,
				Message: fmt.Sprintf("Down %.1f%% from cost basis with %.0f%% rise probability; consider averaging down near %.2f.", -rate*100, p*100, res.Support),
			})
		}
		if rate > a.policy.TakeProfitReturn {
			rec.Overlays = append(rec.Overlays, models.Overlay{
				Kind:    models.OverlayTakeProfit,
				Level:   res.Resistance,
				Message: fmt.Sprintf("Up %.1f%% from cost basis; consider taking profit near %.2f.", rate*100, res.Resistance),
			})
		}
	}

	if res.CurrentPrice <= res.Support*a.policy.NearSupportFactor {
		rec.Overlays = append(rec.Overlays, models.Overlay{
			Kind:    models.OverlayNearSupport,
			Level:   res.Support,
			Message: fmt.Sprintf("Price %.2f is close to support %.2f.", res.CurrentPrice, res.Support),
		})
	}
	if res.CurrentPrice >= res.Resistance*a.policy.NearResistanceFactor {
		rec.Overlays = append(rec.Overlays, models.Overlay{
			Kind:    models.OverlayNearResistance,
			Level:   res.Resistance,
			Message: fmt.Sprintf("Price %.2f is close to resistance %.2f.", res.CurrentPrice, res.Resistance),
		})
	}
	return rec
}

// tier uses strict comparisons so exact cut points fall to NEUTRAL_WATCH.
func (a *Advisor) tier(p float64) models.Tier {
	switch {
	case p < a.policy.AvoidBelow:
		return models.TierStrongAvoid
	case p > a.policy.OpportunityAbove:
		return models.TierOpportunity
	default:
		return models.TierNeutralWatch
	}
}

func tierMessage(t models.Tier, p float64) string {
	switch t {
	case models.TierStrongAvoid:
		return fmt.Sprintf("Stay on the sidelines: rise probability is only %.1f%%.", p*100)
	case models.TierOpportunity:
		return fmt.Sprintf("Buying opportunity: rise probability is %.1f%%.", p*100)
	default:
		return fmt.Sprintf("Hold and watch: rise probability is %.1f%%.", p*100)
	}
}

var _ domsvc.Advisor = (*Advisor)(nil)
