package resolve

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/monument-cli/internal/geo"
	"github.com/sells-group/monument-cli/internal/model"
)

// Verifier re-checks encyclopedia matches whose lookup was redirected to a
// different article title.
type Verifier struct {
	toleranceM float64
}

// NewVerifier creates a Verifier with the given tolerance in meters.
// A non-positive tolerance selects geo.EncyclopediaToleranceM.
func NewVerifier(toleranceM float64) *Verifier {
	if toleranceM <= 0 {
		toleranceM = geo.EncyclopediaToleranceM
	}
	return &Verifier{toleranceM: toleranceM}
}

// Verify returns the decision unchanged unless it is an encyclopedia
// decision whose candidate was redirected. Redirected candidates stay
// matched only when both sides have coordinates within tolerance; anything
// else, including missing coordinates, becomes ambiguous at tier low.
func (v *Verifier) Verify(base model.BaseRecord, decision model.MatchDecision) (model.MatchDecision, error) {
	if decision.Source != model.SourceEncyclopedia || decision.Candidate == nil {
		return decision, nil
	}
	if !decision.Candidate.Redirected {
		return decision, nil
	}

	d, err := geo.DistanceOpt(base.Coordinates, decision.Candidate.Coordinates)
	if err != nil {
		return decision, eris.Wrapf(err, "resolve: verify record %s candidate %s", base.ID, decision.Candidate.SourceID)
	}
	decision.DistanceM = d

	if d != nil && *d < v.toleranceM {
		decision.Outcome = model.OutcomeMatched
		if decision.Tier == model.TierLow {
			decision.Tier = model.TierMedium
		}
		decision.Reason = model.ReasonRedirectVerified
		return decision, nil
	}

	decision.Outcome = model.OutcomeAmbiguous
	decision.Tier = model.TierLow
	decision.Reason = model.ReasonRedirectUnverified
	return decision, nil
}
