package model

// Outcome is the result of matching a base record against one source.
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeAmbiguous Outcome = "ambiguous"
)

// Tier is a confidence classification.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Reason explains a match decision. Reasons are part of normal control flow,
// not errors.
type Reason string

const (
	ReasonNoCandidates            Reason = "no_candidates"
	ReasonBelowThreshold          Reason = "below_confidence_threshold"
	ReasonMissingCoordinates      Reason = "missing_coordinates"
	ReasonWithinDistance          Reason = "within_distance"
	ReasonDomainEquivalent        Reason = "domain_equivalent"
	ReasonNameSimilarity          Reason = "name_similarity"
	ReasonDirectLookup            Reason = "direct_lookup"
	ReasonRedirectVerified        Reason = "redirect_verified"
	ReasonRedirectUnverified      Reason = "redirect_unverified"
	ReasonAdjudicatedSame         Reason = "adjudicated_same"
	ReasonAdjudicatedDifferent    Reason = "adjudicated_different"
	ReasonAdjudicationUnavailable Reason = "adjudication_unavailable"
	ReasonCandidateClaimed        Reason = "candidate_already_matched"
)

// MatchDecision is the outcome of matching one base record against one
// source's candidate set.
type MatchDecision struct {
	RecordID         string           `json:"record_id"`
	Source           Source           `json:"source"`
	Outcome          Outcome          `json:"outcome"`
	Candidate        *CandidateRecord `json:"candidate,omitempty"`
	DistanceM        *float64         `json:"distance_m,omitempty"`
	Similarity       float64          `json:"similarity"`
	DomainEquivalent bool             `json:"domain_equivalent"`
	Tier             Tier             `json:"tier"`
	Reason           Reason           `json:"reason"`
}

// Accepted reports whether the decision may mutate the base record.
func (d MatchDecision) Accepted() bool {
	return d.Outcome == OutcomeMatched && d.Candidate != nil &&
		(d.Tier == TierHigh || d.Tier == TierMedium)
}

// CandidateID returns the matched candidate's source id, or "".
func (d MatchDecision) CandidateID() string {
	if d.Candidate == nil {
		return ""
	}
	return d.Candidate.SourceID
}
