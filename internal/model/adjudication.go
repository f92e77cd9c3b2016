package model

// DecisionKey identifies a (base record, source, candidate) triple. Verdicts
// are cached and deduplicated on this key.
type DecisionKey struct {
	RecordID    string `json:"record_id"`
	Source      Source `json:"source"`
	CandidateID string `json:"candidate_id"`
}

// String renders the key as record|source|candidate.
func (k DecisionKey) String() string {
	return k.RecordID + "|" + string(k.Source) + "|" + k.CandidateID
}

// AdjudicationRequest packages an ambiguous pair for an external decision.
// Only short public text fields are carried.
type AdjudicationRequest struct {
	Key                  DecisionKey `json:"key"`
	BaseName             string      `json:"base_name"`
	BaseDescription      string      `json:"base_description,omitempty"`
	BaseCategory         string      `json:"base_category,omitempty"`
	CandidateName        string      `json:"candidate_name"`
	CandidateDescription string      `json:"candidate_description,omitempty"`
	CandidateCategory    string      `json:"candidate_category,omitempty"`
}

// Verdict is the external decision on an adjudication request.
type Verdict struct {
	SameEntity    bool   `json:"same_entity" yaml:"same_entity"`
	Justification string `json:"justification" yaml:"justification"`
}
