// Package adjudicate escalates ambiguous match decisions to an external
// decision-maker (a language model or a fixed verdict table) and folds the
// verdict back into the decision.
package adjudicate

import (
	"context"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/monument-cli/internal/model"
)

// ErrUnavailable is returned when no usable verdict could be obtained:
// timeout, transport failure, open circuit or malformed response.
var ErrUnavailable = eris.New("adjudicate: adjudication unavailable")

// maxExcerptRunes caps description excerpts sent to the decision-maker.
const maxExcerptRunes = 500

// Adjudicator decides whether an ambiguous pair is the same monument.
type Adjudicator interface {
	Adjudicate(ctx context.Context, req model.AdjudicationRequest) (model.Verdict, error)
}

// NewRequest packages an ambiguous decision for adjudication.
func NewRequest(base model.BaseRecord, d model.MatchDecision) (model.AdjudicationRequest, error) {
	if d.Candidate == nil {
		return model.AdjudicationRequest{}, eris.Errorf("adjudicate: decision for %s/%s has no candidate", d.RecordID, d.Source)
	}
	c := d.Candidate
	return model.AdjudicationRequest{
		Key:                  model.DecisionKey{RecordID: base.ID, Source: d.Source, CandidateID: c.SourceID},
		BaseName:             base.Name,
		BaseDescription:      excerpt(base.Description),
		BaseCategory:         base.Category,
		CandidateName:        c.Name,
		CandidateDescription: excerpt(c.Description),
		CandidateCategory:    c.Category,
	}, nil
}

func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= maxExcerptRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxExcerptRunes])
}

// Apply folds a verdict into an ambiguous decision:
//   - err != nil: stays ambiguous, reason adjudication_unavailable
//   - same entity: matched at tier medium, never high
//   - different entity: unmatched at tier low
//
// Decisions that are not ambiguous are returned unchanged.
func Apply(d model.MatchDecision, v model.Verdict, err error) model.MatchDecision {
	if d.Outcome != model.OutcomeAmbiguous {
		return d
	}
	switch {
	case err != nil:
		d.Reason = model.ReasonAdjudicationUnavailable
	case v.SameEntity:
		d.Outcome = model.OutcomeMatched
		d.Tier = model.TierMedium
		d.Reason = model.ReasonAdjudicatedSame
	default:
		d.Outcome = model.OutcomeUnmatched
		d.Tier = model.TierLow
		d.Reason = model.ReasonAdjudicatedDifferent
	}
	return d
}
