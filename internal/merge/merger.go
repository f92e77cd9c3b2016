// Package merge folds accepted match decisions into base records under a
// per-field conflict policy.
package merge

import (
	"go.uber.org/zap"

	"github.com/sells-group/monument-cli/internal/model"
)

// Merger applies accepted decisions to base records.
type Merger struct {
	policy Policy
}

// NewMerger creates a Merger. A nil policy selects DefaultPolicy.
func NewMerger(p Policy) *Merger {
	if p == nil {
		p = DefaultPolicy()
	}
	return &Merger{policy: p}
}

// Merge returns base updated with the decision's candidate values and the
// list of applied changes. The input record is never mutated. Decisions that
// are not matched at tier high or medium, or that reference another record,
// return base unchanged.
func (m *Merger) Merge(base model.BaseRecord, d model.MatchDecision) (model.BaseRecord, []model.FieldChange) {
	if !d.Accepted() || d.RecordID != base.ID {
		return base, nil
	}

	out := base.Clone()
	cand := d.Candidate
	var changes []model.FieldChange

	record := func(f model.Field, old, val string) {
		changes = append(changes, model.FieldChange{
			RecordID:    base.ID,
			Field:       f,
			Source:      d.Source,
			Tier:        d.Tier,
			CandidateID: cand.SourceID,
			Old:         old,
			New:         val,
		})
		if out.Provenance == nil {
			out.Provenance = make(map[model.Field]model.Provenance)
		}
		out.Provenance[f] = model.Provenance{Source: d.Source, Tier: d.Tier, CandidateID: cand.SourceID}
	}

	for _, f := range m.policy.Fields() {
		rule := m.policy[f]

		if f == model.FieldCoordinates {
			if cand.Coordinates == nil {
				continue
			}
			if !allowed(rule, d.Tier, out.Coordinates == nil) || sameCoords(out.Coordinates, cand.Coordinates) {
				continue
			}
			old := formatCoords(out.Coordinates)
			c := *cand.Coordinates
			out.Coordinates = &c
			record(f, old, formatCoords(&c))
			continue
		}

		acc, ok := accessors[f]
		if !ok {
			continue
		}
		val := acc.cand(cand)
		if val == "" {
			continue
		}
		cur := acc.get(&out)
		if cur == val || !allowed(rule, d.Tier, cur == "") {
			continue
		}
		acc.set(&out, val)
		record(f, cur, val)
	}

	if cand.Metrics != nil && !cand.Metrics.Empty() {
		if _, exists := out.Metrics[d.Source]; !exists {
			if out.Metrics == nil {
				out.Metrics = make(map[model.Source]model.ProviderMetrics)
			}
			out.Metrics[d.Source] = *cand.Metrics
			record(model.MetricsField(d.Source), "", cand.SourceID)
		}
	}

	if len(changes) > 0 {
		zap.L().Debug("merge: applied",
			zap.String("record_id", base.ID),
			zap.String("source", string(d.Source)),
			zap.String("tier", string(d.Tier)),
			zap.Int("changes", len(changes)),
		)
	}
	return out, changes
}

// allowed reports whether a rule permits writing at tier given whether the
// current value is empty.
func allowed(rule Rule, tier model.Tier, empty bool) bool {
	switch rule {
	case RuleFillOnly:
		return empty
	case RuleTierGated:
		switch tier {
		case model.TierHigh:
			return true
		case model.TierMedium:
			return empty
		}
	}
	return false
}

func sameCoords(a, b *model.Coordinates) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
