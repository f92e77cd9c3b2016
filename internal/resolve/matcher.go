package resolve

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/monument-cli/internal/geo"
	"github.com/sells-group/monument-cli/internal/model"
)

// Similarity and tie thresholds.
const (
	DefaultHighSimilarity   = 0.92
	DefaultMediumSimilarity = 0.80
	DefaultTieToleranceM    = 1.0
)

// ErrSourceMismatch is returned when a candidate does not belong to the
// source being matched.
var ErrSourceMismatch = eris.New("resolve: candidate source mismatch")

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// WithThresholds overrides the per-source distance thresholds.
func WithThresholds(t geo.SourceThresholds) MatcherOption {
	return func(m *Matcher) {
		m.thresholds = t
	}
}

// WithSimilarityThresholds overrides the high and medium similarity cutoffs.
func WithSimilarityThresholds(high, medium float64) MatcherOption {
	return func(m *Matcher) {
		m.highSim = high
		m.mediumSim = medium
	}
}

// WithTieTolerance sets the distance (meters) under which two candidates are
// considered equally close.
func WithTieTolerance(meters float64) MatcherOption {
	return func(m *Matcher) {
		m.tieM = meters
	}
}

// Matcher selects at most one candidate per (base record, source) pair.
// It is stateless and safe for concurrent use.
type Matcher struct {
	thresholds geo.SourceThresholds
	highSim    float64
	mediumSim  float64
	tieM       float64
}

// NewMatcher creates a Matcher with default thresholds.
func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{
		thresholds: geo.DefaultSourceThresholds(),
		highSim:    DefaultHighSimilarity,
		mediumSim:  DefaultMediumSimilarity,
		tieM:       DefaultTieToleranceM,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// scored is a candidate with its comparator results.
type scored struct {
	cand       *model.CandidateRecord
	distance   *float64
	similarity float64
	domainEq   bool
}

// Match compares base against the candidates of one source and returns the
// decision. Invalid coordinates abort the pair with an error wrapping
// geo.ErrInvalidCoordinate that names the record and candidate.
func (m *Matcher) Match(base model.BaseRecord, candidates []model.CandidateRecord, source model.Source) (model.MatchDecision, error) {
	decision := model.MatchDecision{RecordID: base.ID, Source: source}

	if len(candidates) == 0 {
		decision.Outcome = model.OutcomeUnmatched
		decision.Tier = model.TierLow
		decision.Reason = model.ReasonNoCandidates
		return decision, nil
	}

	if base.Coordinates != nil {
		if err := geo.Validate(*base.Coordinates); err != nil {
			return decision, eris.Wrapf(err, "resolve: record %s", base.ID)
		}
	}

	all := make([]scored, 0, len(candidates))
	for i := range candidates {
		c := candidates[i]
		if c.Source != source {
			return decision, eris.Wrapf(ErrSourceMismatch, "resolve: record %s candidate %s has source %q, want %q",
				base.ID, c.SourceID, c.Source, source)
		}
		d, err := geo.DistanceOpt(base.Coordinates, c.Coordinates)
		if err != nil {
			return decision, eris.Wrapf(err, "resolve: record %s candidate %s", base.ID, c.SourceID)
		}
		all = append(all, scored{
			cand:       &c,
			distance:   d,
			similarity: NameSimilarity(base, c.Name),
			domainEq:   DomainEquivalent(base.Website, c.ReferenceURL()),
		})
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].cand.SourceID < all[j].cand.SourceID })
	best, tier, reason := m.choose(source, all)

	decision.Candidate = best.cand
	decision.DistanceM = best.distance
	decision.Similarity = best.similarity
	decision.DomainEquivalent = best.domainEq
	decision.Tier, decision.Reason = tier, reason

	switch {
	case decision.Tier != model.TierLow:
		decision.Outcome = model.OutcomeMatched
	case source == model.SourceEncyclopedia && !best.cand.Redirected:
		decision.Outcome = model.OutcomeMatched
		decision.Tier = model.TierMedium
		decision.Reason = model.ReasonDirectLookup
	case source == model.SourceEncyclopedia:
		decision.Outcome = model.OutcomeAmbiguous
		decision.Reason = model.ReasonRedirectUnverified
	default:
		decision.Outcome = model.OutcomeUnmatched
		decision.Reason = model.ReasonBelowThreshold
	}
	return decision, nil
}

// choose ranks candidates with a distance by proximity and candidates
// without one by similarity, then keeps whichever pool's best reaches the
// higher tier. The located pool wins ties.
func (m *Matcher) choose(source model.Source, all []scored) (scored, model.Tier, model.Reason) {
	var located, unlocated []scored
	for _, s := range all {
		if s.distance != nil {
			located = append(located, s)
		} else {
			unlocated = append(unlocated, s)
		}
	}

	var (
		best   scored
		tier   model.Tier
		reason model.Reason
		found  bool
	)
	for _, pool := range [][]scored{located, unlocated} {
		if len(pool) == 0 {
			continue
		}
		s := m.selectBest(pool)
		t, r := m.tier(source, s)
		if !found || tierRank(t) > tierRank(tier) {
			best, tier, reason, found = s, t, r, true
		}
	}
	return best, tier, reason
}

// selectBest picks the nearest candidate of a pool with distances, or the
// most similar of a pool without. Ties fall through to similarity, then
// domain equivalence, then source id.
func (m *Matcher) selectBest(pool []scored) scored {
	best := 0
	for i := 1; i < len(pool); i++ {
		if m.better(pool[i], pool[best]) {
			best = i
		}
	}
	return pool[best]
}

func (m *Matcher) better(a, b scored) bool {
	if a.distance != nil && b.distance != nil {
		diff := *a.distance - *b.distance
		if math.Abs(diff) > m.tieM {
			return diff < 0
		}
	}
	if a.similarity != b.similarity {
		return a.similarity > b.similarity
	}
	if a.domainEq != b.domainEq {
		return a.domainEq
	}
	return a.cand.SourceID < b.cand.SourceID
}

// tier classifies the chosen candidate. A known distance decides alone,
// except that domain equivalence lifts a pair inside the medium cutoff to
// high. Without a distance the textual evidence decides:
//   - high: domain-equivalent, or similarity >= high
//   - medium: similarity >= medium
//   - low: otherwise
func (m *Matcher) tier(source model.Source, s scored) (model.Tier, model.Reason) {
	if s.distance != nil {
		class := m.thresholds.For(source).Classify(s.distance)
		if class.Tier == model.TierMedium && s.domainEq {
			return model.TierHigh, model.ReasonDomainEquivalent
		}
		return class.Tier, class.Reason
	}

	switch {
	case s.domainEq:
		return model.TierHigh, model.ReasonDomainEquivalent
	case s.similarity >= m.highSim:
		return model.TierHigh, model.ReasonNameSimilarity
	case s.similarity >= m.mediumSim:
		return model.TierMedium, model.ReasonNameSimilarity
	}
	return model.TierLow, model.ReasonMissingCoordinates
}

func tierRank(t model.Tier) int {
	switch t {
	case model.TierHigh:
		return 2
	case model.TierMedium:
		return 1
	}
	return 0
}
