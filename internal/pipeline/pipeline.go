// Package pipeline runs the reconciliation stages over a batch of base
// records: match, verify, escalate, merge.
package pipeline

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/monument-cli/internal/adjudicate"
	"github.com/sells-group/monument-cli/internal/merge"
	"github.com/sells-group/monument-cli/internal/model"
	"github.com/sells-group/monument-cli/internal/resolve"
	"github.com/sells-group/monument-cli/internal/store"
)

// Escalator resolves an ambiguous pair. *adjudicate.Escalator satisfies it.
type Escalator interface {
	Escalate(ctx context.Context, req model.AdjudicationRequest) (model.Verdict, error)
}

// Candidates holds candidate sets keyed by source, then by base record id.
type Candidates map[model.Source]map[string][]model.CandidateRecord

// Group builds Candidates from a flat list using each candidate's BaseID.
// Candidates without a base id are dropped.
func Group(cands []model.CandidateRecord) Candidates {
	out := make(Candidates)
	for _, c := range cands {
		if c.BaseID == "" {
			continue
		}
		if out[c.Source] == nil {
			out[c.Source] = make(map[string][]model.CandidateRecord)
		}
		out[c.Source][c.BaseID] = append(out[c.Source][c.BaseID], c)
	}
	return out
}

// Failure is a (record, source) pair that could not be decided.
type Failure struct {
	Source model.Source `json:"source"`
	Error  string       `json:"error"`
}

// RecordStatus is the per-record outcome of a run. Err joins every failure
// of the record; Error carries its text for serialised summaries.
type RecordStatus struct {
	RecordID  string                `json:"record_id"`
	Decisions []model.MatchDecision `json:"decisions"`
	Changes   []model.FieldChange   `json:"changes,omitempty"`
	Failures  []Failure             `json:"failures,omitempty"`
	Error     string                `json:"error,omitempty"`
	Err       error                 `json:"-"`
}

// SourceCounts tallies decision outcomes for one source. Errors counts
// failed pairs.
type SourceCounts struct {
	Matched   int `json:"matched"`
	Ambiguous int `json:"ambiguous"`
	Unmatched int `json:"unmatched"`
	Errors    int `json:"errors"`
}

// RunResult summarises a pipeline run.
type RunResult struct {
	RunID     string                        `json:"run_id"`
	Records   []model.BaseRecord            `json:"-"`
	Statuses  []RecordStatus                `json:"statuses"`
	Counts    map[model.Source]SourceCounts `json:"counts"`
	Escalated int                           `json:"escalated"`
	Errors    int                           `json:"errors"`
	Duration  time.Duration                 `json:"duration"`
}

// Decisions returns every decision of the run in record then source order.
func (r *RunResult) Decisions() []model.MatchDecision {
	var out []model.MatchDecision
	for _, s := range r.Statuses {
		out = append(out, s.Decisions...)
	}
	return out
}

// Changes returns every applied field change in record then source order.
func (r *RunResult) Changes() []model.FieldChange {
	var out []model.FieldChange
	for _, s := range r.Statuses {
		out = append(out, s.Changes...)
	}
	return out
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithEscalator enables adjudication of ambiguous decisions. Without one,
// ambiguous decisions stay ambiguous with reason adjudication_unavailable.
func WithEscalator(e Escalator) Option {
	return func(p *Pipeline) { p.escalator = e }
}

// WithConcurrency bounds the number of escalations in flight.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithSources restricts and orders the sources processed.
func WithSources(sources ...model.Source) Option {
	return func(p *Pipeline) { p.sources = sources }
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = id }
}

// Pipeline orchestrates the reconciliation stages.
type Pipeline struct {
	matcher     *resolve.Matcher
	verifier    *resolve.Verifier
	merger      *merge.Merger
	escalator   Escalator
	concurrency int
	sources     []model.Source
	runID       string
}

// New creates a Pipeline.
func New(matcher *resolve.Matcher, verifier *resolve.Verifier, merger *merge.Merger, opts ...Option) *Pipeline {
	p := &Pipeline{
		matcher:     matcher,
		verifier:    verifier,
		merger:      merger,
		concurrency: 4,
		sources:     model.ExternalSources,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// pending is an ambiguous decision awaiting a verdict.
type pending struct {
	record   int
	decision int
	req      model.AdjudicationRequest
	verdict  model.Verdict
	err      error
}

// claimKey identifies a candidate within its source.
type claimKey struct {
	source model.Source
	id     string
}

// Run reconciles records against cands. The input slice is not modified.
// Per-record failures are attached to the record status; only context
// cancellation aborts the run.
func (p *Pipeline) Run(ctx context.Context, records []model.BaseRecord, cands Candidates) (*RunResult, error) {
	start := time.Now()
	runID := p.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", runID))

	sorted := make([]model.BaseRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	log.Info("starting run", zap.Int("records", len(sorted)), zap.Int("sources", len(p.sources)))

	statuses := make([]RecordStatus, len(sorted))
	errs := make([][]error, len(sorted))
	claimed := make(map[claimKey]string)
	var queue []*pending

	// Phase 1: match and verify, sequentially so candidate claims are
	// deterministic.
	for i, rec := range sorted {
		statuses[i].RecordID = rec.ID
		for _, src := range p.sources {
			d, err := p.decide(rec, src, unclaimed(cands[src][rec.ID], src, claimed))
			if err != nil {
				log.Warn("match failed",
					zap.String("record_id", rec.ID),
					zap.String("source", string(src)),
					zap.Error(err),
				)
				errs[i] = append(errs[i], err)
				statuses[i].Failures = append(statuses[i].Failures, Failure{Source: src, Error: err.Error()})
				continue
			}
			switch {
			case d.Outcome == model.OutcomeMatched && d.Candidate != nil:
				claimed[claimKey{src, d.Candidate.SourceID}] = rec.ID
			case d.Outcome == model.OutcomeAmbiguous:
				req, err := adjudicate.NewRequest(rec, d)
				if err != nil {
					errs[i] = append(errs[i], err)
					statuses[i].Failures = append(statuses[i].Failures, Failure{Source: src, Error: err.Error()})
					break
				}
				queue = append(queue, &pending{record: i, decision: len(statuses[i].Decisions), req: req})
			}
			statuses[i].Decisions = append(statuses[i].Decisions, d)
		}
	}

	// Phase 2: escalate ambiguous decisions concurrently.
	if err := p.escalate(ctx, queue); err != nil {
		return nil, eris.Wrap(err, "pipeline: escalate")
	}

	// Phase 3: fold verdicts and merge in record then source order.
	for _, pe := range queue {
		d := &statuses[pe.record].Decisions[pe.decision]
		*d = adjudicate.Apply(*d, pe.verdict, pe.err)
	}

	merged := make([]model.BaseRecord, len(sorted))
	counts := make(map[model.Source]SourceCounts, len(p.sources))
	result := &RunResult{RunID: runID, Escalated: len(queue)}

	for i, rec := range sorted {
		cur := rec.Clone()
		st := &statuses[i]
		for j := range st.Decisions {
			d := &st.Decisions[j]
			if d.Reason == model.ReasonAdjudicatedSame && d.Candidate != nil {
				key := claimKey{d.Source, d.Candidate.SourceID}
				if owner, ok := claimed[key]; ok && owner != rec.ID {
					d.Outcome = model.OutcomeUnmatched
					d.Tier = model.TierLow
					d.Reason = model.ReasonCandidateClaimed
				} else {
					claimed[key] = rec.ID
				}
			}

			var changes []model.FieldChange
			cur, changes = p.merger.Merge(cur, *d)
			st.Changes = append(st.Changes, changes...)

			c := counts[d.Source]
			switch d.Outcome {
			case model.OutcomeMatched:
				c.Matched++
			case model.OutcomeAmbiguous:
				c.Ambiguous++
			default:
				c.Unmatched++
			}
			counts[d.Source] = c
		}
		for _, f := range st.Failures {
			c := counts[f.Source]
			c.Errors++
			counts[f.Source] = c
		}
		if len(errs[i]) > 0 {
			st.Err = errors.Join(errs[i]...)
			st.Error = st.Err.Error()
			result.Errors++
		}
		merged[i] = cur
	}

	result.Records = merged
	result.Statuses = statuses
	result.Counts = counts
	result.Duration = time.Since(start)

	log.Info("run complete",
		zap.Int("records", len(merged)),
		zap.Int("escalated", result.Escalated),
		zap.Int("errors", result.Errors),
		zap.Int("changes", len(result.Changes())),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// decide matches one record against one source and verifies encyclopedia
// redirects.
func (p *Pipeline) decide(rec model.BaseRecord, src model.Source, cands []model.CandidateRecord) (model.MatchDecision, error) {
	d, err := p.matcher.Match(rec, cands, src)
	if err != nil {
		return d, err
	}
	if src == model.SourceEncyclopedia {
		return p.verifier.Verify(rec, d)
	}
	return d, nil
}

func (p *Pipeline) escalate(ctx context.Context, queue []*pending) error {
	if len(queue) == 0 {
		return nil
	}
	if p.escalator == nil {
		for _, pe := range queue {
			pe.err = adjudicate.ErrUnavailable
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, pe := range queue {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pe.verdict, pe.err = p.escalator.Escalate(gctx, pe.req)
			if pe.err != nil {
				zap.L().Debug("escalation unavailable",
					zap.String("component", "pipeline"),
					zap.String("key", pe.req.Key.String()),
					zap.Error(pe.err),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// unclaimed drops candidates already accepted for another record.
func unclaimed(cands []model.CandidateRecord, src model.Source, claimed map[claimKey]string) []model.CandidateRecord {
	if len(claimed) == 0 {
		return cands
	}
	out := make([]model.CandidateRecord, 0, len(cands))
	for _, c := range cands {
		if _, ok := claimed[claimKey{src, c.SourceID}]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Persist writes a run's merged records, matched provider places and field
// provenance.
func Persist(ctx context.Context, st store.Store, res *RunResult) error {
	if err := st.SaveMergedRecords(ctx, res.Records); err != nil {
		return eris.Wrap(err, "pipeline: save merged records")
	}
	if err := st.SaveProviderPlaces(ctx, res.RunID, res.Decisions()); err != nil {
		return eris.Wrap(err, "pipeline: save provider places")
	}
	if err := st.RecordProvenance(ctx, res.RunID, res.Changes()); err != nil {
		return eris.Wrap(err, "pipeline: record provenance")
	}
	return nil
}
