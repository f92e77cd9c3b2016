// Package fetcher retrieves candidate records from external sources.
package fetcher

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/monument-cli/internal/model"
)

// Fetcher looks up candidates for one base record in one source. The hint
// narrows the search when the source supports it; it may be nil.
type Fetcher interface {
	Source() model.Source
	FetchCandidates(ctx context.Context, query string, hint *model.Coordinates) ([]model.CandidateRecord, error)
}

// CollectResult holds the candidates found per base record id and the
// per-record fetch failures.
type CollectResult struct {
	Candidates map[string][]model.CandidateRecord
	Errors     map[string]error
}

// Collect fetches candidates for every record with at most concurrency
// lookups in flight. A failed lookup is recorded and does not stop the
// others. Candidates are stamped with the base id they were fetched for.
func Collect(ctx context.Context, f Fetcher, records []model.BaseRecord, concurrency int) (*CollectResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	log := zap.L().With(zap.String("component", "fetcher"), zap.String("source", string(f.Source())))

	res := &CollectResult{
		Candidates: make(map[string][]model.CandidateRecord, len(records)),
		Errors:     make(map[string]error),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, rec := range records {
		g.Go(func() error {
			cands, err := f.FetchCandidates(gctx, rec.Name, rec.Coordinates)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn("fetch failed", zap.String("record_id", rec.ID), zap.Error(err))
				res.Errors[rec.ID] = err
				return nil
			}
			for i := range cands {
				cands[i].BaseID = rec.ID
			}
			res.Candidates[rec.ID] = cands
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, eris.Wrap(err, "fetcher: collect")
	}
	log.Info("collected candidates",
		zap.Int("records", len(records)),
		zap.Int("found", len(res.Candidates)),
		zap.Int("failed", len(res.Errors)),
	)
	return res, nil
}
