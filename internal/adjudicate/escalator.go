package adjudicate

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/sells-group/monument-cli/internal/model"
	"github.com/sells-group/monument-cli/internal/resilience"
)

// DefaultInterval is the default spacing between adjudication calls
// (15 requests per minute).
const DefaultInterval = 4 * time.Second

// EscalatorOption configures an Escalator.
type EscalatorOption func(*Escalator)

// WithCache reuses verdicts across runs.
func WithCache(c VerdictCache) EscalatorOption {
	return func(e *Escalator) { e.cache = c }
}

// WithInterval sets the minimum spacing between calls. Zero disables pacing.
func WithInterval(d time.Duration) EscalatorOption {
	return func(e *Escalator) {
		if d <= 0 {
			e.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		e.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithTimeout bounds each attempt. Non-positive values keep the default.
func WithTimeout(d time.Duration) EscalatorOption {
	return func(e *Escalator) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) EscalatorOption {
	return func(e *Escalator) { e.retry = cfg }
}

// WithBreaker stops calling the adjudicator after repeated failures.
func WithBreaker(b *resilience.Breaker) EscalatorOption {
	return func(e *Escalator) { e.breaker = b }
}

// Escalator wraps an Adjudicator with pacing, timeouts, retries, caching and
// per-key deduplication. It is safe for concurrent use; concurrent requests
// for the same decision key share one call.
type Escalator struct {
	adj     Adjudicator
	cache   VerdictCache
	limiter *rate.Limiter
	timeout time.Duration
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
	group   singleflight.Group

	calls     atomic.Int64
	cacheHits atomic.Int64
}

// NewEscalator creates an Escalator with a 4s interval, a 30s timeout and
// the default retry policy.
func NewEscalator(adj Adjudicator, opts ...EscalatorOption) *Escalator {
	e := &Escalator{
		adj:     adj,
		limiter: rate.NewLimiter(rate.Every(DefaultInterval), 1),
		timeout: 30 * time.Second,
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.retry.OnRetry == nil {
		e.retry.OnRetry = resilience.RetryLogger("adjudicate", "escalate")
	}
	return e
}

// Escalate returns the verdict for req. Every failure is reported as an
// error wrapping ErrUnavailable.
func (e *Escalator) Escalate(ctx context.Context, req model.AdjudicationRequest) (model.Verdict, error) {
	v, err, shared := e.group.Do(req.Key.String(), func() (any, error) {
		return e.resolve(ctx, req)
	})
	if shared {
		zap.L().Debug("adjudicate: shared in-flight request", zap.String("key", req.Key.String()))
	}
	if err != nil {
		return model.Verdict{}, err
	}
	return v.(model.Verdict), nil
}

func (e *Escalator) resolve(ctx context.Context, req model.AdjudicationRequest) (model.Verdict, error) {
	log := zap.L().With(zap.String("component", "adjudicate"), zap.String("key", req.Key.String()))

	if e.cache != nil {
		cached, err := e.cache.GetVerdict(ctx, req.Key)
		if err != nil {
			log.Warn("adjudicate: cache read failed", zap.Error(err))
		} else if cached != nil {
			e.cacheHits.Add(1)
			return *cached, nil
		}
	}

	if e.breaker != nil {
		if err := e.breaker.Allow(); err != nil {
			return model.Verdict{}, eris.Wrapf(ErrUnavailable, "%s: %v", req.Key, err)
		}
	}

	v, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (model.Verdict, error) {
		if err := e.limiter.Wait(ctx); err != nil {
			return model.Verdict{}, err
		}
		e.calls.Add(1)

		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		return e.adj.Adjudicate(callCtx, req)
	})
	if e.breaker != nil {
		e.breaker.Record(err)
	}
	if err != nil {
		log.Warn("adjudicate: unavailable", zap.Error(err))
		return model.Verdict{}, eris.Wrapf(ErrUnavailable, "%s: %v", req.Key, err)
	}

	log.Info("adjudicate: verdict",
		zap.Bool("same_entity", v.SameEntity),
		zap.String("justification", v.Justification),
	)
	if e.cache != nil {
		if err := e.cache.PutVerdict(ctx, req.Key, v); err != nil {
			log.Warn("adjudicate: cache write failed", zap.Error(err))
		}
	}
	return v, nil
}

// Stats reports adjudicator calls made and cache hits served.
func (e *Escalator) Stats() (calls, cacheHits int64) {
	return e.calls.Load(), e.cacheHits.Load()
}
