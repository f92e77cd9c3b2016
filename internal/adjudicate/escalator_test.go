package adjudicate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/monument-cli/internal/model"
	"github.com/sells-group/monument-cli/internal/resilience"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// funcAdjudicator adapts a function to Adjudicator.
type funcAdjudicator func(ctx context.Context, req model.AdjudicationRequest) (model.Verdict, error)

func (f funcAdjudicator) Adjudicate(ctx context.Context, req model.AdjudicationRequest) (model.Verdict, error) {
	return f(ctx, req)
}

func fastRetry(n int) resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: n, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func testRequest(id string) model.AdjudicationRequest {
	return model.AdjudicationRequest{
		Key:           model.DecisionKey{RecordID: id, Source: model.SourceEncyclopedia, CandidateID: "c-" + id},
		BaseName:      "Arc de Triomphe",
		CandidateName: "Arc de Triomphe du Carrousel",
	}
}

func TestEscalator_Verdict(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	adj := funcAdjudicator(func(context.Context, model.AdjudicationRequest) (model.Verdict, error) {
		calls.Add(1)
		return model.Verdict{SameEntity: true, Justification: "ok"}, nil
	})
	cache := NewMemoryCache()
	e := NewEscalator(adj, WithInterval(0), WithCache(cache))

	v, err := e.Escalate(t.Context(), testRequest("arc"))
	require.NoError(t, err)
	assert.True(t, v.SameEntity)
	assert.Equal(t, 1, cache.Len())

	// cached: adjudicator not called again
	v, err = e.Escalate(t.Context(), testRequest("arc"))
	require.NoError(t, err)
	assert.True(t, v.SameEntity)
	assert.Equal(t, int32(1), calls.Load())

	c, hits := e.Stats()
	assert.Equal(t, int64(1), c)
	assert.Equal(t, int64(1), hits)
}

func TestEscalator_TimeoutIsUnavailable(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	adj := funcAdjudicator(func(ctx context.Context, _ model.AdjudicationRequest) (model.Verdict, error) {
		calls.Add(1)
		<-ctx.Done()
		return model.Verdict{}, ctx.Err()
	})
	cache := NewMemoryCache()
	e := NewEscalator(adj, WithInterval(0), WithTimeout(10*time.Millisecond), WithRetry(fastRetry(2)), WithCache(cache))

	_, err := e.Escalate(t.Context(), testRequest("arc"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load(), "deadline errors are retried")
	assert.Equal(t, 0, cache.Len(), "failures are not cached")
}

func TestEscalator_MalformedNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	adj := funcAdjudicator(func(context.Context, model.AdjudicationRequest) (model.Verdict, error) {
		calls.Add(1)
		return ParseVerdict("maybe")
	})
	e := NewEscalator(adj, WithInterval(0), WithRetry(fastRetry(3)))

	_, err := e.Escalate(t.Context(), testRequest("arc"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEscalator_RetriesTransient(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	adj := funcAdjudicator(func(context.Context, model.AdjudicationRequest) (model.Verdict, error) {
		if calls.Add(1) == 1 {
			return model.Verdict{}, resilience.NewTransientError(errors.New("rate limited"), 429)
		}
		return model.Verdict{SameEntity: false, Justification: "no"}, nil
	})
	e := NewEscalator(adj, WithInterval(0), WithRetry(fastRetry(3)))

	v, err := e.Escalate(t.Context(), testRequest("arc"))
	require.NoError(t, err)
	assert.False(t, v.SameEntity)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEscalator_SameKeyNeverConcurrent(t *testing.T) {
	t.Parallel()

	var inFlight, maxInFlight atomic.Int32
	adj := funcAdjudicator(func(context.Context, model.AdjudicationRequest) (model.Verdict, error) {
		n := inFlight.Add(1)
		for {
			old := maxInFlight.Load()
			if n <= old || maxInFlight.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return model.Verdict{SameEntity: true, Justification: "ok"}, nil
	})
	e := NewEscalator(adj, WithInterval(0))

	var wg sync.WaitGroup
	results := make([]model.Verdict, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := e.Escalate(context.Background(), testRequest("arc"))
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	for _, v := range results {
		assert.True(t, v.SameEntity)
	}
}

func TestEscalator_BreakerShortCircuits(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	adj := funcAdjudicator(func(context.Context, model.AdjudicationRequest) (model.Verdict, error) {
		calls.Add(1)
		return model.Verdict{}, errors.New("service down")
	})
	e := NewEscalator(adj, WithInterval(0), WithRetry(fastRetry(1)), WithBreaker(resilience.NewBreaker(2, time.Hour)))

	for _, id := range []string{"a", "b", "c", "d"} {
		_, err := e.Escalate(t.Context(), testRequest(id))
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestEscalator_Pacing(t *testing.T) {
	t.Parallel()

	adj := funcAdjudicator(func(context.Context, model.AdjudicationRequest) (model.Verdict, error) {
		return model.Verdict{SameEntity: true, Justification: "ok"}, nil
	})
	e := NewEscalator(adj, WithInterval(30*time.Millisecond))

	start := time.Now()
	for _, id := range []string{"a", "b", "c"} {
		_, err := e.Escalate(t.Context(), testRequest(id))
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}
