package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/monument-cli/internal/adjudicate"
	"github.com/sells-group/monument-cli/internal/config"
	"github.com/sells-group/monument-cli/internal/fetcher"
	"github.com/sells-group/monument-cli/internal/geo"
	"github.com/sells-group/monument-cli/internal/merge"
	"github.com/sells-group/monument-cli/internal/model"
	"github.com/sells-group/monument-cli/internal/resilience"
	"github.com/sells-group/monument-cli/internal/resolve"
	"github.com/sells-group/monument-cli/pkg/anthropic"
)

func buildMatcher(c *config.Config) *resolve.Matcher {
	m := c.Match
	return resolve.NewMatcher(
		resolve.WithThresholds(geo.SourceThresholds{
			model.SourceMapProvider:      {HighM: m.MapProvider.HighM, MediumM: m.MapProvider.MediumM},
			model.SourceEncyclopedia:     {HighM: m.Encyclopedia.HighM, MediumM: m.Encyclopedia.MediumM},
			model.SourcePointsOfInterest: {HighM: m.PointsOfInterest.HighM, MediumM: m.PointsOfInterest.MediumM},
		}),
		resolve.WithSimilarityThresholds(m.HighSimilarity, m.MediumSimilarity),
		resolve.WithTieTolerance(m.TieToleranceM),
	)
}

func buildMerger(c *config.Config) (*merge.Merger, error) {
	if c.Merge.PolicyFile == "" {
		return merge.NewMerger(merge.DefaultPolicy()), nil
	}
	p, err := merge.LoadPolicy(c.Merge.PolicyFile)
	if err != nil {
		return nil, err
	}
	return merge.NewMerger(p), nil
}

// buildAdjudicator returns the configured adjudicator, or nil when
// adjudication is disabled. The returned cleanup func is never nil.
func buildAdjudicator(ctx context.Context, c *config.Config) (adjudicate.Adjudicator, func(), error) {
	noop := func() {}
	switch c.Adjudication.Provider {
	case "none":
		return nil, noop, nil
	case "static":
		s, err := adjudicate.LoadStaticAdjudicator(c.Adjudication.VerdictsFile)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case "anthropic":
		client := anthropic.NewClient(c.Anthropic.Key)
		return adjudicate.NewAnthropicAdjudicator(client, c.Anthropic.Model), noop, nil
	case "gemini":
		g, err := adjudicate.NewGeminiAdjudicator(ctx, c.Gemini.Key, c.Gemini.Model)
		if err != nil {
			return nil, noop, err
		}
		return g, func() { _ = g.Close() }, nil
	default:
		return nil, noop, eris.Errorf("unsupported adjudication provider: %s", c.Adjudication.Provider)
	}
}

func buildEscalator(adj adjudicate.Adjudicator, cache adjudicate.VerdictCache, c *config.Config) *adjudicate.Escalator {
	a := c.Adjudication
	return adjudicate.NewEscalator(adj,
		adjudicate.WithCache(cache),
		adjudicate.WithInterval(time.Duration(a.IntervalMS)*time.Millisecond),
		adjudicate.WithTimeout(time.Duration(a.TimeoutSecs)*time.Second),
		adjudicate.WithRetry(resilience.NewRetryConfig(a.MaxAttempts, 0, 0)),
		adjudicate.WithBreaker(resilience.NewBreaker(a.BreakerThreshold, time.Duration(a.BreakerCooldownSecs)*time.Second)),
	)
}

func buildEncyclopediaFetcher(c *config.Config) *fetcher.EncyclopediaFetcher {
	f := c.Fetch
	client := fetcher.NewHTTPClient(fetcher.HTTPOptions{
		UserAgent:         f.UserAgent,
		Timeout:           time.Duration(f.TimeoutSecs) * time.Second,
		RequestsPerSecond: f.RequestsPerSecond,
		Retry:             resilience.NewRetryConfig(f.MaxAttempts, 0, 0),
	})
	return fetcher.NewEncyclopediaFetcher(client, fetcher.EncyclopediaOptions{
		BaseURL:     f.EncyclopediaURL,
		QuerySuffix: f.QuerySuffix,
	})
}

func buildVerifier(c *config.Config) *resolve.Verifier {
	return resolve.NewVerifier(c.Match.RedirectToleranceM)
}
