package adjudicate

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/monument-cli/internal/model"
	"github.com/sells-group/monument-cli/internal/resilience"
	"github.com/sells-group/monument-cli/pkg/anthropic"
)

// AnthropicAdjudicator asks a Claude model for a verdict.
type AnthropicAdjudicator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicAdjudicator creates an adjudicator over an Anthropic client.
func NewAnthropicAdjudicator(client anthropic.Client, modelName string) *AnthropicAdjudicator {
	return &AnthropicAdjudicator{client: client, model: modelName, maxTokens: 256}
}

// Adjudicate implements Adjudicator.
func (a *AnthropicAdjudicator) Adjudicate(ctx context.Context, req model.AdjudicationRequest) (model.Verdict, error) {
	temp := 0.0
	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: BuildPrompt(req)}},
		Temperature: &temp,
	})
	if err != nil {
		if code := anthropic.StatusCode(err); resilience.IsTransientHTTPStatus(code) {
			return model.Verdict{}, resilience.NewTransientError(err, code)
		}
		return model.Verdict{}, eris.Wrapf(err, "adjudicate: anthropic %s", req.Key)
	}
	resp.Usage.LogCost(a.model, "adjudicate")

	return ParseVerdict(resp.Text())
}
