package adjudicate

import (
	"context"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"google.golang.org/api/option"

	"github.com/sells-group/monument-cli/internal/model"
)

// textGenerator produces a text completion for a prompt.
type textGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GeminiAdjudicator asks a Gemini model for a verdict.
type GeminiAdjudicator struct {
	gen    textGenerator
	closer func() error
}

// NewGeminiAdjudicator creates a Gemini-backed adjudicator. Close releases
// the underlying client.
func NewGeminiAdjudicator(ctx context.Context, apiKey, modelName string) (*GeminiAdjudicator, error) {
	if apiKey == "" {
		return nil, eris.New("adjudicate: gemini api key not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, eris.Wrap(err, "adjudicate: create gemini client")
	}

	m := client.GenerativeModel(modelName)
	m.SetTemperature(0)
	m.ResponseMIMEType = "application/json"
	m.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))

	return &GeminiAdjudicator{gen: &genaiGenerator{model: m}, closer: client.Close}, nil
}

// Adjudicate implements Adjudicator.
func (g *GeminiAdjudicator) Adjudicate(ctx context.Context, req model.AdjudicationRequest) (model.Verdict, error) {
	text, err := g.gen.GenerateText(ctx, BuildPrompt(req))
	if err != nil {
		return model.Verdict{}, eris.Wrapf(err, "adjudicate: gemini %s", req.Key)
	}
	return ParseVerdict(text)
}

// Close releases the client.
func (g *GeminiAdjudicator) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}

type genaiGenerator struct {
	model *genai.GenerativeModel
}

func (g *genaiGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", eris.New("adjudicate: no candidates returned from gemini")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", eris.New("adjudicate: empty content returned from gemini")
	}
	if txt, ok := cand.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}
	return "", eris.New("adjudicate: unexpected response format from gemini")
}
