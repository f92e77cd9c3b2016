package adjudicate

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/sells-group/monument-cli/internal/model"
)

const systemPrompt = `You verify whether two records describe the same real-world monument.
Answer with a single JSON object and nothing else:
{"same_entity": true or false, "justification": "one short sentence"}`

// BuildPrompt renders the user message for a request.
func BuildPrompt(req model.AdjudicationRequest) string {
	var b strings.Builder
	b.WriteString("Record A (reference list):\n")
	writeSide(&b, req.BaseName, req.BaseCategory, req.BaseDescription)
	b.WriteString("\nRecord B (")
	b.WriteString(string(req.Key.Source))
	b.WriteString("):\n")
	writeSide(&b, req.CandidateName, req.CandidateCategory, req.CandidateDescription)
	b.WriteString("\nDo A and B refer to the same monument?")
	return b.String()
}

func writeSide(b *strings.Builder, name, category, description string) {
	b.WriteString("- name: ")
	b.WriteString(name)
	b.WriteString("\n")
	if category != "" {
		b.WriteString("- category: ")
		b.WriteString(category)
		b.WriteString("\n")
	}
	if description != "" {
		b.WriteString("- description: ")
		b.WriteString(description)
		b.WriteString("\n")
	}
}

// ParseVerdict extracts {"same_entity": bool, "justification": string} from
// a model reply. Surrounding prose or code fences are tolerated; anything
// else fails with ErrUnavailable.
func ParseVerdict(text string) (model.Verdict, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return model.Verdict{}, eris.Wrap(ErrUnavailable, "no JSON object in response")
	}
	raw := text[start : end+1]
	if !gjson.Valid(raw) {
		return model.Verdict{}, eris.Wrap(ErrUnavailable, "malformed JSON in response")
	}

	same := gjson.Get(raw, "same_entity")
	if same.Type != gjson.True && same.Type != gjson.False {
		return model.Verdict{}, eris.Wrap(ErrUnavailable, "same_entity missing or not a boolean")
	}
	just := gjson.Get(raw, "justification")
	if just.Type != gjson.String {
		return model.Verdict{}, eris.Wrap(ErrUnavailable, "justification missing or not a string")
	}
	return model.Verdict{SameEntity: same.Bool(), Justification: just.String()}, nil
}
