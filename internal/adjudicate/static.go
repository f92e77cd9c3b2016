package adjudicate

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/monument-cli/internal/model"
)

// StaticAdjudicator answers from a fixed table keyed by DecisionKey.String().
// Unknown keys fall back to Default, or fail with ErrUnavailable when
// Default is nil. Used for offline runs and tests.
type StaticAdjudicator struct {
	Verdicts map[string]model.Verdict
	Default  *model.Verdict
}

// Adjudicate implements Adjudicator.
func (s *StaticAdjudicator) Adjudicate(ctx context.Context, req model.AdjudicationRequest) (model.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return model.Verdict{}, err
	}
	if v, ok := s.Verdicts[req.Key.String()]; ok {
		return v, nil
	}
	if s.Default != nil {
		return *s.Default, nil
	}
	return model.Verdict{}, eris.Wrapf(ErrUnavailable, "no verdict for %s", req.Key)
}

// verdictFile is the on-disk layout of a static verdict table. JSON is
// accepted as well as YAML.
type verdictFile struct {
	Default  *model.Verdict           `yaml:"default"`
	Verdicts map[string]model.Verdict `yaml:"verdicts"`
}

// LoadStaticAdjudicator reads a verdict table keyed by
// "record|source|candidate".
func LoadStaticAdjudicator(path string) (*StaticAdjudicator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "adjudicate: read verdicts %s", path)
	}
	var vf verdictFile
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return nil, eris.Wrapf(err, "adjudicate: parse verdicts %s", path)
	}
	for key := range vf.Verdicts {
		if strings.Count(key, "|") != 2 {
			return nil, eris.Errorf("adjudicate: malformed verdict key %q", key)
		}
	}
	return &StaticAdjudicator{Verdicts: vf.Verdicts, Default: vf.Default}, nil
}
