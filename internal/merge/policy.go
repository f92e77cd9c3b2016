package merge

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/monument-cli/internal/model"
)

// Rule is how a field accepts enrichment values.
type Rule string

const (
	// RuleFillOnly sets the field only while it is empty, at any accepted tier.
	RuleFillOnly Rule = "fill_only"
	// RuleTierGated overwrites at tier high and fills at tier medium.
	RuleTierGated Rule = "tier_gated"
)

// Policy maps each mergeable field to its rule.
type Policy map[model.Field]Rule

// DefaultPolicy returns the built-in field rules.
func DefaultPolicy() Policy {
	return Policy{
		model.FieldCategory:         RuleFillOnly,
		model.FieldDescription:      RuleFillOnly,
		model.FieldWebsite:          RuleFillOnly,
		model.FieldOpeningHours:     RuleFillOnly,
		model.FieldPhone:            RuleFillOnly,
		model.FieldEncyclopediaURL:  RuleFillOnly,
		model.FieldMapURL:           RuleFillOnly,
		model.FieldPriceLevel:       RuleFillOnly,
		model.FieldTicketPrice:      RuleFillOnly,
		model.FieldPriceConditions:  RuleFillOnly,
		model.FieldPaymentMethods:   RuleFillOnly,
		model.FieldVisitingServices: RuleFillOnly,
		model.FieldCoordinates:      RuleTierGated,
		model.FieldCity:             RuleTierGated,
		model.FieldAddress:          RuleTierGated,
	}
}

// Fields returns the policy's fields in a stable order.
func (p Policy) Fields() []model.Field {
	out := make([]model.Field, 0, len(p))
	for f := range p {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// policyFile is the YAML layout of a policy override file.
type policyFile struct {
	Merge struct {
		Fields map[string]string `yaml:"fields"`
	} `yaml:"merge"`
}

// LoadPolicy reads field rule overrides from a YAML file and applies them on
// top of DefaultPolicy. Unknown fields or rules are rejected.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "merge: read policy %s", path)
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, eris.Wrap(err, "merge: parse policy")
	}

	p := DefaultPolicy()
	for name, rule := range pf.Merge.Fields {
		f := model.Field(name)
		if _, ok := p[f]; !ok {
			return nil, eris.Errorf("merge: unknown field %q", name)
		}
		r := Rule(rule)
		if r != RuleFillOnly && r != RuleTierGated {
			return nil, eris.Errorf("merge: unknown rule %q for field %q", rule, name)
		}
		p[f] = r
	}
	return p, nil
}
