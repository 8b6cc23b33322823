package rules

import (
	"strings"
)

// EligibilityFunction is an unbound criterion: a rule with its parameters,
// or a composite rule with its child functions.
type EligibilityFunction struct {
	Rule       EligibilityRule       `json:"rule" yaml:"rule"`
	Parameters []string              `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Children   []EligibilityFunction `json:"children,omitempty" yaml:"children,omitempty"`
}

// NewFunction creates a function with plain parameters.
func NewFunction(rule EligibilityRule, parameters ...string) EligibilityFunction {
	return EligibilityFunction{Rule: rule, Parameters: parameters}
}

// NewComposite creates a composite function over the given children.
func NewComposite(rule EligibilityRule, children ...EligibilityFunction) EligibilityFunction {
	return EligibilityFunction{Rule: rule, Children: children}
}

// String renders the function in criterion expression syntax, for example
// AND(IS_MALE, CURRENTLY_GETS_CYP_X_INDUCING_MEDICATION[3A4]).
func (f EligibilityFunction) String() string {
	var b strings.Builder
	b.WriteString(string(f.Rule))
	if len(f.Children) > 0 {
		b.WriteByte('(')
		for i, child := range f.Children {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(child.String())
		}
		b.WriteByte(')')
	}
	if len(f.Parameters) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(f.Parameters, ", "))
		b.WriteByte(']')
	}
	return b.String()
}

// Rules returns every rule referenced by the function tree, depth first.
func (f EligibilityFunction) Rules() []EligibilityRule {
	rules := []EligibilityRule{f.Rule}
	for _, child := range f.Children {
		rules = append(rules, child.Rules()...)
	}
	return rules
}
