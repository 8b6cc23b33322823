// Package trial compiles trial definitions into eligibility functions and
// matches patient records against them.
package trial

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/trial-eligibility-server/internal/domain"
	"github.com/trial-eligibility-server/internal/rules"
)

// ParseExpression parses a criterion expression into an unbound function.
//
// Grammar:
//
//	expr   = RULE [ "(" expr { "," expr } ")" ] [ "[" param { "," param } "]" ]
//	param  = any text without "," or "]", trimmed
//
// Rule names are case-insensitive. Examples:
//
//	IS_AT_LEAST_X_YEARS_OLD[18]
//	AND(IS_MALE, NOT(CURRENTLY_GETS_MEDICATION_OF_CATEGORY_X[Bone resorptive]))
func ParseExpression(expression string) (rules.EligibilityFunction, error) {
	p := &parser{input: expression}
	fn, err := p.parseFunction()
	if err != nil {
		return rules.EligibilityFunction{}, err
	}
	p.skipSpace()
	if !p.done() {
		return rules.EligibilityFunction{}, p.errorf("unexpected %q after expression", p.input[p.pos:])
	}
	return fn, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) parseFunction() (rules.EligibilityFunction, error) {
	p.skipSpace()
	start := p.pos
	for !p.done() && isRuleChar(rune(p.input[p.pos])) {
		p.pos++
	}
	if start == p.pos {
		return rules.EligibilityFunction{}, p.errorf("expected rule name")
	}

	rule, err := rules.ParseRule(p.input[start:p.pos])
	if err != nil {
		return rules.EligibilityFunction{}, fmt.Errorf("criterion %q: %w", p.input, err)
	}
	fn := rules.EligibilityFunction{Rule: rule}

	p.skipSpace()
	if p.peek('(') {
		p.pos++
		for {
			child, err := p.parseFunction()
			if err != nil {
				return rules.EligibilityFunction{}, err
			}
			fn.Children = append(fn.Children, child)
			p.skipSpace()
			if p.peek(',') {
				p.pos++
				continue
			}
			if p.peek(')') {
				p.pos++
				break
			}
			return rules.EligibilityFunction{}, p.errorf("expected ',' or ')'")
		}
		p.skipSpace()
	}

	if p.peek('[') {
		p.pos++
		end := strings.IndexByte(p.input[p.pos:], ']')
		if end < 0 {
			return rules.EligibilityFunction{}, p.errorf("missing ']'")
		}
		for _, param := range strings.Split(p.input[p.pos:p.pos+end], ",") {
			fn.Parameters = append(fn.Parameters, strings.TrimSpace(param))
		}
		p.pos += end + 1
	}

	return fn, nil
}

func (p *parser) skipSpace() {
	for !p.done() && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *parser) peek(c byte) bool {
	return !p.done() && p.input[p.pos] == c
}

func (p *parser) done() bool {
	return p.pos >= len(p.input)
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: criterion %q at offset %d: %s",
		domain.ErrInvalidTrial, p.input, p.pos, fmt.Sprintf(format, args...))
}

func isRuleChar(r rune) bool {
	return r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
