// Package rules manages registration of lint rules.
package rules

import (
	"github.com/donaldgifford/makepure/internal/linter"
)

var lintRules []linter.Rule

// RegisterRule adds a lint rule to the registry. Rules run in the order
// they are registered.
func RegisterRule(r linter.Rule) {
	lintRules = append(lintRules, r)
}

// Rules returns all registered lint rules in execution order.
func Rules() []linter.Rule {
	return lintRules
}

// Lookup returns the registered rule with the given code.
func Lookup(code string) (linter.Rule, bool) {
	for _, r := range lintRules {
		if r.Code() == code {
			return r, true
		}
	}
	return nil, false
}
