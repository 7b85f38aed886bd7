// Package analyzer classifies the problems in a parsed Makefile. The
// analysis is split into independent passes that read the tree and return
// findings; no pass modifies the tree or sees another pass's output.
package analyzer

import (
	"fmt"
	"slices"

	"github.com/donaldgifford/makepure/internal/ast"
)

// IssueKind is the category of a finding.
type IssueKind int

const (
	NonDeterminism IssueKind = iota
	NonIdempotence
	RaceCondition
	MissingDependency
	Inefficiency
	MissingErrorHandling
	NonPortable
)

var kindNames = [...]string{
	NonDeterminism:       "non-determinism",
	NonIdempotence:       "non-idempotence",
	RaceCondition:        "race-condition",
	MissingDependency:    "missing-dependency",
	Inefficiency:         "inefficiency",
	MissingErrorHandling: "missing-error-handling",
	NonPortable:          "non-portable",
}

func (k IssueKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("IssueKind(%d)", int(k))
}

// Place says which part of an item a finding points into.
type Place int

const (
	// InValue is a variable value or a target-specific assignment.
	InValue Place = iota
	// InPrerequisites is the prerequisite list of a rule.
	InPrerequisites
	// InRecipe is one recipe line, see Finding.Recipe.
	InRecipe
	// InRule is a rule as a whole.
	InRule
)

// Finding is one detected problem.
type Finding struct {
	Kind IssueKind
	// Rule identifies the check, e.g. "unsorted-wildcard". Annotations
	// acknowledge findings by rule.
	Rule string
	Span ast.Span
	// Subject is the variable, target or file the finding is about and
	// Related lists other names involved, such as racing targets.
	Subject string
	Related []string
	Detail  string
	// Item is the item the finding is anchored to.
	Item  ast.Item
	Place Place
	// Recipe is the index of the first recipe line concerned and Count the
	// number of lines, when Place is InRecipe.
	Recipe int
	Count  int
	// Autofix reports that the rewrite suggested for this rule provably
	// keeps the Makefile's meaning at this site.
	Autofix bool
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s [%s] %s", f.Span, f.Kind, f.Rule, f.Detail)
}

// Rule identifiers.
const (
	RuleUnsortedWildcard  = "unsorted-wildcard"
	RuleUnsortedFind      = "unsorted-find"
	RuleShellTimestamp    = "shell-timestamp"
	RuleRandomValue       = "random-value"
	RuleProcessID         = "process-id"
	RuleMkdirWithoutP     = "mkdir-without-p"
	RuleRmWithoutF        = "rm-without-f"
	RuleLnWithoutF        = "ln-without-f"
	RuleOutputRace        = "output-race"
	RuleMissingDependency = "missing-dependency"
	RuleRecursiveMake     = "recursive-make"
	RuleDirectoryRace     = "directory-race"
	RuleShellInRecursive  = "shell-in-recursive-variable"
	RuleConstantRecursive = "constant-recursive-variable"
	RuleUnchainedRecipe   = "unchained-recipe"
	RuleSimilarRules      = "similar-rules"
	RuleUncheckedCommand  = "unchecked-critical-command"
	RuleSilencedCommand   = "silenced-command"
	RuleCdWithoutOneshell = "cd-without-oneshell"
	RuleBashism           = "bashism"
	RuleSourceBuiltin     = "source-builtin"
	RuleGNUOnlyFlag       = "gnu-only-flag"
	RuleNonPortableEcho   = "nonportable-echo"
)

// Pass names, in the order the passes run.
const (
	PassDeterminism   = "determinism"
	PassIdempotence   = "idempotence"
	PassParallel      = "parallel"
	PassPerformance   = "performance"
	PassErrorHandling = "error-handling"
	PassPortability   = "portability"
)

type pass struct {
	name string
	run  func(*model) []Finding
}

var passes = []pass{
	{PassDeterminism, determinism},
	{PassIdempotence, idempotence},
	{PassParallel, parallelSafety},
	{PassPerformance, performance},
	{PassErrorHandling, errorHandling},
	{PassPortability, portability},
}

// Passes returns the pass names in run order.
func Passes() []string {
	names := make([]string, len(passes))
	for i, p := range passes {
		names[i] = p.name
	}
	return names
}

// Options tune the analysis.
type Options struct {
	// SequentialRecipeThreshold is the number of consecutive unchained
	// recipe lines that makes a finding.
	SequentialRecipeThreshold int
	// SimilarRuleThreshold is the number of look-alike explicit rules that
	// makes a finding.
	SimilarRuleThreshold int
	// Disabled names passes that are skipped.
	Disabled []string
}

// DefaultOptions returns the default thresholds with every pass enabled.
func DefaultOptions() Options {
	return Options{SequentialRecipeThreshold: 3, SimilarRuleThreshold: 3}
}

// Analyze runs every pass with the default options.
func Analyze(tree *ast.Ast) []Finding {
	return DefaultOptions().Analyze(tree)
}

// Analyze runs the enabled passes in order and returns their findings
// concatenated. Findings acknowledged by an annotation are left out.
func (o Options) Analyze(tree *ast.Ast) []Finding {
	if o.SequentialRecipeThreshold <= 0 {
		o.SequentialRecipeThreshold = DefaultOptions().SequentialRecipeThreshold
	}
	if o.SimilarRuleThreshold <= 0 {
		o.SimilarRuleThreshold = DefaultOptions().SimilarRuleThreshold
	}
	if tree == nil {
		return nil
	}

	m := newModel(tree, o)
	var out []Finding
	for _, p := range passes {
		if slices.Contains(o.Disabled, p.name) {
			continue
		}
		for _, f := range p.run(m) {
			if f.Item != nil && m.acks.Has(f.Item, f.Rule) {
				continue
			}
			out = append(out, f)
		}
	}
	return out
}
