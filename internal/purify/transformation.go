package purify

import "github.com/donaldgifford/makepure/internal/analyzer"

// Stage groups transformations in the order purification reports them.
type Stage int

const (
	StageSemantic Stage = iota
	StageParallel
	StageReproducibility
	StagePerformance
	StageErrorHandling
	StagePortability
)

var stageNames = [...]string{
	StageSemantic:        "semantic",
	StageParallel:        "parallel-safety",
	StageReproducibility: "reproducibility",
	StagePerformance:     "performance",
	StageErrorHandling:   "error-handling",
	StagePortability:     "portability",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// StageOf returns the stage that handles findings of kind k.
func StageOf(k analyzer.IssueKind) Stage {
	switch k {
	case analyzer.NonIdempotence:
		return StageSemantic
	case analyzer.RaceCondition, analyzer.MissingDependency:
		return StageParallel
	case analyzer.NonDeterminism:
		return StageReproducibility
	case analyzer.Inefficiency:
		return StagePerformance
	case analyzer.MissingErrorHandling:
		return StageErrorHandling
	}
	return StagePortability
}

// Transformation is a rewrite applied to the tree, or a recommendation
// that was reported but not applied. The set of implementations is closed.
type Transformation interface {
	// Kind names the rewrite, e.g. "wrap-with-sort".
	Kind() string
	Stage() Stage
	// Subjects lists the variables or targets the rewrite touched.
	Subjects() []string
	Reason() string
	// Safe reports whether the rewrite was applied to the tree. Unsafe
	// transformations are recommendations only.
	Safe() bool

	transformation()
}

// Base holds the fields every transformation shares.
type Base struct {
	In    Stage
	Names []string
	Why   string
}

func (b Base) Stage() Stage       { return b.In }
func (b Base) Subjects() []string { return b.Names }
func (b Base) Reason() string     { return b.Why }
func (b Base) Safe() bool         { return true }
func (b Base) transformation()    {}

// WrapWithSort wraps a $(wildcard ...) or $(shell find ...) in $(sort ...).
type WrapWithSort struct {
	Base
	Call string
}

// StripProcessID removes process id expansions, and the separator in
// front of them, from a name.
type StripProcessID struct {
	Base
	Tokens []string
}

// AddCommandFlag adds an option that makes a command succeed when its
// work is already done, such as mkdir -p.
type AddCommandFlag struct {
	Base
	Command string
	Flag    string
}

// AddOrderOnlyPrerequisite orders Target after Prerequisite.
type AddOrderOnlyPrerequisite struct {
	Base
	Target       string
	Prerequisite string
}

// ReplaceRecursiveWithSimple turns "=" into ":=".
type ReplaceRecursiveWithSimple struct {
	Base
	Variable string
}

// ChainRecipe joins consecutive recipe lines with &&.
type ChainRecipe struct {
	Base
	Lines int
}

// GuardCommand replaces the ";" after a critical command with "&&".
type GuardCommand struct {
	Base
	Command string
}

// ReplaceSourceWithDot replaces the bash source builtin with ".".
type ReplaceSourceWithDot struct {
	Base
}

// RecommendDirective suggests adding a global special target.
type RecommendDirective struct {
	Base
	Directive string
}

// Recommendation is an advisory finding recorded with an annotation.
type Recommendation struct {
	Base
	Rule string
	Text string
}

func (*WrapWithSort) Kind() string               { return "wrap-with-sort" }
func (*StripProcessID) Kind() string             { return "strip-process-id" }
func (*AddCommandFlag) Kind() string             { return "add-command-flag" }
func (*AddOrderOnlyPrerequisite) Kind() string   { return "add-order-only-prerequisite" }
func (*ReplaceRecursiveWithSimple) Kind() string { return "replace-recursive-with-simple" }
func (*ChainRecipe) Kind() string                { return "chain-recipe" }
func (*GuardCommand) Kind() string               { return "guard-command" }
func (*ReplaceSourceWithDot) Kind() string       { return "replace-source-with-dot" }
func (*RecommendDirective) Kind() string         { return "recommend-directive" }
func (*Recommendation) Kind() string             { return "recommendation" }

func (*RecommendDirective) Safe() bool { return false }
func (*Recommendation) Safe() bool     { return false }
