// Package purify rewrites a Makefile syntax tree so that it builds the
// same way every time it runs.
//
// Purify works on a deep copy of its input. Each round analyzes the copy,
// applies the safe rewrite for every finding that has one and records the
// rest as recommendations. A recommendation is written into the tree as a
// "# makepure: <rule> <reason>" comment above the item, which the analyzer
// reads as an acknowledgement, so purifying the output again changes
// nothing. Rounds repeat until the analysis comes back clean.
package purify

import (
	"slices"

	"github.com/donaldgifford/makepure/internal/analyzer"
	"github.com/donaldgifford/makepure/internal/ast"
)

// DefaultMaxRounds bounds the rewrite rounds of one Purify call.
const DefaultMaxRounds = 8

// Options tune purification.
type Options struct {
	// MaxRounds bounds the analysis and rewrite rounds. In the last round
	// every remaining finding is recorded as a recommendation.
	MaxRounds int
	Analyzer  analyzer.Options
}

// DefaultOptions returns the default round bound and analyzer options.
func DefaultOptions() Options {
	return Options{MaxRounds: DefaultMaxRounds, Analyzer: analyzer.DefaultOptions()}
}

// Result is the outcome of purification.
type Result struct {
	// Ast is the purified tree. The input tree is never modified.
	Ast             *ast.Ast
	Transformations []Transformation
	Report          string
	// Rounds is the number of rounds that found something to do.
	Rounds int
	// Findings are the problems found in the input.
	Findings []analyzer.Finding
}

// Applied returns the transformations that changed the tree.
func (r Result) Applied() []Transformation {
	var out []Transformation
	for _, t := range r.Transformations {
		if t.Safe() {
			out = append(out, t)
		}
	}
	return out
}

// Recommended returns the transformations that were only reported.
func (r Result) Recommended() []Transformation {
	var out []Transformation
	for _, t := range r.Transformations {
		if !t.Safe() {
			out = append(out, t)
		}
	}
	return out
}

// Purify purifies tree with the default options.
func Purify(tree *ast.Ast) Result {
	return DefaultOptions().Purify(tree)
}

// attempt identifies a finding across rounds.
type attempt struct {
	item   ast.Item
	rule   string
	detail string
}

// note is an annotation waiting to be inserted above item.
type note struct {
	item   ast.Item
	rule   string
	reason string
}

// Purify runs the rounds and returns the purified copy of tree.
func (o Options) Purify(tree *ast.Ast) Result {
	if o.MaxRounds <= 0 {
		o.MaxRounds = DefaultMaxRounds
	}
	work := tree.Clone()
	if work == nil {
		work = &ast.Ast{}
	}
	res := Result{Ast: work}

	tried := map[attempt]int{}
	for round := 1; round <= o.MaxRounds; round++ {
		findings := o.Analyzer.Analyze(work)
		if round == 1 {
			res.Findings = findings
		}
		if len(findings) == 0 {
			break
		}
		res.Rounds = round
		last := round == o.MaxRounds

		ordered := slices.Clone(findings)
		slices.SortStableFunc(ordered, func(a, b analyzer.Finding) int {
			return int(StageOf(a.Kind)) - int(StageOf(b.Kind))
		})

		var notes []note
		noted := map[attempt]bool{}
		restructured := map[ast.Item]bool{}
		for _, f := range ordered {
			if restructured[f.Item] {
				continue
			}
			key := attempt{f.Item, f.Rule, f.Detail}
			if f.Autofix && !last && (tried[key] == 0 || tried[key] == round) {
				tried[key] = round
				if t, ok := rewrite(f); ok {
					res.Transformations = append(res.Transformations, t)
					if _, ok := t.(*ChainRecipe); ok {
						restructured[f.Item] = true
					}
				}
				continue
			}
			if noted[key] {
				continue
			}
			noted[key] = true
			notes = append(notes, note{item: f.Item, rule: f.Rule, reason: f.Detail})
			res.Transformations = append(res.Transformations, &Recommendation{
				Base: Base{In: StageOf(f.Kind), Names: subjects(f), Why: f.Detail},
				Rule: f.Rule,
				Text: f.Detail,
			})
		}

		if round == 1 {
			res.Transformations = append(res.Transformations, directives(work, findings)...)
		}
		work.Items = annotate(work.Items, notes)
	}

	res.Report = report(res)
	return res
}

func subjects(f analyzer.Finding) []string {
	return append([]string{f.Subject}, f.Related...)
}

// Global directives and the stage whose findings make them worth adding.
var globalDirectives = []struct {
	stage     Stage
	directive string
	why       string
}{
	{StageParallel, ".NOTPARALLEL", "targets race when make runs jobs in parallel; .NOTPARALLEL serializes this Makefile"},
	{StagePerformance, ".SUFFIXES", "an empty .SUFFIXES: disables the built-in suffix rules make searches for every file"},
	{StageErrorHandling, ".DELETE_ON_ERROR", "make keeps half-written targets after a failing recipe unless .DELETE_ON_ERROR is set"},
}

// directives recommends global special targets. A directive is recommended
// only when findings of its stage were reported and the tree does not
// already declare it.
func directives(tree *ast.Ast, findings []analyzer.Finding) []Transformation {
	var out []Transformation
	for _, d := range globalDirectives {
		if tree.HasSpecialTarget(d.directive) {
			continue
		}
		if !slices.ContainsFunc(findings, func(f analyzer.Finding) bool { return StageOf(f.Kind) == d.stage }) {
			continue
		}
		out = append(out, &RecommendDirective{
			Base:      Base{In: d.stage, Why: d.why},
			Directive: d.directive,
		})
	}
	return out
}

// annotate inserts the annotation comments of notes directly above their
// items, descending into conditionals.
func annotate(items []ast.Item, notes []note) []ast.Item {
	if len(notes) == 0 {
		return items
	}
	above := map[ast.Item][]*ast.Comment{}
	for _, n := range notes {
		above[n.item] = append(above[n.item], ast.NewAnnotation(n.rule, n.reason))
	}
	return insertAbove(items, above)
}

func insertAbove(items []ast.Item, above map[ast.Item][]*ast.Comment) []ast.Item {
	var out []ast.Item
	for _, it := range items {
		for _, c := range above[it] {
			out = append(out, c)
		}
		if c, ok := it.(*ast.Conditional); ok {
			c.Then = insertAbove(c.Then, above)
			c.Else = insertAbove(c.Else, above)
		}
		out = append(out, it)
	}
	return out
}
