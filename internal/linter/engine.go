package linter

import (
	"fmt"

	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/fix"
	"github.com/donaldgifford/makepure/internal/source"
)

// DefaultMaxFixIterations bounds the lint, resolve and apply loop of
// FixSource.
const DefaultMaxFixIterations = 5

// Config selects and tunes rules.
type Config struct {
	// Severity overrides a rule's default severity by code.
	Severity map[string]diag.Severity
	// Disabled turns rules off by code.
	Disabled map[string]bool
	// MaxLineLength is passed to the lexer for Makefiles.
	MaxLineLength int
	// MaxFixIterations bounds FixSource; zero selects the default.
	MaxFixIterations int
}

// Run applies each rule that handles kind to f and collects the
// diagnostics. A Makefile that does not parse returns the parse error.
func Run(f *source.File, kind source.Kind, rules []Rule, cfg Config) (diag.Result, error) {
	ctx, err := NewContext(f, kind, cfg.MaxLineLength)
	if err != nil {
		return diag.Result{}, err
	}
	for _, r := range rules {
		if !r.Applies(kind) || cfg.Disabled[r.Code()] {
			continue
		}
		ctx.rule = r
		ctx.severity = r.Severity()
		if s, ok := cfg.Severity[r.Code()]; ok {
			ctx.severity = s
		}
		r.Check(ctx)
	}
	return diag.NewResult(ctx.diags), nil
}

// Fixed is the outcome of FixSource.
type Fixed struct {
	// Content is the text after all fixes.
	Content string
	// Applied counts the fixes applied over all iterations.
	Applied int
	// Iterations counts the rounds that applied at least one fix.
	Iterations int
	// Result holds the diagnostics remaining in Content.
	Result diag.Result
}

// Changed reports whether any fix was applied.
func (f Fixed) Changed() bool {
	return f.Applied > 0
}

// FixSource lints content, applies the non-conflicting fixes and repeats
// until no fix applies or the iteration limit is reached. Fixes dropped
// because they overlap a stronger fix get another chance in the next
// round, against the updated text.
func FixSource(name, content string, kind source.Kind, rules []Rule, cfg Config) (Fixed, error) {
	limit := cfg.MaxFixIterations
	if limit <= 0 {
		limit = DefaultMaxFixIterations
	}

	out := Fixed{Content: content}
	for out.Iterations < limit {
		res, err := Run(source.NewFile(name, out.Content), kind, rules, cfg)
		if err != nil {
			return out, err
		}
		fixes := fix.Resolve(res.Fixes())
		if len(fixes) == 0 {
			out.Result = res
			return out, nil
		}
		next, err := fix.Apply(out.Content, fixes)
		if err != nil {
			return out, fmt.Errorf("applying fixes to %s: %w", name, err)
		}
		if next == out.Content {
			out.Result = res
			return out, nil
		}
		out.Content = next
		out.Applied += len(fixes)
		out.Iterations++
	}

	res, err := Run(source.NewFile(name, out.Content), kind, rules, cfg)
	if err != nil {
		return out, err
	}
	out.Result = res
	return out, nil
}
