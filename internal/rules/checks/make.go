package checks

import (
	"fmt"
	"slices"
	"strings"

	"github.com/donaldgifford/makepure/internal/analyzer"
	"github.com/donaldgifford/makepure/internal/ast"
	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/lexer"
	"github.com/donaldgifford/makepure/internal/linter"
	"github.com/donaldgifford/makepure/internal/parser"
	"github.com/donaldgifford/makepure/internal/source"
)

// UnsortedWildcard reports $(wildcard ...) and $(shell find ...) results
// that are used without $(sort ...).
type UnsortedWildcard struct{}

func (UnsortedWildcard) Code() string                  { return "MAKE001" }
func (UnsortedWildcard) Severity() diag.Severity       { return diag.Warning }
func (UnsortedWildcard) Applies(kind source.Kind) bool { return makefileOnly(kind) }

func (UnsortedWildcard) Check(ctx *linter.Context) {
	for _, seg := range ctx.Segments {
		if seg.Kind != linter.SegmentMake && seg.Kind != linter.SegmentRecipe {
			continue
		}
		for _, match := range []func(parser.Call) bool{analyzer.IsWildcard, analyzer.IsFind} {
			for _, c := range analyzer.UnsortedCalls(seg.Text, match) {
				call := seg.Text[c.Start:c.End]
				span := seg.Span(c.Start, c.End)
				ctx.Report(span,
					fmt.Sprintf("%s is not sorted; its order depends on the file system", call),
					&diag.Fix{
						Span:        span,
						Replacement: "$(sort " + call + ")",
						Priority:    diag.PriorityRewrite,
						Description: "wrap in $(sort ...)",
					})
			}
		}
	}
}

// RecursiveMake reports sub-makes started as "make" instead of $(MAKE),
// which loses the command line flags and the jobserver.
type RecursiveMake struct{}

func (RecursiveMake) Code() string                  { return "MAKE002" }
func (RecursiveMake) Severity() diag.Severity       { return diag.Warning }
func (RecursiveMake) Applies(kind source.Kind) bool { return makefileOnly(kind) }

func (RecursiveMake) Check(ctx *linter.Context) {
	for _, seg := range ctx.Segments {
		if seg.Kind != linter.SegmentRecipe {
			continue
		}
		for _, cmd := range seg.Commands {
			w, ok := cmd.NameWord()
			if !ok || w.Raw != "make" {
				continue
			}
			span := seg.Span(w.Start, w.End)
			ctx.Report(span, "recursive make should be called as $(MAKE)", &diag.Fix{
				Span:        span,
				Replacement: "$(MAKE)",
				Priority:    diag.PriorityRewrite,
				Description: "use $(MAKE)",
			})
		}
	}
}

// ShellInRecursiveVariable reports "=" variables whose value runs
// $(shell ...), which make repeats on every reference. The fix switches to
// ":=" where that keeps the value.
type ShellInRecursiveVariable struct{}

func (ShellInRecursiveVariable) Code() string                  { return "MAKE003" }
func (ShellInRecursiveVariable) Severity() diag.Severity       { return diag.Warning }
func (ShellInRecursiveVariable) Applies(kind source.Kind) bool { return makefileOnly(kind) }

func (ShellInRecursiveVariable) Check(ctx *linter.Context) {
	opts := analyzer.DefaultOptions()
	for _, p := range analyzer.Passes() {
		if p != analyzer.PassPerformance {
			opts.Disabled = append(opts.Disabled, p)
		}
	}
	for _, f := range opts.Analyze(ctx.Tree) {
		v, ok := f.Item.(*ast.Variable)
		if f.Rule != analyzer.RuleShellInRecursive || !ok {
			continue
		}
		l, ok := ctx.LineAt(v.Span.Start)
		if !ok {
			continue
		}
		eq := strings.IndexByte(l.Raw, '=')
		if eq < 0 {
			continue
		}
		at := l.Offset + eq
		var fix *diag.Fix
		if f.Autofix {
			fix = insert(at, ":", diag.PriorityRewrite, "use :=")
		}
		ctx.Report(source.Span{Start: at, End: at + 1}, f.Detail, fix)
	}
}

// Target names that conventionally never name a file.
var phonyNames = []string{
	"all", "build", "check", "clean", "dist", "distclean", "docs", "fmt", "format",
	"help", "install", "lint", "release", "run", "test", "uninstall",
}

// MissingPhony reports conventional non-file targets that are not
// declared .PHONY.
type MissingPhony struct{}

func (MissingPhony) Code() string                  { return "MAKE004" }
func (MissingPhony) Severity() diag.Severity       { return diag.Warning }
func (MissingPhony) Applies(kind source.Kind) bool { return makefileOnly(kind) }

func (MissingPhony) Check(ctx *linter.Context) {
	ast.Walk(ctx.Tree.Items, func(it ast.Item) bool {
		t, ok := it.(*ast.Target)
		if !ok || t.IsPhony || t.Assignment != nil {
			return true
		}
		var missing []string
		for _, name := range t.Names() {
			if slices.Contains(phonyNames, name) {
				missing = append(missing, name)
			}
		}
		if len(missing) == 0 {
			return true
		}
		l, ok := ctx.LineAt(t.Span.Start)
		if !ok {
			return true
		}
		names := strings.Join(missing, " ")
		ctx.Report(ctx.LineSpan(l),
			fmt.Sprintf("target %s does not create a file of that name; declare it .PHONY", names),
			insert(l.Offset, ".PHONY: "+names+"\n", diag.PriorityRewrite, "add .PHONY"))
		return true
	})
}

// SpaceIndentedRecipe reports recipe lines indented with spaces, which
// make rejects with "missing separator".
type SpaceIndentedRecipe struct{}

func (SpaceIndentedRecipe) Code() string                  { return "MAKE008" }
func (SpaceIndentedRecipe) Severity() diag.Severity       { return diag.Error }
func (SpaceIndentedRecipe) Applies(kind source.Kind) bool { return makefileOnly(kind) }

func (SpaceIndentedRecipe) Check(ctx *linter.Context) {
	for _, l := range ctx.Lines {
		if l.Kind != lexer.KindSpaceRecipe {
			continue
		}
		indent := len(l.Raw) - len(strings.TrimLeft(l.Raw, " \t"))
		span := source.Span{Start: l.Offset, End: l.Offset + indent}
		ctx.Report(span, "recipe line is indented with spaces; make requires a tab", &diag.Fix{
			Span:        span,
			Replacement: "\t",
			Priority:    diag.PriorityRewrite,
			Description: "indent with a tab",
		})
	}
}
