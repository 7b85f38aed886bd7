package checks

import (
	"fmt"
	"slices"
	"strings"

	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/linter"
	"github.com/donaldgifford/makepure/internal/shell"
	"github.com/donaldgifford/makepure/internal/source"
)

// UselessEcho reports $(echo ...) and `echo ...`, which expand to their
// own arguments.
type UselessEcho struct{}

func (UselessEcho) Code() string             { return "SC2116" }
func (UselessEcho) Severity() diag.Severity  { return diag.Info }
func (UselessEcho) Applies(source.Kind) bool { return true }

func (UselessEcho) Check(ctx *linter.Context) {
	commands(ctx, func(seg linter.Segment, _ int, cmd shell.Command) {
		if !cmd.Substituted || cmd.Op != "" || cmd.NameIndex() != 0 || cmd.Name() != "echo" {
			return
		}
		args := cmd.Args()
		if len(args) != len(cmd.Words)-1 {
			return
		}
		for _, a := range args {
			if strings.HasPrefix(a.Value, "-") {
				return
			}
		}
		start, end, ok := substitution(seg, cmd)
		if !ok {
			return
		}
		var inner string
		if len(args) > 0 {
			inner = seg.Text[args[0].Start:args[len(args)-1].End]
		}
		span := seg.Span(start, end)
		ctx.Report(span, fmt.Sprintf("useless echo: %s is just %s", seg.Text[start:end], inner), &diag.Fix{
			Span:        span,
			Replacement: inner,
			Priority:    diag.PriorityRemove,
			Description: "remove the echo",
		})
	})
}

// substitution returns the bounds of the $(...) or backquotes that hold
// cmd and nothing else.
func substitution(seg linter.Segment, cmd shell.Command) (start, end int, ok bool) {
	text := seg.Text
	open := cmd.Start - 1
	for open >= 0 && (text[open] == ' ' || text[open] == '\t') {
		open--
	}
	closeAt := cmd.End
	for closeAt < len(text) && (text[closeAt] == ' ' || text[closeAt] == '\t') {
		closeAt++
	}
	if open < 0 || closeAt >= len(text) {
		return 0, 0, false
	}

	switch {
	case text[open] == '`' && text[closeAt] == '`':
		return open, closeAt + 1, true
	case text[open] == '(' && text[closeAt] == ')':
		lead := dollar(seg.Dialect)
		start = open - len(lead)
		if start < 0 || text[start:open] != lead || (start > 0 && text[start-1] == '$' && seg.Dialect == shell.Posix) {
			return 0, 0, false
		}
		return start, closeAt + 1, true
	}
	return 0, 0, false
}

// UnquotedSubstitution reports $(...) outside double quotes, whose output
// is split into words and globbed.
type UnquotedSubstitution struct{}

func (UnquotedSubstitution) Code() string             { return "SC2046" }
func (UnquotedSubstitution) Severity() diag.Severity  { return diag.Warning }
func (UnquotedSubstitution) Applies(source.Kind) bool { return true }

func (UnquotedSubstitution) Check(ctx *linter.Context) {
	commands(ctx, func(seg linter.Segment, _ int, cmd shell.Command) {
		for _, w := range cmd.Words {
			for _, e := range unquotedExpansions(w.Raw, seg.Dialect) {
				if !e.subst {
					continue
				}
				span := seg.Span(w.Start+e.start, w.Start+e.end)
				ctx.Report(span, "quote the command substitution to prevent word splitting", &diag.Fix{
					Span:        span,
					Replacement: `"` + w.Raw[e.start:e.end] + `"`,
					Priority:    diag.PriorityQuote,
					Description: "add double quotes",
				})
			}
		}
	})
}

// UnquotedVariable reports $name and ${name} arguments outside double
// quotes. Assignments are not split, so their values are left alone.
type UnquotedVariable struct{}

func (UnquotedVariable) Code() string             { return "SC2086" }
func (UnquotedVariable) Severity() diag.Severity  { return diag.Info }
func (UnquotedVariable) Applies(source.Kind) bool { return true }

func (UnquotedVariable) Check(ctx *linter.Context) {
	commands(ctx, func(seg linter.Segment, _ int, cmd shell.Command) {
		if cmd.Name() == "[[" {
			return
		}
		for _, w := range cmd.Args() {
			if isAssignmentWord(w.Value) {
				continue
			}
			for _, e := range unquotedExpansions(w.Raw, seg.Dialect) {
				if e.subst {
					continue
				}
				ref := w.Raw[e.start:e.end]
				span := seg.Span(w.Start+e.start, w.Start+e.end)
				ctx.Report(span, fmt.Sprintf("double quote %s to prevent globbing and word splitting", ref), &diag.Fix{
					Span:        span,
					Replacement: `"` + ref + `"`,
					Priority:    diag.PriorityQuote,
					Description: "add double quotes",
				})
			}
		}
	})
}

// UncheckedCd reports a cd whose failure is ignored by the commands after
// it.
type UncheckedCd struct{}

func (UncheckedCd) Code() string             { return "SC2164" }
func (UncheckedCd) Severity() diag.Severity  { return diag.Warning }
func (UncheckedCd) Applies(source.Kind) bool { return true }

func (UncheckedCd) Check(ctx *linter.Context) {
	for _, seg := range ctx.Segments {
		errexit := false
		for i, cmd := range seg.Commands {
			if cmd.Name() == "set" && (cmd.HasFlag('e', "") || slices.ContainsFunc(cmd.Args(), isErrexit)) {
				errexit = true
			}
			if errexit || cmd.Substituted || cmd.Name() != "cd" {
				continue
			}
			if cmd.Op != ";" && cmd.Op != "\n" || !followed(seg.Commands[i+1:]) {
				continue
			}
			if i > 0 && seg.Commands[i-1].Op == "||" {
				continue
			}
			ctx.Report(seg.Span(cmd.Start, cmd.End),
				"use cd ... || exit in case cd fails; the next command would run in the wrong directory",
				insert(seg.Start+cmd.End, " || exit", diag.PriorityFlag, "add || exit"))
		}
	}
}

func isErrexit(w shell.Word) bool { return w.Value == "errexit" }

// followed reports whether a command outside a substitution comes next.
func followed(rest []shell.Command) bool {
	for _, c := range rest {
		if !c.Substituted {
			return true
		}
	}
	return false
}
