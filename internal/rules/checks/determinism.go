package checks

import (
	"github.com/donaldgifford/makepure/internal/analyzer"
	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/linter"
	"github.com/donaldgifford/makepure/internal/shell"
	"github.com/donaldgifford/makepure/internal/source"
)

// RandomValue reports $RANDOM.
type RandomValue struct{}

func (RandomValue) Code() string             { return "DET001" }
func (RandomValue) Severity() diag.Severity  { return diag.Warning }
func (RandomValue) Applies(source.Kind) bool { return true }

func (RandomValue) Check(ctx *linter.Context) {
	for _, seg := range textSegments(ctx) {
		for _, r := range shell.RandomRefs(seg.Text, seg.Dialect) {
			ctx.Report(seg.Span(r.Start, r.End),
				"$RANDOM yields a different value on every run; derive the value from the input", nil)
		}
	}
}

// Timestamp reports date commands that read the clock.
type Timestamp struct{}

func (Timestamp) Code() string             { return "DET002" }
func (Timestamp) Severity() diag.Severity  { return diag.Warning }
func (Timestamp) Applies(source.Kind) bool { return true }

func (Timestamp) Check(ctx *linter.Context) {
	commands(ctx, func(seg linter.Segment, _ int, cmd shell.Command) {
		if analyzer.ReadsClock(cmd) {
			ctx.Report(seg.Span(cmd.Start, cmd.End),
				"date reads the current time; use SOURCE_DATE_EPOCH or a fixed version", nil)
		}
	})
}

// ProcessID reports the shell's process id used to build names. When the
// id is appended to a name with a separator in a make variable or a shell
// assignment, the fix drops both. Elsewhere the name is used by a command
// and dropping the id would make it act on another file.
type ProcessID struct{}

func (ProcessID) Code() string             { return "DET003" }
func (ProcessID) Severity() diag.Severity  { return diag.Warning }
func (ProcessID) Applies(source.Kind) bool { return true }

func (ProcessID) Check(ctx *linter.Context) {
	for _, seg := range textSegments(ctx) {
		for _, r := range shell.ProcessIDRefs(seg.Text, seg.Dialect) {
			var fix *diag.Fix
			if r.Start > 0 && isSeparator(seg.Text[r.Start-1]) {
				fix = &diag.Fix{
					Span:        seg.Span(r.Start-1, r.End),
					Priority:    diag.PriorityRemove,
					Description: "remove the process id",
				}
			}
			ctx.Report(seg.Span(r.Start, r.End),
				seg.Text[r.Start:r.End]+" expands to the process id; names built from it change on every run", fix)
		}
	}
}

// buildsName reports whether span r of seg is part of a value being
// assigned rather than an argument of a command.
func buildsName(seg linter.Segment, r source.Span) bool {
	if seg.Kind == linter.SegmentMake {
		return true
	}
	for _, cmd := range seg.Commands {
		for _, w := range cmd.Words {
			if w.Start <= r.Start && r.End <= w.End {
				return isAssignmentWord(w.Value)
			}
		}
	}
	return false
}

func isSeparator(c byte) bool {
	return c == '.' || c == '-' || c == '_'
}
