package checks

import (
	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/linter"
	"github.com/donaldgifford/makepure/internal/shell"
	"github.com/donaldgifford/makepure/internal/source"
)

// idempotent checks one command that fails when run a second time unless
// it is given a flag.
type idempotent struct {
	code    string
	command string
	// requires is a flag the command must already have to be checked.
	requires byte
	flag     byte
	long     string
	message  string
}

func (r idempotent) Code() string             { return r.code }
func (r idempotent) Severity() diag.Severity  { return diag.Warning }
func (r idempotent) Applies(source.Kind) bool { return true }

func (r idempotent) Check(ctx *linter.Context) {
	commands(ctx, func(seg linter.Segment, i int, cmd shell.Command) {
		if seg.Kind == linter.SegmentShellCall || seg.Prefix.IgnoreErrors {
			return
		}
		if i > 0 && seg.Commands[i-1].Op == "||" || cmd.Op == "||" {
			return
		}
		w, ok := cmd.NameWord()
		if !ok || w.Value != r.command || cmd.HasFlag(r.flag, r.long) {
			return
		}
		if r.requires != 0 && !cmd.HasFlag(r.requires, "") {
			return
		}
		flag := " -" + string(r.flag)
		ctx.Report(seg.Span(cmd.Start, cmd.End), r.message,
			insert(seg.Start+w.End, flag, diag.PriorityFlag, "add"+flag))
	})
}

// MkdirWithoutParents reports mkdir without -p.
func MkdirWithoutParents() linter.Rule {
	return idempotent{
		code: "IDEM001", command: "mkdir", flag: 'p', long: "--parents",
		message: "mkdir fails when the directory already exists; use mkdir -p",
	}
}

// RmWithoutForce reports rm without -f.
func RmWithoutForce() linter.Rule {
	return idempotent{
		code: "IDEM002", command: "rm", flag: 'f', long: "--force",
		message: "rm fails when the file is already gone; use rm -f",
	}
}

// SymlinkWithoutForce reports ln -s without -f.
func SymlinkWithoutForce() linter.Rule {
	return idempotent{
		code: "IDEM003", command: "ln", requires: 's', flag: 'f', long: "--force",
		message: "ln -s fails when the link already exists; use ln -sf",
	}
}
