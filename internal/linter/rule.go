// Package linter runs lint rules over Makefiles and shell scripts and
// drives the --fix loop.
package linter

import (
	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/source"
)

// Rule is one lint check. Rules are run in registered order and report
// through the Context; they must not keep state between calls.
type Rule interface {
	// Code returns the identifier used in output and config (e.g. "SC2086").
	Code() string

	// Severity is the default severity of the rule's diagnostics.
	Severity() diag.Severity

	// Applies reports whether the rule checks files of the given kind.
	Applies(kind source.Kind) bool

	// Check inspects the file and reports diagnostics on ctx.
	Check(ctx *Context)
}
