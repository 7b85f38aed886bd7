package rules

import (
	"github.com/donaldgifford/makepure/internal/rules/checks"
)

func init() {
	// Makefile structure.
	RegisterRule(checks.UnsortedWildcard{})
	RegisterRule(checks.RecursiveMake{})
	RegisterRule(checks.ShellInRecursiveVariable{})
	RegisterRule(checks.MissingPhony{})
	RegisterRule(checks.SpaceIndentedRecipe{})
	RegisterRule(checks.TrailingWhitespace{})
	RegisterRule(checks.FinalNewline{})

	// Determinism.
	RegisterRule(checks.RandomValue{})
	RegisterRule(checks.Timestamp{})
	RegisterRule(checks.ProcessID{})

	// Idempotence.
	RegisterRule(checks.MkdirWithoutParents())
	RegisterRule(checks.RmWithoutForce())
	RegisterRule(checks.SymlinkWithoutForce())

	// Shell.
	RegisterRule(checks.UselessEcho{})
	RegisterRule(checks.UnquotedSubstitution{})
	RegisterRule(checks.UnquotedVariable{})
	RegisterRule(checks.UncheckedCd{})
}
