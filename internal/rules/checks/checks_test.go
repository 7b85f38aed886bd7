package checks_test

import (
	"fmt"
	"testing"

	check "gopkg.in/check.v1"

	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/linter"
	"github.com/donaldgifford/makepure/internal/rules"
	"github.com/donaldgifford/makepure/internal/rules/checks"
	"github.com/donaldgifford/makepure/internal/source"
)

var equals = check.Equals
var deepEquals = check.DeepEquals

type Suite struct{}

var _ = check.Suite(new(Suite))

func Test(t *testing.T) { check.TestingT(t) }

// lint returns the diagnostics of src as "line:column CODE" strings.
func lint(c *check.C, kind source.Kind, src string, rs ...linter.Rule) []string {
	if len(rs) == 0 {
		rs = rules.Rules()
	}
	res, err := linter.Run(source.NewFile(fileName(kind), src), kind, rs, linter.Config{})
	c.Assert(err, check.IsNil)
	var out []string
	for _, d := range res.Diagnostics {
		out = append(out, fmt.Sprintf("%d:%d %s", d.Location.Line, d.Location.Column, d.Code))
	}
	return out
}

// autofix runs the fix loop and returns the fixed text.
func autofix(c *check.C, kind source.Kind, src string, rs ...linter.Rule) (string, diag.Result) {
	if len(rs) == 0 {
		rs = rules.Rules()
	}
	fixed, err := linter.FixSource(fileName(kind), src, kind, rs, linter.Config{})
	c.Assert(err, check.IsNil)
	return fixed.Content, fixed.Result
}

func fileName(kind source.Kind) string {
	if kind == source.KindMakefile {
		return "Makefile"
	}
	return "script.sh"
}

const (
	mk = source.KindMakefile
	sh = source.KindShell
)

func (s *Suite) Test_UselessEcho_OutranksQuoting(c *check.C) {
	src := "RELEASE=$(echo $TIMESTAMP)\n"

	c.Check(lint(c, sh, src), deepEquals, []string{"1:9 SC2046", "1:9 SC2116", "1:16 SC2086"})

	fixed, res := autofix(c, sh, src)
	c.Check(fixed, equals, "RELEASE=$TIMESTAMP\n")
	c.Check(res.Diagnostics, check.HasLen, 0)
}

func (s *Suite) Test_UselessEcho_Backquotes(c *check.C) {
	fixed, _ := autofix(c, sh, "V=`echo a b`\n", checks.UselessEcho{})
	c.Check(fixed, equals, "V=a b\n")
}

func (s *Suite) Test_UselessEcho_KeepsOptions(c *check.C) {
	c.Check(lint(c, sh, "V=$(echo -n x)\n", checks.UselessEcho{}), check.HasLen, 0)
	c.Check(lint(c, sh, "V=$(echo x | tr a b)\n", checks.UselessEcho{}), check.HasLen, 0)
}

func (s *Suite) Test_UnsortedWildcard(c *check.C) {
	src := "SRCS = $(wildcard *.c)\nOK = $(sort $(wildcard *.h))\n"

	c.Check(lint(c, mk, src, checks.UnsortedWildcard{}), deepEquals, []string{"1:8 MAKE001"})

	fixed, res := autofix(c, mk, src, checks.UnsortedWildcard{})
	c.Check(fixed, equals, "SRCS = $(sort $(wildcard *.c))\nOK = $(sort $(wildcard *.h))\n")
	c.Check(res.Diagnostics, check.HasLen, 0)
}

func (s *Suite) Test_UnsortedWildcard_Find(c *check.C) {
	src := "FILES := $(shell find src -name '*.go')\n"

	fixed, _ := autofix(c, mk, src, checks.UnsortedWildcard{})
	c.Check(fixed, equals, "FILES := $(sort $(shell find src -name '*.go'))\n")
}

func (s *Suite) Test_RecursiveMake(c *check.C) {
	src := "sub:\n\tcd lib && make install\n\t$(MAKE) -C doc\n"

	c.Check(lint(c, mk, src, checks.RecursiveMake{}), deepEquals, []string{"2:12 MAKE002"})

	fixed, _ := autofix(c, mk, src, checks.RecursiveMake{})
	c.Check(fixed, equals, "sub:\n\tcd lib && $(MAKE) install\n\t$(MAKE) -C doc\n")
}

func (s *Suite) Test_ShellInRecursiveVariable(c *check.C) {
	src := "NOW = $(shell date +%F)\nREV := $(shell git rev-parse HEAD)\n"

	c.Check(lint(c, mk, src, checks.ShellInRecursiveVariable{}), deepEquals, []string{"1:5 MAKE003"})

	fixed, _ := autofix(c, mk, src, checks.ShellInRecursiveVariable{})
	c.Check(fixed, equals, "NOW := $(shell date +%F)\nREV := $(shell git rev-parse HEAD)\n")
}

func (s *Suite) Test_ShellInRecursiveVariable_LaterDefinition(c *check.C) {
	// DIR is only defined below, so := would change the value.
	src := "LIST = $(shell ls $(DIR))\nDIR = src\n"

	c.Check(lint(c, mk, src, checks.ShellInRecursiveVariable{}), deepEquals, []string{"1:6 MAKE003"})

	fixed, _ := autofix(c, mk, src, checks.ShellInRecursiveVariable{})
	c.Check(fixed, equals, src)
}

func (s *Suite) Test_MissingPhony(c *check.C) {
	src := "clean:\n\trm -f app\n"

	c.Check(lint(c, mk, src, checks.MissingPhony{}), deepEquals, []string{"1:1 MAKE004"})

	fixed, res := autofix(c, mk, src, checks.MissingPhony{})
	c.Check(fixed, equals, ".PHONY: clean\nclean:\n\trm -f app\n")
	c.Check(res.Diagnostics, check.HasLen, 0)
}

func (s *Suite) Test_MissingPhony_Declared(c *check.C) {
	src := "app: main.c\n\tcc -o app main.c\n\n.PHONY: test\ntest:\n\t./app\n"

	c.Check(lint(c, mk, src, checks.MissingPhony{}), check.HasLen, 0)
}

func (s *Suite) Test_SpaceIndentedRecipe(c *check.C) {
	src := "all:\n    echo hi\n"

	res, err := linter.Run(source.NewFile("Makefile", src), mk, []linter.Rule{checks.SpaceIndentedRecipe{}}, linter.Config{})
	c.Assert(err, check.IsNil)
	c.Check(res.Errors, equals, 1)
	c.Check(res.ExitCode(), equals, 2)

	fixed, _ := autofix(c, mk, src, checks.SpaceIndentedRecipe{})
	c.Check(fixed, equals, "all:\n\techo hi\n")
}

func (s *Suite) Test_RandomValue(c *check.C) {
	c.Check(lint(c, sh, "echo \"$RANDOM\"\n", checks.RandomValue{}), deepEquals, []string{"1:7 DET001"})
	c.Check(lint(c, mk, "all:\n\techo $$RANDOM\n", checks.RandomValue{}), deepEquals, []string{"2:7 DET001"})
	c.Check(lint(c, sh, "echo \"$RANDOMIZE\"\n", checks.RandomValue{}), check.HasLen, 0)
}

func (s *Suite) Test_Timestamp(c *check.C) {
	c.Check(lint(c, sh, "V=$(date +%s)\n", checks.Timestamp{}), deepEquals, []string{"1:5 DET002"})
	c.Check(lint(c, mk, "V := $(shell date)\n", checks.Timestamp{}), deepEquals, []string{"1:14 DET002"})
	c.Check(lint(c, sh, "V=$(date -d @0 +%s)\n", checks.Timestamp{}), check.HasLen, 0)
}

func (s *Suite) Test_ProcessID(c *check.C) {
	fixed, res := autofix(c, sh, "TMP=/tmp/build.$$\n", checks.ProcessID{})
	c.Check(fixed, equals, "TMP=/tmp/build\n")
	c.Check(res.Diagnostics, check.HasLen, 0)

	fixed, _ = autofix(c, mk, "TMP = /tmp/x-$$$$\n", checks.ProcessID{})
	c.Check(fixed, equals, "TMP = /tmp/x\n")

	// Without a separator there is nothing safe to remove.
	c.Check(lint(c, sh, "kill $$\n", checks.ProcessID{}), deepEquals, []string{"1:6 DET003"})
	fixed, _ = autofix(c, sh, "kill $$\n", checks.ProcessID{})
	c.Check(fixed, equals, "kill $$\n")
}

func (s *Suite) Test_ProcessID_CommandArgumentsKeepTheID(c *check.C) {
	src := "all:\n\techo $$$$ > pid.$$$$\n\trm build.$$$$\n"
	c.Check(lint(c, mk, src, checks.ProcessID{}), deepEquals, []string{"2:7 DET003", "2:18 DET003", "3:11 DET003"})

	fixed, _ := autofix(c, mk, src, checks.ProcessID{})
	c.Check(fixed, equals, src)

	fixed, _ = autofix(c, sh, "rm /tmp/lock.$$\n", checks.ProcessID{})
	c.Check(fixed, equals, "rm /tmp/lock.$$\n")
}

func (s *Suite) Test_Idempotence(c *check.C) {
	src := "mkdir build\nrm out\nln -s a b\n"
	rs := []linter.Rule{checks.MkdirWithoutParents(), checks.RmWithoutForce(), checks.SymlinkWithoutForce()}

	c.Check(lint(c, sh, src, rs...), deepEquals, []string{"1:1 IDEM001", "2:1 IDEM002", "3:1 IDEM003"})

	fixed, res := autofix(c, sh, src, rs...)
	c.Check(fixed, equals, "mkdir -p build\nrm -f out\nln -f -s a b\n")
	c.Check(res.Diagnostics, check.HasLen, 0)
}

func (s *Suite) Test_Idempotence_Exceptions(c *check.C) {
	rs := []linter.Rule{checks.MkdirWithoutParents(), checks.RmWithoutForce(), checks.SymlinkWithoutForce()}

	c.Check(lint(c, sh, "mkdir -p a\nrm -rf b\nln -sf c d\nln a b\n", rs...), check.HasLen, 0)
	c.Check(lint(c, sh, "mkdir a || true\n", rs...), check.HasLen, 0)
	c.Check(lint(c, mk, "all:\n\t-rm out\n\t@mkdir out\n", rs...), deepEquals, []string{"3:3 IDEM001"})
}

func (s *Suite) Test_UnquotedSubstitution(c *check.C) {
	c.Check(lint(c, sh, "ls \"$(pwd)\"\n", checks.UnquotedSubstitution{}), check.HasLen, 0)
	c.Check(lint(c, sh, "echo $((1 + 2))\n", checks.UnquotedSubstitution{}), check.HasLen, 0)

	fixed, _ := autofix(c, sh, "rm $(find . -name '*.o')\n", checks.UnquotedSubstitution{})
	c.Check(fixed, equals, "rm \"$(find . -name '*.o')\"\n")

	fixed, _ = autofix(c, mk, "all:\n\tcp $$(cat list) out/\n", checks.UnquotedSubstitution{})
	c.Check(fixed, equals, "all:\n\tcp \"$$(cat list)\" out/\n")
}

func (s *Suite) Test_UnquotedVariable(c *check.C) {
	c.Check(lint(c, sh, "echo \"$x\" '$y'\nX=$z\n", checks.UnquotedVariable{}), check.HasLen, 0)
	c.Check(lint(c, mk, "all:\n\trm $(OUT) $@\n", checks.UnquotedVariable{}), check.HasLen, 0)

	fixed, _ := autofix(c, sh, "cp $src ${dst}/\n", checks.UnquotedVariable{})
	c.Check(fixed, equals, "cp \"$src\" \"${dst}\"/\n")

	fixed, _ = autofix(c, mk, "all:\n\tfor f in a b; do rm $$f; done\n", checks.UnquotedVariable{})
	c.Check(fixed, equals, "all:\n\tfor f in a b; do rm \"$$f\"; done\n")
}

func (s *Suite) Test_UncheckedCd(c *check.C) {
	fixed, _ := autofix(c, sh, "cd build; make\n", checks.UncheckedCd{})
	c.Check(fixed, equals, "cd build || exit; make\n")

	c.Check(lint(c, sh, "cd build && make\n", checks.UncheckedCd{}), check.HasLen, 0)
	c.Check(lint(c, sh, "cd build\n", checks.UncheckedCd{}), check.HasLen, 0)
	c.Check(lint(c, sh, "set -eu\ncd build\nmake\n", checks.UncheckedCd{}), check.HasLen, 0)
	c.Check(lint(c, sh, "set -o errexit\ncd build\nmake\n", checks.UncheckedCd{}), check.HasLen, 0)
}

func (s *Suite) Test_QuoteAndGuardCombine(c *check.C) {
	fixed, res := autofix(c, sh, "cd $dir; ls\n")
	c.Check(fixed, equals, "cd \"$dir\" || exit; ls\n")
	c.Check(res.Diagnostics, check.HasLen, 0)
}

func (s *Suite) Test_TrailingWhitespace(c *check.C) {
	src := "CFLAGS = -O2 \t\nall:\n\techo hi  \n"
	c.Check(lint(c, mk, src, checks.TrailingWhitespace{}), deepEquals, []string{"1:13 MAKE005", "3:9 MAKE005"})

	fixed, res := autofix(c, mk, src, checks.TrailingWhitespace{})
	c.Check(fixed, equals, "CFLAGS = -O2\nall:\n\techo hi\n")
	c.Check(res.Diagnostics, check.HasLen, 0)

	c.Check(lint(c, sh, "echo hi \n", checks.TrailingWhitespace{}), check.HasLen, 0)
}

func (s *Suite) Test_TrailingWhitespace_AfterBackslash(c *check.C) {
	src := "X = a \\ \nY = b\n"
	res, err := linter.Run(source.NewFile("Makefile", src), mk, []linter.Rule{checks.TrailingWhitespace{}}, linter.Config{})
	c.Assert(err, check.IsNil)
	c.Assert(res.Diagnostics, check.HasLen, 1)
	c.Check(res.Diagnostics[0].Message, check.Matches, "whitespace after the backslash.*")

	fixed, _ := autofix(c, mk, src, checks.TrailingWhitespace{})
	c.Check(fixed, equals, "X = a \\\nY = b\n")
}

func (s *Suite) Test_FinalNewline(c *check.C) {
	fixed, _ := autofix(c, mk, "all:\n\techo hi", checks.FinalNewline{})
	c.Check(fixed, equals, "all:\n\techo hi\n")

	fixed, _ = autofix(c, mk, "A = 1\n\n\n", checks.FinalNewline{})
	c.Check(fixed, equals, "A = 1\n")

	c.Check(lint(c, mk, "A = 1\n", checks.FinalNewline{}), check.HasLen, 0)
	c.Check(lint(c, mk, "", checks.FinalNewline{}), check.HasLen, 0)
}
