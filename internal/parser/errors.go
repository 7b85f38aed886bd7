package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/donaldgifford/makepure/internal/source"
)

// ErrorKind classifies a parse failure.
type ErrorKind int

const (
	InvalidVariableAssignment ErrorKind = iota
	EmptyVariableName
	NoAssignmentOperator
	InvalidIncludeSyntax
	InvalidConditionalSyntax
	MissingConditionalArguments
	MissingVariableName
	UnknownConditional
	InvalidTargetRule
	EmptyTargetName
	UnterminatedConditional
	UnterminatedDefine
	UnexpectedEOF
	LineTooLong
)

type kindInfo struct {
	code  string
	title string
	note  string
	help  string
}

var kinds = map[ErrorKind]kindInfo{
	InvalidVariableAssignment: {
		"invalid-variable-assignment",
		"invalid variable assignment",
		"A variable name is a single word; whitespace is only allowed inside $(...) references.",
		"Remove the extra words or quote them into the value, e.g. `CFLAGS = -O2 -g`.",
	},
	EmptyVariableName: {
		"empty-variable-name",
		"empty variable name",
		"An assignment operator must be preceded by the name of the variable being set.",
		"Put a name before the operator, e.g. `VERSION := 1.0`.",
	},
	NoAssignmentOperator: {
		"no-assignment-operator",
		"missing assignment operator",
		"override and private only apply to variable assignments.",
		"Add an operator and value, e.g. `override CFLAGS += -Wall`.",
	},
	InvalidIncludeSyntax: {
		"invalid-include-syntax",
		"invalid include directive",
		"include needs at least one file name to read.",
		"Name the file to include, e.g. `include config.mk` or `-include .env`.",
	},
	InvalidConditionalSyntax: {
		"invalid-conditional-syntax",
		"invalid conditional",
		"Conditionals are written ifeq (a,b), ifeq \"a\" \"b\", ifdef NAME, and close with a single else and endif.",
		"Check the parentheses and quoting, e.g. `ifeq ($(OS),Linux)`.",
	},
	MissingConditionalArguments: {
		"missing-conditional-arguments",
		"missing conditional arguments",
		"ifeq and ifneq compare two values and need both of them.",
		"Supply both operands, e.g. `ifeq ($(CC),gcc)`.",
	},
	MissingVariableName: {
		"missing-variable-name",
		"missing variable name",
		"ifdef and ifndef test whether a variable is defined and need its name.",
		"Name the variable to test, e.g. `ifdef DEBUG`.",
	},
	UnknownConditional: {
		"unknown-conditional",
		"unknown conditional directive",
		"make only understands ifeq, ifneq, ifdef and ifndef; an else may be followed by one of them.",
		"Use `else ifeq (...)` instead of elif/elsif, or put the condition on its own line.",
	},
	InvalidTargetRule: {
		"invalid-target-rule",
		"invalid rule",
		"A line that is not an assignment or directive must be a rule of the form `targets: prerequisites`.",
		"Add the missing separator, e.g. `build: main.o`, and indent recipe lines with a tab.",
	},
	EmptyTargetName: {
		"empty-target-name",
		"empty target name",
		"A rule must name at least one target before the colon.",
		"Add a target, e.g. `all: build`.",
	},
	UnterminatedConditional: {
		"unterminated-conditional",
		"unterminated conditional",
		"Every ifeq/ifneq/ifdef/ifndef must be closed by a matching endif.",
		"Add `endif` after the last line of the conditional block.",
	},
	UnterminatedDefine: {
		"unterminated-define",
		"unterminated define",
		"A define block runs until a line containing only endef.",
		"Add `endef` on its own line after the body of the variable.",
	},
	UnexpectedEOF: {
		"unexpected-eof",
		"unexpected end of file",
		"The last line ends in a backslash, which continues it onto a line that does not exist.",
		"Remove the trailing backslash or add the continued text.",
	},
	LineTooLong: {
		"line-too-long",
		"line too long",
		"The logical line exceeds the parser's maximum length, which guards against runaway input.",
		"Split the line with backslash continuations or raise parser.max_line_length.",
	},
}

func (k ErrorKind) String() string {
	if info, ok := kinds[k]; ok {
		return info.title
	}
	return "parse error"
}

// Code returns a stable kebab-case identifier for the kind.
func (k ErrorKind) Code() string {
	if info, ok := kinds[k]; ok {
		return info.code
	}
	return "parse-error"
}

// ParseError is a fatal, located parse failure.
type ParseError struct {
	Kind     ErrorKind
	Location *source.Location
	Detail   string
}

func (e *ParseError) Error() string {
	msg := e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Location != nil {
		return e.Location.String() + ": " + msg
	}
	return msg
}

// Note explains why the input is wrong.
func (e *ParseError) Note() string {
	return kinds[e.Kind].note
}

// Help explains how to fix the input.
func (e *ParseError) Help() string {
	return kinds[e.Kind].help
}

// QualityScore rates how helpful the error is, from 0 to 1: location and
// source snippet are worth 0.2 each, note and help 0.3 each.
func (e *ParseError) QualityScore() float64 {
	score := 0.0
	if e.Location != nil && e.Location.Line > 0 {
		score += 0.2
	}
	if e.Location != nil && e.Location.SourceLine != "" {
		score += 0.2
	}
	if e.Note() != "" {
		score += 0.3
	}
	if e.Help() != "" {
		score += 0.3
	}
	return score
}

// Format renders the error with its location, a source snippet with a
// caret under the offending column, the note and the help.
func (e *ParseError) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "error[%s]: %s", e.Kind.Code(), e.Kind)
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	b.WriteByte('\n')

	if loc := e.Location; loc != nil {
		gutter := strings.Repeat(" ", len(fmt.Sprint(loc.Line)))
		fmt.Fprintf(&b, "%s--> %s\n", gutter, loc)
		if loc.SourceLine != "" {
			fmt.Fprintf(&b, "%s |\n", gutter)
			fmt.Fprintf(&b, "%d | %s\n", loc.Line, loc.SourceLine)
			fmt.Fprintf(&b, "%s | %s^\n", gutter, caretPad(loc.SourceLine, loc.Column))
		}
	}

	fmt.Fprintf(&b, "  = note: %s\n", e.Note())
	fmt.Fprintf(&b, "  = help: %s\n", e.Help())
	return b.String()
}

// caretPad returns the blank prefix that aligns a caret under a 1-based
// byte column, keeping tabs so the terminal expands them identically.
func caretPad(line string, column int) string {
	if column <= 1 {
		return ""
	}
	if column-1 < len(line) {
		line = line[:column-1]
	}
	var b strings.Builder
	for _, r := range line {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return b.String()
}

const maxSnippet = 160

// snippet truncates very long source lines on a rune boundary.
func snippet(line string) string {
	if len(line) <= maxSnippet {
		return line
	}
	cut := maxSnippet
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	return line[:cut] + "..."
}
