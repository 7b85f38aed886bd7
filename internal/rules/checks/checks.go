// Package checks holds the lint rule catalogue. MAKE rules read Makefile
// structure; DET, IDEM and SC rules read shell text, both in scripts and in
// Makefile recipes.
package checks

import (
	"strings"

	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/linter"
	"github.com/donaldgifford/makepure/internal/shell"
	"github.com/donaldgifford/makepure/internal/source"
)

func makefileOnly(kind source.Kind) bool { return kind == source.KindMakefile }

// commands calls fn for each command of the segments the shell runs.
func commands(ctx *linter.Context, fn func(seg linter.Segment, i int, cmd shell.Command)) {
	for _, seg := range ctx.Segments {
		for i, cmd := range seg.Commands {
			fn(seg, i, cmd)
		}
	}
}

// textSegments returns the segments worth scanning as plain text. Shell
// calls are skipped since the make line holding them is scanned already.
func textSegments(ctx *linter.Context) []linter.Segment {
	var out []linter.Segment
	for _, seg := range ctx.Segments {
		if seg.Kind != linter.SegmentShellCall {
			out = append(out, seg)
		}
	}
	return out
}

// insert builds a fix that inserts text at a file offset.
func insert(at int, text string, p diag.Priority, desc string) *diag.Fix {
	return &diag.Fix{Span: source.Span{Start: at, End: at}, Replacement: text, Priority: p, Description: desc}
}

// dollar returns the text that starts a shell expansion in the dialect.
func dollar(d shell.Dialect) string {
	if d == shell.Make {
		return "$$"
	}
	return "$"
}

// expansion is an unquoted $name, ${...} or $(...) found in a word.
type expansion struct {
	start, end int
	subst      bool
}

// unquotedExpansions returns the expansions in raw that are outside
// quotes, with offsets relative to raw. Arithmetic $((...)) is skipped.
func unquotedExpansions(raw string, d shell.Dialect) []expansion {
	var out []expansion
	lead := dollar(d)
	single, double := false, false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '\\':
			i++
			continue
		case c == '\'' && !double:
			single = !single
			continue
		case c == '"' && !single:
			double = !double
			continue
		case single:
			continue
		}
		if d == shell.Make && c == '$' && i+1 < len(raw) && raw[i+1] != '$' {
			// A make reference; skip it whole.
			if raw[i+1] == '(' || raw[i+1] == '{' {
				if end := closing(raw, i+1); end > 0 {
					i = end
					continue
				}
			}
			i++
			continue
		}
		if !strings.HasPrefix(raw[i:], lead) {
			continue
		}
		j := i + len(lead)
		if j >= len(raw) {
			break
		}
		switch next := raw[j]; {
		case next == '(':
			end := closing(raw, j)
			if end < 0 {
				return out
			}
			if !double && !strings.HasPrefix(raw[j:], "((") {
				out = append(out, expansion{start: i, end: end + 1, subst: true})
			}
			i = end
		case next == '{':
			end := strings.IndexByte(raw[j:], '}')
			if end < 0 {
				return out
			}
			if !double {
				out = append(out, expansion{start: i, end: j + end + 1})
			}
			i = j + end
		case isNameStart(next):
			k := j + 1
			for k < len(raw) && isNameChar(raw[k]) {
				k++
			}
			if !double {
				out = append(out, expansion{start: i, end: k})
			}
			i = k - 1
		default:
			i = j
		}
	}
	return out
}

// closing returns the index of the bracket closing raw[open], skipping
// quoted text, or -1.
func closing(raw string, open int) int {
	want := byte(')')
	if raw[open] == '{' {
		want = '}'
	}
	depth := 0
	for j := open; j < len(raw); j++ {
		switch raw[j] {
		case '\\':
			j++
		case '\'':
			if end := strings.IndexByte(raw[j+1:], '\''); end >= 0 {
				j += end + 1
			}
		case raw[open]:
			depth++
		case want:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func isNameStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c >= '0' && c <= '9'
}

// isAssignmentWord reports whether a shell word assigns a variable.
func isAssignmentWord(v string) bool {
	eq := strings.IndexByte(v, '=')
	if eq <= 0 || !isNameStart(v[0]) {
		return false
	}
	for i := 1; i < eq; i++ {
		if !isNameChar(v[i]) {
			return false
		}
	}
	return true
}
