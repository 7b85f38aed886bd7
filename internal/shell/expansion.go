package shell

import (
	"slices"
	"strings"

	"github.com/donaldgifford/makepure/internal/source"
)

// ProcessIDRefs returns the byte ranges of references to the shell's
// process id. In Make text "$$$$" is the shell's $$. A "$$" that is not
// followed by a name, a brace, a parenthesis or a special parameter is
// also taken to mean the process id, since make passes it on as a lone
// dollar only by accident. Dollars inside single quotes and a "^$$"
// regular expression anchor are not expansions.
func ProcessIDRefs(text string, d Dialect) []source.Span {
	var spans []source.Span
	single, double := false, false
	for i := 0; i < len(text)-1; i++ {
		switch text[i] {
		case '\\':
			i++
			continue
		case '\'':
			if !double {
				single = !single
			}
			continue
		case '"':
			if !single {
				double = !double
			}
			continue
		case '$':
		default:
			continue
		}
		if single {
			if d == Make && text[i+1] == '$' {
				i++
			}
			continue
		}
		if d == Posix {
			if text[i+1] == '$' {
				spans = append(spans, source.Span{Start: i, End: i + 2})
				i++
			}
			continue
		}
		switch text[i+1] {
		case '$':
		case '(', '{':
			// Skip whole make references so "$(X)$$" reads correctly.
			if end := strings.IndexByte(text[i:], closeOf(text[i+1])); end > 0 {
				i += end
			}
			continue
		default:
			i++
			continue
		}
		if strings.HasPrefix(text[i+2:], "$$") {
			spans = append(spans, source.Span{Start: i, End: i + 4})
			i += 3
			continue
		}
		anchor := i > 0 && text[i-1] == '^'
		if !anchor && (i+2 == len(text) || !continuesExpansion(text[i+2])) {
			spans = append(spans, source.Span{Start: i, End: i + 2})
		}
		i++
	}
	return spans
}

// continuesExpansion reports whether c can follow a dollar as part of a
// shell parameter or substitution.
func continuesExpansion(c byte) bool {
	switch {
	case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("{(?!#@*-$", c) >= 0
}

// RandomRefs returns the byte ranges of references to the shell's RANDOM
// variable.
func RandomRefs(text string, d Dialect) []source.Span {
	dollar := "$"
	if d == Make {
		dollar = "$$"
	}
	var spans []source.Span
	for _, form := range []string{dollar + "RANDOM", dollar + "{RANDOM}"} {
		for from := 0; ; {
			idx := strings.Index(text[from:], form)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(form)
			from = end
			if form[len(form)-1] == 'M' && end < len(text) && continuesName(text[end]) {
				continue
			}
			if d == Make && start > 0 && text[start-1] == '$' && escapedDollarRun(text[:start]) {
				continue
			}
			spans = append(spans, source.Span{Start: start, End: end})
		}
	}
	slices.SortFunc(spans, func(a, b source.Span) int { return a.Start - b.Start })
	return spans
}

func continuesName(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// escapedDollarRun reports whether text ends in an odd number of dollars,
// meaning the dollar that follows it is escaped by the last one.
func escapedDollarRun(text string) bool {
	n := len(text) - len(strings.TrimRight(text, "$"))
	return n%2 == 1
}
