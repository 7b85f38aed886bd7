package parser

import "strings"

// Call is a make function call found in a piece of text. Start and End are
// byte offsets of the call, from the '$' to just past the closing bracket.
// ArgStart holds the offset of each argument in the same text.
type Call struct {
	Name     string
	Args     []string
	ArgStart []int
	Start    int
	End      int
}

// maxArgs is the number of arguments each GNU make function splits its
// text into; the last argument keeps any further commas. Zero means
// unlimited.
var maxArgs = map[string]int{
	"abspath":    1,
	"addprefix":  2,
	"addsuffix":  2,
	"and":        0,
	"basename":   1,
	"call":       0,
	"dir":        1,
	"error":      1,
	"eval":       1,
	"file":       2,
	"filter":     2,
	"filter-out": 2,
	"findstring": 2,
	"firstword":  1,
	"flavor":     1,
	"foreach":    3,
	"guile":      1,
	"if":         3,
	"info":       1,
	"intcmp":     5,
	"join":       2,
	"lastword":   1,
	"let":        3,
	"notdir":     1,
	"or":         0,
	"origin":     1,
	"patsubst":   3,
	"realpath":   1,
	"shell":      1,
	"sort":       1,
	"strip":      1,
	"subst":      3,
	"suffix":     1,
	"value":      1,
	"warning":    1,
	"wildcard":   1,
	"word":       2,
	"wordlist":   3,
	"words":      1,
}

// IsFunction reports whether name is a built-in make function.
func IsFunction(name string) bool {
	_, ok := maxArgs[name]
	return ok
}

// ExtractFunctionCalls returns the outermost function calls in text, in
// order. Arguments are returned verbatim, so nested calls can be inspected
// by calling ExtractFunctionCalls on an argument. Plain variable references
// such as $(CC) are not calls. Scanning stops at the first unbalanced
// reference.
func ExtractFunctionCalls(text string) []Call {
	var calls []Call
	for i := 0; i < len(text)-1; i++ {
		if text[i] != '$' {
			continue
		}
		next := text[i+1]
		if next == '$' {
			i++
			continue
		}
		if next != '(' && next != '{' {
			continue
		}
		end := matchReference(text, i+1)
		if end < 0 {
			break
		}
		if call, ok := parseCall(text, i, end); ok {
			calls = append(calls, call)
		}
		i = end
	}
	return calls
}

// matchReference returns the index of the bracket closing the one at open,
// or -1 when it is never closed.
func matchReference(text string, open int) int {
	closers := []byte{closer(text[open])}
	for j := open + 1; j < len(text); j++ {
		c := text[j]
		switch {
		case c == '$' && j+1 < len(text) && text[j+1] == '$':
			j++
		case c == '(' || c == '{':
			closers = append(closers, closer(c))
		case c == closers[len(closers)-1]:
			closers = closers[:len(closers)-1]
			if len(closers) == 0 {
				return j
			}
		}
	}
	return -1
}

func closer(open byte) byte {
	if open == '{' {
		return '}'
	}
	return ')'
}

// parseCall decodes the reference text[start:end+1].
func parseCall(text string, start, end int) (Call, bool) {
	inner := text[start+2 : end]
	sep := strings.IndexAny(inner, " \t")
	if sep <= 0 {
		return Call{}, false
	}
	name := inner[:sep]
	limit, ok := maxArgs[name]
	if !ok {
		return Call{}, false
	}
	rest := strings.TrimLeft(inner[sep:], " \t")
	base := end - len(rest)
	args, offsets := splitArgs(rest, limit)
	for i := range offsets {
		offsets[i] += base
	}
	return Call{
		Name:     name,
		Args:     args,
		ArgStart: offsets,
		Start:    start,
		End:      end + 1,
	}, true
}

// splitArgs splits s on commas outside brackets into at most limit parts,
// returning each part with its offset in s.
func splitArgs(s string, limit int) ([]string, []int) {
	var args []string
	offsets := []int{0}
	var closers []byte
	last := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '$' && i+1 < len(s) && s[i+1] == '$':
			i++
		case c == '(' || c == '{':
			closers = append(closers, closer(c))
		case len(closers) > 0 && c == closers[len(closers)-1]:
			closers = closers[:len(closers)-1]
		case c == ',' && len(closers) == 0 && (limit == 0 || len(args) < limit-1):
			args = append(args, s[last:i])
			last = i + 1
			offsets = append(offsets, last)
		}
	}
	return append(args, s[last:]), offsets
}

// referenceOnly reports whether text is exactly one $(...) or ${...}
// reference, returning its inner text.
func referenceOnly(text string) (string, bool) {
	if len(text) < 3 || text[0] != '$' || (text[1] != '(' && text[1] != '{') {
		return "", false
	}
	if matchReference(text, 1) != len(text)-1 {
		return "", false
	}
	return text[2 : len(text)-1], true
}
