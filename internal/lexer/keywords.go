package lexer

import "strings"

var conditionalKeywords = map[string]bool{
	"ifeq":   true,
	"ifneq":  true,
	"ifdef":  true,
	"ifndef": true,
	"else":   true,
	"endif":  true,
}

// makeKeywords start lines that are always make syntax, even when indented.
var makeKeywords = map[string]bool{
	"include":  true,
	"-include": true,
	"sinclude": true,
	"define":   true,
	"endef":    true,
	"export":   true,
	"unexport": true,
	"override": true,
	"private":  true,
	"vpath":    true,
	"undefine": true,
}

// Assignment operators ordered longest first.
var assignOps = []string{":::=", "::=", ":=", "?=", "+=", "!=", "="}

// FirstWord returns the first whitespace-delimited word of text.
func FirstWord(text string) string {
	text = strings.TrimLeft(text, " \t")
	if idx := strings.IndexAny(text, " \t"); idx >= 0 {
		return text[:idx]
	}
	return text
}

// IsConditionalKeyword reports whether word opens, switches or closes a
// conditional block.
func IsConditionalKeyword(word string) bool {
	return conditionalKeywords[word]
}

// isKeywordLine reports whether text is keyword, optionally followed by
// whitespace and more text.
func isKeywordLine(text, keyword string) bool {
	if !strings.HasPrefix(text, keyword) {
		return false
	}
	rest := text[len(keyword):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t' || rest[0] == '#'
}

// StartsDefine reports whether text opens a define block, allowing the
// override/export/private modifiers in front of it.
func StartsDefine(text string) bool {
	for {
		word := FirstWord(text)
		switch word {
		case "override", "export", "private":
			text = strings.TrimLeft(text[len(word):], " \t")
			continue
		}
		return word == "define"
	}
}

// looksLikeMakeLine reports whether an indented line is make syntax rather
// than a mis-indented recipe command.
func looksLikeMakeLine(trimmed string) bool {
	word := FirstWord(trimmed)
	if conditionalKeywords[word] || makeKeywords[word] {
		return true
	}
	idx, _ := FindAssignment(trimmed)
	if idx < 0 {
		return false
	}
	name := strings.TrimSpace(trimmed[:idx])
	return name != "" && !strings.ContainsAny(name, " \t")
}

// IsRuleLine reports whether text is a rule header: it has a top-level
// colon that is not part of an assignment operator preceding it.
func IsRuleLine(text string) bool {
	colon := FindRuleColon(text)
	if colon < 0 {
		return false
	}
	if IsConditionalKeyword(FirstWord(text)) || makeKeywords[FirstWord(text)] {
		return false
	}
	assign, _ := FindAssignment(text)
	return assign < 0 || assign > colon
}

// FindAssignment returns the byte index and the operator of the first
// top-level assignment operator in text, or -1 when there is none.
// References such as $(X) and ${X} are skipped.
func FindAssignment(text string) (int, string) {
	idx := -1
	scanTopLevel(text, func(i int) bool {
		if text[i] != '=' {
			return true
		}
		idx = i
		return false
	})
	if idx < 0 {
		return -1, ""
	}
	for _, op := range assignOps {
		start := idx + 1 - len(op)
		if start >= 0 && text[start:idx+1] == op {
			return start, op
		}
	}
	return idx, "="
}

// FindRuleColon returns the byte index of the first top-level colon, or -1.
func FindRuleColon(text string) int {
	idx := -1
	scanTopLevel(text, func(i int) bool {
		if text[i] == ':' {
			idx = i
			return false
		}
		return true
	})
	return idx
}

// scanTopLevel calls fn for every byte index of text that is not inside a
// $(...) or ${...} reference. Scanning stops when fn returns false.
func scanTopLevel(text string, fn func(i int) bool) {
	var closers []byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '$' && i+1 < len(text) && text[i+1] == '$':
			i++
			continue
		case c == '$' && i+1 < len(text) && (text[i+1] == '(' || text[i+1] == '{'):
			closers = append(closers, closerFor(text[i+1]))
			i++
			continue
		case len(closers) > 0 && (c == '(' || c == '{'):
			closers = append(closers, closerFor(c))
			continue
		case len(closers) > 0 && c == closers[len(closers)-1]:
			closers = closers[:len(closers)-1]
			continue
		case len(closers) > 0:
			continue
		}
		if !fn(i) {
			return
		}
	}
}

func closerFor(open byte) byte {
	if open == '{' {
		return '}'
	}
	return ')'
}

// Fields splits text on whitespace that is not inside a variable reference,
// so "$(call f, a) b" yields two words.
func Fields(text string) []string {
	top := make([]bool, len(text))
	scanTopLevel(text, func(i int) bool {
		top[i] = true
		return true
	})

	var out []string
	start := -1
	for i := 0; i < len(text); i++ {
		if top[i] && (text[i] == ' ' || text[i] == '\t') {
			if start >= 0 {
				out = append(out, text[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, text[start:])
	}
	return out
}

// IndexTopLevel returns the index of the first b in text outside variable
// references, or -1.
func IndexTopLevel(text string, b byte) int {
	idx := -1
	scanTopLevel(text, func(i int) bool {
		if text[i] == b {
			idx = i
			return false
		}
		return true
	})
	return idx
}

// Balanced reports whether every $( and ${ reference in text is closed.
func Balanced(text string) bool {
	var closers []byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '$' && i+1 < len(text) && text[i+1] == '$':
			i++
		case c == '$' && i+1 < len(text) && (text[i+1] == '(' || text[i+1] == '{'):
			closers = append(closers, closerFor(text[i+1]))
			i++
		case len(closers) > 0 && (c == '(' || c == '{'):
			closers = append(closers, closerFor(c))
		case len(closers) > 0 && c == closers[len(closers)-1]:
			closers = closers[:len(closers)-1]
		}
	}
	return len(closers) == 0
}
