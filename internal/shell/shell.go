// Package shell splits shell command text into simple commands. It knows
// enough sh to find command names, flags and redirections, and can read
// Makefile recipe text where make's own $ escaping is still in place.
package shell

import (
	"slices"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Dialect selects how dollar signs are read.
type Dialect int

const (
	// Posix is plain shell text.
	Posix Dialect = iota
	// Make is recipe or variable text as written in a Makefile: $$ is a
	// dollar passed to the shell and $(...) is a make reference.
	Make
)

// Word is one shell word. Raw is the text as written and Value the word
// after quote removal. Start and End are byte offsets in the parsed text.
type Word struct {
	Raw   string
	Value string
	Start int
	End   int
}

// Command is a simple command. Op is the operator that ends it (";", "&&",
// "||", "|", "&", "\n" or "" at the end of the text) and OpStart its offset.
// Substituted commands come from $(...) or backticks.
type Command struct {
	Words       []Word
	Start       int
	End         int
	Op          string
	OpStart     int
	Substituted bool
}

// Parse returns the simple commands in text, ordered by position. Commands
// nested in substitutions follow the command that contains them.
func Parse(text string, d Dialect) []Command {
	s := &scanner{src: text, dialect: d}
	s.scan(0, len(text), false)
	slices.SortStableFunc(s.cmds, func(a, b Command) int { return a.Start - b.Start })
	return s.cmds
}

type scanner struct {
	src     string
	dialect Dialect
	cmds    []Command
}

func (s *scanner) scan(from, to int, subst bool) {
	var words []Word
	wordStart := -1
	begin := func(i int) {
		if wordStart < 0 {
			wordStart = i
		}
	}
	endWord := func(i int) {
		if wordStart >= 0 {
			words = append(words, s.word(wordStart, i))
			wordStart = -1
		}
	}
	endCommand := func(op string, at int) {
		endWord(at)
		if len(words) > 0 {
			s.cmds = append(s.cmds, Command{
				Words:       words,
				Start:       words[0].Start,
				End:         words[len(words)-1].End,
				Op:          op,
				OpStart:     at,
				Substituted: subst,
			})
		}
		words = nil
	}

	for i := from; i < to; {
		c := s.src[i]
		switch {
		case c == '\\':
			if i+1 < to && s.src[i+1] == '\n' {
				endWord(i)
				i += 2
				continue
			}
			begin(i)
			i = min(i+2, to)
		case c == '\'':
			begin(i)
			i = s.skipPast(i+1, to, '\'')
		case c == '"':
			begin(i)
			i = s.doubleQuoted(i+1, to)
		case c == '`':
			begin(i)
			end := s.backtick(i+1, to)
			s.scan(i+1, end, true)
			i = min(end+1, to)
		case c == '$':
			begin(i)
			i = s.dollar(i, to)
		case c == '#' && wordStart < 0:
			if nl := strings.IndexByte(s.src[i:to], '\n'); nl >= 0 {
				i += nl
			} else {
				i = to
			}
		case c == ' ' || c == '\t' || c == '\r':
			endWord(i)
			i++
		case c == '\n' || c == ';':
			endCommand(string(c), i)
			i++
		case c == '>' || c == '<':
			if wordStart >= 0 && !redirectPrefix(s.src[wordStart:i]) {
				endWord(i)
			}
			begin(i)
			i++
		case c == '&' && i > from && (s.src[i-1] == '>' || s.src[i-1] == '<'):
			i++
		case c == '&' && i+1 < to && s.src[i+1] == '>':
			begin(i)
			i++
		case c == '&' || c == '|':
			op := string(c)
			if i+1 < to && s.src[i+1] == c {
				op += op
			}
			endCommand(op, i)
			i += len(op)
		case c == '(' || c == ')':
			endCommand("", i)
			i++
		default:
			begin(i)
			i++
		}
	}
	endCommand("", to)
}

// dollar skips the expansion starting at src[i] and returns the index just
// past it, scanning command substitutions on the way.
func (s *scanner) dollar(i, to int) int {
	if i+1 >= to {
		return to
	}
	j := i + 1
	if s.dialect == Make {
		switch s.src[j] {
		case '$':
			j++
		case '(', '{':
			return min(s.matchMake(j, to)+1, to)
		default:
			return j + 1
		}
		if j >= to {
			return to
		}
	}
	switch s.src[j] {
	case '(':
		end := s.matchParen(j, to)
		if j+1 < to && s.src[j+1] != '(' {
			s.scan(j+1, end, true)
		}
		return min(end+1, to)
	case '{':
		if end := strings.IndexByte(s.src[j:to], '}'); end >= 0 {
			return j + end + 1
		}
		return to
	}
	return j
}

// matchMake returns the index of the bracket closing a make reference.
func (s *scanner) matchMake(open, to int) int {
	closers := []byte{closeOf(s.src[open])}
	for j := open + 1; j < to; j++ {
		c := s.src[j]
		switch {
		case c == '$' && j+1 < to && s.src[j+1] == '$':
			j++
		case c == '(' || c == '{':
			closers = append(closers, closeOf(c))
		case c == closers[len(closers)-1]:
			closers = closers[:len(closers)-1]
			if len(closers) == 0 {
				return j
			}
		}
	}
	return to
}

// matchParen returns the index of the parenthesis closing src[open],
// ignoring parentheses inside quotes, or to when there is none.
func (s *scanner) matchParen(open, to int) int {
	depth := 0
	for j := open; j < to; j++ {
		switch s.src[j] {
		case '\\':
			j++
		case '\'':
			j = s.skipPast(j+1, to, '\'') - 1
		case '"':
			j = s.skipPast(j+1, to, '"') - 1
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return to
}

func (s *scanner) doubleQuoted(i, to int) int {
	for i < to {
		switch s.src[i] {
		case '\\':
			i += 2
		case '"':
			return i + 1
		case '`':
			end := s.backtick(i+1, to)
			s.scan(i+1, end, true)
			i = end + 1
		case '$':
			i = s.dollar(i, to)
		default:
			i++
		}
	}
	return to
}

func (s *scanner) backtick(i, to int) int {
	for ; i < to; i++ {
		switch s.src[i] {
		case '\\':
			i++
		case '`':
			return i
		}
	}
	return to
}

func (s *scanner) skipPast(i, to int, quote byte) int {
	if end := strings.IndexByte(s.src[i:to], quote); end >= 0 {
		return i + end + 1
	}
	return to
}

func (s *scanner) word(start, end int) Word {
	raw := s.src[start:end]
	return Word{Raw: raw, Value: unquote(raw), Start: start, End: end}
}

// redirectPrefix reports whether a word so far can continue into a
// redirection operator, as in "2>" or ">>".
func redirectPrefix(w string) bool {
	return strings.Trim(w, "0123456789&<>") == ""
}

func closeOf(open byte) byte {
	if open == '{' {
		return '}'
	}
	return ')'
}

// unquote removes shell quoting from a single word, returning raw unchanged
// when it does not split into exactly one word.
func unquote(raw string) string {
	parts, err := shellquote.Split(raw)
	if err != nil {
		return raw
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return raw
}
