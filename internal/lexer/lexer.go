// Package lexer splits Makefile source text into logical lines.
//
// Continuation lines are joined, trailing comments are split off, and every
// line is classified so the parser can dispatch on a cheap discriminant
// instead of re-inspecting the text. The lexer never fails: malformed input
// (a dangling continuation, an over-long line) is flagged on the Line and
// left for the parser to reject with a location.
package lexer

import "strings"

// DefaultMaxLineLength bounds the length of a single logical line.
const DefaultMaxLineLength = 1 << 20

// Kind classifies a logical line.
type Kind int

const (
	// KindText is a make-syntax line (assignment, rule, directive, ...).
	KindText Kind = iota
	// KindBlank is an empty or whitespace-only line.
	KindBlank
	// KindComment is a line whose first non-blank character is #.
	KindComment
	// KindRecipe is a tab-prefixed line inside a target block.
	KindRecipe
	// KindSpaceRecipe is a space-indented line inside a target block that
	// is not a make construct. make rejects these ("missing separator");
	// the rule engine reports them.
	KindSpaceRecipe
	// KindDefineBody is a raw line between define and endef.
	KindDefineBody
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBlank:
		return "blank"
	case KindComment:
		return "comment"
	case KindRecipe:
		return "recipe"
	case KindSpaceRecipe:
		return "space-recipe"
	case KindDefineBody:
		return "define-body"
	}
	return "unknown"
}

// Line is one logical source line. It is produced once and never mutated.
type Line struct {
	Number    int // 1-based number of the first physical line.
	EndNumber int // 1-based number of the last physical line.
	Offset    int // Byte offset of the first physical line.
	EndOffset int // Byte offset just past the last physical line's text.

	Raw     string // Physical lines joined by "\n", carriage returns removed.
	Text    string // Logical text; see Tokenize for the per-kind rules.
	Comment string // Trailing comment split off a text line, without '#'.
	Kind    Kind

	Continued    bool // Joined from more than one physical line.
	Unterminated bool // The last physical line ends in a backslash at EOF.
	TooLong      bool // Text exceeds the configured maximum line length.
}

// Tokenize splits src into logical lines using DefaultMaxLineLength.
//
// For KindText lines, continuations are joined with a single space and the
// trailing comment is removed. For KindRecipe lines, Text is the raw line
// minus its leading tab, continuations included, because make hands them
// to the shell verbatim. For all other kinds Text is the trimmed raw line.
func Tokenize(src string) []Line {
	return TokenizeWithLimit(src, DefaultMaxLineLength)
}

// TokenizeWithLimit is Tokenize with an explicit maximum logical line length.
// A limit of zero or less disables the check.
func TokenizeWithLimit(src string, maxLen int) []Line {
	phys := splitPhysical(src)
	lx := &state{phys: phys, maxLen: maxLen}
	return lx.run()
}

// physical is one physical source line.
type physical struct {
	text   string
	offset int
}

type state struct {
	phys        []physical
	maxLen      int
	inTarget    bool
	defineDepth int
	lines       []Line
}

func (lx *state) run() []Line {
	lx.lines = make([]Line, 0, len(lx.phys))

	for i := 0; i < len(lx.phys); {
		if lx.defineDepth > 0 {
			i = lx.defineLine(i)
			continue
		}
		i = lx.logicalLine(i)
	}

	return lx.lines
}

// defineLine emits one physical line of a define body, or the endef that
// closes it.
func (lx *state) defineLine(i int) int {
	p := lx.phys[i]
	trimmed := strings.TrimSpace(p.text)
	line := Line{
		Number:    i + 1,
		EndNumber: i + 1,
		Offset:    p.offset,
		EndOffset: p.offset + len(p.text),
		Raw:       p.text,
		Text:      p.text,
		Kind:      KindDefineBody,
	}

	switch {
	case isKeywordLine(trimmed, "endef"):
		lx.defineDepth--
		if lx.defineDepth == 0 {
			line.Kind = KindText
			line.Text = trimmed
		}
	case StartsDefine(trimmed):
		lx.defineDepth++
	}

	lx.emit(line)
	return i + 1
}

// logicalLine joins continuations starting at physical line i and emits the
// resulting logical line.
func (lx *state) logicalLine(i int) int {
	start := i
	for i < len(lx.phys)-1 && hasContinuation(lx.phys[i].text) {
		i++
	}
	last := lx.phys[i]

	parts := make([]string, 0, i-start+1)
	for j := start; j <= i; j++ {
		parts = append(parts, lx.phys[j].text)
	}

	line := Line{
		Number:       start + 1,
		EndNumber:    i + 1,
		Offset:       lx.phys[start].offset,
		EndOffset:    last.offset + len(last.text),
		Raw:          strings.Join(parts, "\n"),
		Continued:    i > start,
		Unterminated: i == len(lx.phys)-1 && hasContinuation(last.text),
	}

	lx.classify(&line, parts)
	if lx.maxLen > 0 && len(line.Text) > lx.maxLen {
		line.TooLong = true
	}
	lx.emit(line)
	return i + 1
}

func (lx *state) classify(line *Line, parts []string) {
	first := parts[0]
	joined := joinContinuation(parts)
	trimmed := strings.TrimSpace(joined)

	switch {
	case trimmed == "":
		line.Kind = KindBlank
		line.Text = ""

	case lx.inTarget && strings.HasPrefix(first, "\t"):
		line.Kind = KindRecipe
		line.Text = strings.TrimPrefix(line.Raw, "\t")

	case strings.HasPrefix(trimmed, "#"):
		line.Kind = KindComment
		line.Text = trimmed
		line.Comment = strings.TrimPrefix(trimmed, "#")

	case lx.inTarget && strings.HasPrefix(first, " ") && !looksLikeMakeLine(trimmed):
		line.Kind = KindSpaceRecipe
		line.Text = trimmed

	default:
		text, comment := StripComment(joined)
		line.Kind = KindText
		line.Text = strings.TrimSpace(text)
		line.Comment = comment
		lx.track(line.Text)
	}
}

// track updates target-block and define state after a text line.
func (lx *state) track(text string) {
	switch {
	case StartsDefine(text):
		lx.defineDepth = 1
		lx.inTarget = false
	case IsConditionalKeyword(FirstWord(text)):
		// Conditionals may appear inside a recipe without ending it.
	default:
		lx.inTarget = IsRuleLine(text)
	}
}

func (lx *state) emit(line Line) {
	lx.lines = append(lx.lines, line)
}

// splitPhysical splits src on newlines, removing carriage returns and the
// empty element produced by a trailing newline.
func splitPhysical(src string) []physical {
	if src == "" {
		return nil
	}
	var out []physical
	offset := 0
	for {
		idx := strings.IndexByte(src[offset:], '\n')
		if idx < 0 {
			if offset < len(src) {
				out = append(out, physical{text: strings.TrimSuffix(src[offset:], "\r"), offset: offset})
			}
			return out
		}
		out = append(out, physical{text: strings.TrimSuffix(src[offset:offset+idx], "\r"), offset: offset})
		offset += idx + 1
	}
}

// hasContinuation reports whether a physical line ends in an unescaped
// backslash (an odd number of trailing backslashes).
func hasContinuation(text string) bool {
	n := 0
	for i := len(text) - 1; i >= 0 && text[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// joinContinuation joins physical lines the way make does outside recipes:
// the backslash, the newline and surrounding whitespace collapse into one
// space.
func joinContinuation(parts []string) string {
	if len(parts) == 1 {
		if hasContinuation(parts[0]) {
			return strings.TrimSuffix(parts[0], "\\")
		}
		return parts[0]
	}
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			p = strings.TrimLeft(p, " \t")
		}
		if hasContinuation(p) {
			p = strings.TrimRight(strings.TrimSuffix(p, "\\"), " \t")
		}
		if i > 0 && p != "" && b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}

// StripComment splits text at the first '#' that is not escaped with a
// backslash. The comment is returned without the '#'.
func StripComment(text string) (string, string) {
	for i := 0; i < len(text); i++ {
		if text[i] != '#' {
			continue
		}
		if i > 0 && text[i-1] == '\\' {
			continue
		}
		return strings.TrimRight(text[:i], " \t"), text[i+1:]
	}
	return text, ""
}
