package shell

import "strings"

// Words that may precede the command name without being the command.
var (
	reserved = map[string]bool{
		"!": true, "{": true, "}": true, "if": true, "then": true, "else": true,
		"elif": true, "fi": true, "do": true, "done": true, "while": true, "until": true,
	}
	wrappers = map[string]bool{
		"command": true, "env": true, "exec": true, "nice": true,
		"nohup": true, "sudo": true, "time": true,
	}
)

// Redirect is one redirection of a command. Target is the file word, or
// the zero Word when the redirection duplicates a descriptor.
type Redirect struct {
	Op     string
	Target Word
}

// Output reports whether the redirection writes to its target.
func (r Redirect) Output() bool {
	return strings.Contains(r.Op, ">")
}

// NameIndex returns the index of the command name among c.Words, skipping
// variable assignments, reserved words, wrappers such as sudo and
// redirections. It returns -1 when there is no name.
func (c Command) NameIndex() int {
	skip := false
	for i, w := range c.Words {
		if skip {
			skip = false
			continue
		}
		if _, rest, ok := splitRedirect(w.Raw); ok {
			skip = rest == ""
			continue
		}
		if reserved[w.Value] || wrappers[w.Value] || isAssignment(w.Value) {
			continue
		}
		return i
	}
	return -1
}

// Name returns the command name, or "" when there is none.
func (c Command) Name() string {
	if i := c.NameIndex(); i >= 0 {
		return c.Words[i].Value
	}
	return ""
}

// NameWord returns the word holding the command name.
func (c Command) NameWord() (Word, bool) {
	if i := c.NameIndex(); i >= 0 {
		return c.Words[i], true
	}
	return Word{}, false
}

// Args returns the words after the command name, without redirections.
func (c Command) Args() []Word {
	i := c.NameIndex()
	if i < 0 {
		return nil
	}
	var args []Word
	skip := false
	for _, w := range c.Words[i+1:] {
		if skip {
			skip = false
			continue
		}
		if _, rest, ok := splitRedirect(w.Raw); ok {
			skip = rest == ""
			continue
		}
		args = append(args, w)
	}
	return args
}

// HasFlag reports whether the command is given the single-letter option
// short, alone or bundled as in -rf, or the long option. Either may be
// empty. Options after "--" are not considered.
func (c Command) HasFlag(short byte, long string) bool {
	for _, a := range c.Args() {
		v := a.Value
		switch {
		case v == "--":
			return false
		case strings.HasPrefix(v, "--"):
			if long != "" && (v == long || strings.HasPrefix(v, long+"=")) {
				return true
			}
		case len(v) > 1 && v[0] == '-':
			if short != 0 && strings.IndexByte(v[1:], short) >= 0 {
				return true
			}
		}
	}
	return false
}

// Operands returns the arguments that are not options.
func (c Command) Operands() []Word {
	var ops []Word
	dashdash := false
	for _, a := range c.Args() {
		switch {
		case dashdash:
			ops = append(ops, a)
		case a.Value == "--":
			dashdash = true
		case len(a.Value) > 1 && a.Value[0] == '-':
		default:
			ops = append(ops, a)
		}
	}
	return ops
}

// Redirects returns the redirections of the command in order.
func (c Command) Redirects() []Redirect {
	var out []Redirect
	for i := 0; i < len(c.Words); i++ {
		w := c.Words[i]
		op, rest, ok := splitRedirect(w.Raw)
		if !ok {
			continue
		}
		r := Redirect{Op: op}
		switch {
		case strings.HasPrefix(rest, "&"):
		case rest != "":
			start := w.End - len(rest)
			r.Target = Word{Raw: rest, Value: unquote(rest), Start: start, End: w.End}
		case i+1 < len(c.Words):
			i++
			r.Target = c.Words[i]
		}
		out = append(out, r)
	}
	return out
}

// Text returns the command as written in src, the text it was parsed from.
func (c Command) Text(src string) string {
	return src[c.Start:c.End]
}

// splitRedirect splits a word such as "2>>out" into its operator and the
// remaining target text.
func splitRedirect(raw string) (op, rest string, ok bool) {
	i := 0
	for i < len(raw) && (raw[i] >= '0' && raw[i] <= '9' || raw[i] == '&') {
		i++
	}
	for _, candidate := range []string{">>", ">|", "<<", ">", "<"} {
		if strings.HasPrefix(raw[i:], candidate) {
			return candidate, raw[i+len(candidate):], true
		}
	}
	return "", "", false
}

func isAssignment(v string) bool {
	eq := strings.IndexByte(v, '=')
	if eq <= 0 {
		return false
	}
	for i := 0; i < eq; i++ {
		c := v[i]
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (i == 0 || c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// Prefix describes the modifiers at the start of a recipe line.
type Prefix struct {
	Silent       bool
	IgnoreErrors bool
	Always       bool
	// Len is the number of bytes taken by the modifiers and any blanks
	// around them.
	Len int
}

// RecipePrefix reads the @, - and + modifiers of a recipe line.
func RecipePrefix(text string) Prefix {
	var p Prefix
	i := 0
loop:
	for ; i < len(text); i++ {
		switch text[i] {
		case '@':
			p.Silent = true
		case '-':
			p.IgnoreErrors = true
		case '+':
			p.Always = true
		case ' ', '\t':
		default:
			break loop
		}
	}
	p.Len = i
	return p
}
