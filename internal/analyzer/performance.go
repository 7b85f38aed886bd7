package analyzer

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/donaldgifford/makepure/internal/ast"
	"github.com/donaldgifford/makepure/internal/parser"
)

// Functions whose result depends only on their arguments.
var pureFunctions = map[string]bool{
	"abspath": true, "addprefix": true, "addsuffix": true, "and": true, "basename": true,
	"dir": true, "filter": true, "filter-out": true, "findstring": true, "firstword": true,
	"flavor": true, "foreach": true, "if": true, "intcmp": true, "join": true, "lastword": true,
	"let": true, "notdir": true, "or": true, "origin": true, "patsubst": true, "sort": true,
	"strip": true, "subst": true, "suffix": true, "word": true, "wordlist": true, "words": true,
}

// Variables make defines before reading any Makefile.
var builtinVariables = map[string]bool{
	"AR": true, "AS": true, "CC": true, "CPP": true, "CURDIR": true, "CXX": true,
	"LD": true, "MAKE": true, "MAKECMDGOALS": true, "MAKEFLAGS": true, "RM": true, "SHELL": true,
}

// Commands that change the state of the shell they run in.
var stateCommands = map[string]bool{
	".": true, "alias": true, "cd": true, "exit": true, "export": true, "popd": true,
	"pushd": true, "set": true, "source": true, "trap": true, "umask": true, "unset": true,
}

// performance flags work that make repeats needlessly.
func performance(m *model) []Finding {
	var out []Finding

	for _, d := range m.defs {
		v := d.v
		if v.Flavor != ast.Recursive || v.Define {
			continue
		}
		subject := v.Name
		var item ast.Item = v
		if d.target != nil {
			item = d.target
		}
		switch {
		case hasCall(v.Value, "shell"):
			out = append(out, Finding{
				Kind:    Inefficiency,
				Rule:    RuleShellInRecursive,
				Span:    item.Range(),
				Subject: subject,
				Detail:  fmt.Sprintf("%s uses = so its $(shell ...) runs again on every reference; use :=", v.Name),
				Item:    item,
				Place:   InValue,
				Recipe:  -1,
				Autofix: m.foldable(d),
			})
		case onlyPureCalls(v.Value) && m.foldable(d):
			out = append(out, Finding{
				Kind:    Inefficiency,
				Rule:    RuleConstantRecursive,
				Span:    item.Range(),
				Subject: subject,
				Detail:  fmt.Sprintf("%s is recomputed on every reference but always yields the same value; use :=", v.Name),
				Item:    item,
				Place:   InValue,
				Recipe:  -1,
				Autofix: true,
			})
		}
	}

	if !m.oneShell {
		for _, r := range m.rules {
			if f, ok := unchainedRun(m, r); ok {
				out = append(out, f)
			}
		}
	}

	out = append(out, similarRules(m)...)
	return out
}

// onlyPureCalls reports whether text calls at least one function and every
// call is free of side effects and of file system state.
func onlyPureCalls(text string) bool {
	calls, pure := 0, true
	visitCalls(text, func(c parser.Call, _ bool) bool {
		calls++
		if !pureFunctions[c.Name] {
			pure = false
		}
		return pure
	})
	return calls > 0 && pure
}

// foldable reports whether expanding d's value once, where it is defined,
// yields the value every later reference would see.
func (m *model) foldable(d *definition) bool {
	if d.target != nil || m.hasEval {
		return false
	}
	for _, inc := range m.includes {
		if inc > d.order {
			return false
		}
	}
	for _, other := range m.defs {
		if other.v.Name == d.v.Name && other.order > d.order && other.v.Flavor == ast.Append {
			return false
		}
	}
	return m.settled(d.v.Value, d.order, map[string]bool{d.v.Name: true})
}

// settled reports whether every variable text refers to already has its
// final value at position pos. visiting guards against cycles.
func (m *model) settled(text string, pos int, visiting map[string]bool) bool {
	for _, ref := range parser.VariableReferences(text) {
		name := ref.Name
		switch {
		case parser.IsAutomatic(name), parser.IsPositional(name), visiting[name]:
			return false
		}
		var earlier []*definition
		for _, d := range m.defs {
			if d.v.Name != name {
				continue
			}
			if d.target != nil || d.order > pos {
				return false
			}
			earlier = append(earlier, d)
		}
		if len(earlier) == 0 {
			if !builtinVariables[name] {
				return false
			}
			continue
		}
		visiting[name] = true
		for _, d := range earlier {
			if d.v.Flavor != ast.Simple && !m.settled(d.v.Value, pos, visiting) {
				return false
			}
		}
		delete(visiting, name)
	}
	return true
}

// unchainedRun finds the first run of recipe lines long enough to report,
// where each line starts its own shell.
func unchainedRun(m *model, r *rule) (Finding, bool) {
	for i := 0; i < len(r.recipe); {
		if !isSingleCommand(r.recipe[i]) {
			i++
			continue
		}
		j := i + 1
		for j < len(r.recipe) && isSingleCommand(r.recipe[j]) && r.recipe[j].index == r.recipe[j-1].index+1 {
			j++
		}
		if j-i >= m.opts.SequentialRecipeThreshold {
			run := r.recipe[i:j]
			f := r.lineFinding(run[0], Inefficiency, RuleUnchainedRecipe,
				fmt.Sprintf("%d consecutive recipe lines each start a new shell; chain them with &&", len(run)), chainable(run))
			f.Count = len(run)
			f.Span.End = run[len(run)-1].span().End
			return f, true
		}
		i = j
	}
	return Finding{}, false
}

// isSingleCommand reports whether a recipe line runs one command, or one
// pipeline, with no && or ; chaining.
func isSingleCommand(l *recipeLine) bool {
	if len(l.cmds) == 0 {
		return false
	}
	for _, c := range l.cmds {
		if c.Substituted {
			continue
		}
		switch c.Op {
		case ";", "&&", "||", "\n", "&":
			return false
		}
	}
	return true
}

// chainable reports whether joining the lines with && keeps their meaning.
func chainable(run []*recipeLine) bool {
	for i, l := range run {
		if l.prefix.Len > 0 || strings.Contains(l.line.Text, "\\\n") || strings.Contains(l.text, "#") {
			return false
		}
		if i == len(run)-1 {
			continue
		}
		for _, c := range l.cmds {
			if stateCommands[c.Name()] {
				return false
			}
		}
	}
	return true
}

// similarRules flags explicit rules that differ only in the names of their
// target and first prerequisite.
func similarRules(m *model) []Finding {
	groups := map[string][]*rule{}
	var keys []string
	for _, r := range m.rules {
		t := r.target
		if t == nil || t.IsPhony || len(r.names) != 1 || len(t.Prerequisites) == 0 || len(r.recipe) == 0 {
			continue
		}
		key, ok := ruleShape(r)
		if !ok {
			continue
		}
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], r)
	}

	var out []Finding
	for _, key := range keys {
		g := groups[key]
		if len(g) < m.opts.SimilarRuleThreshold {
			continue
		}
		first := g[0]
		pattern := "%" + path.Ext(first.names[0]) + ": %" + path.Ext(first.target.Prerequisites[0])
		names := ruleNames(g)
		f := first.finding(Inefficiency, RuleSimilarRules,
			fmt.Sprintf("targets %s share one recipe; the pattern rule %s could replace them", joinAnd(names), pattern))
		f.Related = names
		out = append(out, f)
	}
	return out
}

// ruleShape returns a key shared by rules whose recipes are the same once
// the target, first prerequisite and stem are replaced by placeholders.
func ruleShape(r *rule) (string, bool) {
	name := r.names[0]
	prereq := r.target.Prerequisites[0]
	ext, prereqExt := path.Ext(name), path.Ext(prereq)
	if ext == "" || prereqExt == "" || strings.ContainsAny(name+prereq, "$%") {
		return "", false
	}
	stem := strings.TrimSuffix(name, ext)
	if strings.TrimSuffix(prereq, prereqExt) != stem {
		return "", false
	}
	var b strings.Builder
	b.WriteString(ext + "\x00" + prereqExt + "\x00" + strconv.Itoa(len(r.target.Prerequisites)))
	for _, l := range r.recipe {
		line := replaceWord(l.line.Text, name, "$@")
		line = replaceWord(line, prereq, "$<")
		line = replaceWord(line, stem, "$*")
		b.WriteString("\x00" + line)
	}
	return b.String(), true
}

// replaceWord replaces occurrences of old that are not part of a longer
// name or a command-line flag.
func replaceWord(s, old, repl string) string {
	var b strings.Builder
	for at := 0; ; {
		i := strings.Index(s[at:], old)
		if i < 0 {
			b.WriteString(s[at:])
			return b.String()
		}
		i += at
		end := i + len(old)
		b.WriteString(s[at:i])
		if (i > 0 && isWordByte(s[i-1])) || (end < len(s) && isWordByte(s[end])) {
			b.WriteString(old)
		} else {
			b.WriteString(repl)
		}
		at = end
	}
}

func isWordByte(c byte) bool { return c == '-' || isNameByte(c) }

func isNameByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
