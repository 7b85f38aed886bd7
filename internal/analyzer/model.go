package analyzer

import (
	"strings"

	"github.com/donaldgifford/makepure/internal/ast"
	"github.com/donaldgifford/makepure/internal/parser"
	"github.com/donaldgifford/makepure/internal/shell"
)

// model is the read-only view of a tree shared by the passes.
type model struct {
	opts Options
	tree *ast.Ast
	acks ast.Acknowledged

	defs  []*definition
	rules []*rule
	// deps maps each explicit target name to its prerequisites.
	deps map[string][]string

	// includes holds the order of every include directive.
	includes []int
	hasEval  bool

	oneShell    bool
	notParallel bool
	errexit     bool
	bash        bool
}

// definition is one assignment of a variable.
type definition struct {
	v     *ast.Variable
	order int
	// target is set for target-specific assignments.
	target *ast.Target
}

// rule is an explicit target or a pattern rule.
type rule struct {
	item    ast.Item
	target  *ast.Target // nil for pattern rules
	names   []string
	display string
	recipe  []*recipeLine
	order   int
}

// recipeLine is a recipe line split into shell commands. Command offsets
// are relative to text, which is the line without its @-+ modifiers.
type recipeLine struct {
	index  int
	line   ast.RecipeLine
	prefix shell.Prefix
	text   string
	cmds   []shell.Command
}

func (l *recipeLine) span() ast.Span {
	return ast.Span{Start: l.line.Line, End: l.line.Line + strings.Count(l.line.Text, "\n")}
}

func newModel(tree *ast.Ast, opts Options) *model {
	m := &model{
		opts: opts,
		tree: tree,
		acks: ast.CollectAcknowledged(tree.Items),
		deps: map[string][]string{},
	}

	order := 0
	ast.Walk(tree.Items, func(it ast.Item) bool {
		order++
		switch v := it.(type) {
		case *ast.Variable:
			m.defs = append(m.defs, &definition{v: v, order: order})
			m.noteVariable(v)
			m.noteEval(v.Value)
		case *ast.Target:
			if v.Assignment != nil {
				m.defs = append(m.defs, &definition{v: v.Assignment, order: order, target: v})
				m.noteEval(v.Assignment.Value)
			}
			m.addTarget(v, order)
		case *ast.PatternRule:
			m.addPatternRule(v, order)
		case *ast.Include:
			m.includes = append(m.includes, order)
		case *ast.FunctionCall:
			if v.Name == "eval" {
				m.hasEval = true
			}
		}
		return true
	})
	return m
}

func (m *model) noteVariable(v *ast.Variable) {
	switch v.Name {
	case "SHELL":
		m.bash = strings.Contains(v.Value, "bash")
	case ".SHELLFLAGS":
		for _, w := range strings.Fields(v.Value) {
			if len(w) > 1 && w[0] == '-' && w[1] != '-' && strings.Contains(w, "e") {
				m.errexit = true
			}
		}
	}
}

func (m *model) noteEval(text string) {
	visitCalls(text, func(c parser.Call, _ bool) bool {
		if c.Name == "eval" {
			m.hasEval = true
		}
		return true
	})
}

func (m *model) addTarget(t *ast.Target, order int) {
	names := t.Names()
	special := false
	for _, n := range names {
		switch n {
		case ".ONESHELL":
			m.oneShell = true
			special = true
		case ".NOTPARALLEL":
			m.notParallel = true
			special = true
		}
		if isSpecial(n) {
			special = true
		}
		m.deps[n] = append(m.deps[n], t.Prerequisites...)
		m.deps[n] = append(m.deps[n], t.OrderOnly...)
	}
	if special {
		return
	}
	m.rules = append(m.rules, &rule{
		item:    t,
		target:  t,
		names:   names,
		display: t.Name,
		recipe:  splitRecipe(t.Recipe),
		order:   order,
	})
}

func (m *model) addPatternRule(p *ast.PatternRule, order int) {
	names := strings.Fields(p.Targets)
	if len(names) == 0 {
		names = strings.Fields(p.TargetPattern)
	}
	m.rules = append(m.rules, &rule{
		item:    p,
		names:   names,
		display: strings.Join(names, " "),
		recipe:  splitRecipe(p.Recipe),
		order:   order,
	})
}

// isSpecial reports whether name is a special target such as .PHONY.
func isSpecial(name string) bool {
	return len(name) > 1 && name[0] == '.' && strings.ToUpper(name) == name && !strings.ContainsAny(name, "/%$")
}

func splitRecipe(recipe []ast.RecipeLine) []*recipeLine {
	var out []*recipeLine
	for i, line := range recipe {
		if line.Directive {
			continue
		}
		prefix := shell.RecipePrefix(line.Text)
		text := line.Text[prefix.Len:]
		out = append(out, &recipeLine{
			index:  i,
			line:   line,
			prefix: prefix,
			text:   text,
			cmds:   shell.Parse(text, shell.Make),
		})
	}
	return out
}

// reaches reports whether any name of a depends, directly or through other
// targets, on any name of b.
func (m *model) reaches(a, b *rule) bool {
	want := map[string]bool{}
	for _, n := range b.names {
		want[n] = true
	}
	seen := map[string]bool{}
	stack := append([]string(nil), a.names...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range m.deps[n] {
			if want[d] {
				return true
			}
			if !seen[d] {
				seen[d] = true
				stack = append(stack, d)
			}
		}
	}
	return false
}

// ordered reports whether make can never run a and b at the same time.
func (m *model) ordered(a, b *rule) bool {
	return a == b || m.reaches(a, b) || m.reaches(b, a)
}

// isTarget reports whether name is the name of an explicit target.
func (m *model) isTarget(name string) bool {
	_, ok := m.deps[name]
	return ok
}

// site is a piece of make text that the determinism checks scan.
type site struct {
	item    ast.Item
	place   Place
	recipe  int
	subject string
	text    string
	span    ast.Span
}

func (s site) finding(kind IssueKind, rule, detail string, autofix bool) Finding {
	count := 0
	if s.place == InRecipe {
		count = 1
	}
	return Finding{
		Kind:    kind,
		Rule:    rule,
		Span:    s.span,
		Subject: s.subject,
		Detail:  detail,
		Item:    s.item,
		Place:   s.place,
		Recipe:  s.recipe,
		Count:   count,
		Autofix: autofix,
	}
}

// sites lists variable values, prerequisite lists and recipe lines in
// source order.
func (m *model) sites() []site {
	var out []site
	ast.Walk(m.tree.Items, func(it ast.Item) bool {
		switch v := it.(type) {
		case *ast.Variable:
			out = append(out, site{item: v, place: InValue, recipe: -1, subject: v.Name, text: v.Value, span: v.Span})
		case *ast.Target:
			if v.Assignment != nil {
				out = append(out, site{item: v, place: InValue, recipe: -1, subject: v.Name, text: v.Assignment.Value, span: v.Span})
			}
			if len(v.Prerequisites) > 0 {
				out = append(out, site{item: v, place: InPrerequisites, recipe: -1, subject: v.Name,
					text: strings.Join(v.Prerequisites, " "), span: ast.Span{Start: v.Span.Start, End: v.Span.Start}})
			}
			out = append(out, recipeSites(v, v.Name, v.Recipe)...)
		case *ast.PatternRule:
			out = append(out, recipeSites(v, v.TargetPattern, v.Recipe)...)
		}
		return true
	})
	return out
}

func recipeSites(it ast.Item, subject string, recipe []ast.RecipeLine) []site {
	var out []site
	for i, line := range recipe {
		if line.Directive {
			continue
		}
		out = append(out, site{
			item:    it,
			place:   InRecipe,
			recipe:  i,
			subject: subject,
			text:    line.Text,
			span:    ast.Span{Start: line.Line, End: line.Line + strings.Count(line.Text, "\n")},
		})
	}
	return out
}

// ruleFinding builds a finding anchored on a whole rule.
func (r *rule) finding(kind IssueKind, rule, detail string) Finding {
	return Finding{
		Kind:    kind,
		Rule:    rule,
		Span:    r.item.Range(),
		Subject: r.display,
		Detail:  detail,
		Item:    r.item,
		Place:   InRule,
		Recipe:  -1,
	}
}

// lineFinding builds a finding on one recipe line of a rule.
func (r *rule) lineFinding(l *recipeLine, kind IssueKind, rule, detail string, autofix bool) Finding {
	return Finding{
		Kind:    kind,
		Rule:    rule,
		Span:    l.span(),
		Subject: r.display,
		Detail:  detail,
		Item:    r.item,
		Place:   InRecipe,
		Recipe:  l.index,
		Count:   1,
		Autofix: autofix,
	}
}
