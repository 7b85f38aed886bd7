// Package generator renders a syntax tree back into Makefile text.
//
// Output is canonical rather than verbatim: assignments are written as
// "NAME op value", recipe lines are tab-indented and top-level rules,
// conditionals and define blocks are separated by one blank line.
// Comments stay attached to the item that follows them. Parsing the output
// yields a tree equal to the input apart from source spans.
package generator

import (
	"strings"

	"github.com/donaldgifford/makepure/internal/ast"
)

// Generate serializes tree into Makefile text ending in a newline. An
// empty tree produces an empty string.
func Generate(tree *ast.Ast) string {
	if tree == nil {
		return ""
	}
	var b strings.Builder
	writeItems(&b, tree.Items, true)
	return b.String()
}

// Item renders a single item without a trailing newline.
func Item(it ast.Item) string {
	var b strings.Builder
	writeItem(&b, it)
	return strings.TrimSuffix(b.String(), "\n")
}

func writeItems(b *strings.Builder, items []ast.Item, top bool) {
	for i, it := range items {
		if top && i > 0 && separated(items[i-1], it) {
			b.WriteByte('\n')
		}
		writeItem(b, it)
	}
}

// separated reports whether a blank line goes between two top-level items.
func separated(prev, next ast.Item) bool {
	if _, ok := prev.(*ast.Comment); ok {
		return false
	}
	return isBlock(prev) || isBlock(next)
}

func isBlock(it ast.Item) bool {
	switch v := it.(type) {
	case *ast.Target:
		return v.Assignment == nil
	case *ast.PatternRule, *ast.Conditional:
		return true
	case *ast.Variable:
		return v.Define
	}
	return false
}

func writeItem(b *strings.Builder, it ast.Item) {
	switch v := it.(type) {
	case *ast.Variable:
		writeVariable(b, v)
	case *ast.Target:
		writeTarget(b, v)
	case *ast.PatternRule:
		writePatternRule(b, v)
	case *ast.Conditional:
		b.WriteString(Header(v.Condition))
		b.WriteByte('\n')
		writeBranches(b, v)
		b.WriteString("endif\n")
	case *ast.Include:
		if v.Optional {
			b.WriteByte('-')
		}
		b.WriteString("include ")
		b.WriteString(v.Path)
		b.WriteByte('\n')
	case *ast.FunctionCall:
		b.WriteString("$(")
		b.WriteString(v.Name)
		if len(v.Args) > 0 {
			b.WriteByte(' ')
			b.WriteString(strings.Join(v.Args, ","))
		}
		b.WriteString(")\n")
	case *ast.Comment:
		b.WriteByte('#')
		b.WriteString(v.Text)
		b.WriteByte('\n')
	case *ast.Directive:
		b.WriteString(v.Keyword)
		if v.Args != "" {
			b.WriteByte(' ')
			b.WriteString(v.Args)
		}
		b.WriteByte('\n')
	}
}

func writeBranches(b *strings.Builder, c *ast.Conditional) {
	writeItems(b, c.Then, false)
	if c.ElseIf && len(c.Else) == 1 {
		if next, ok := c.Else[0].(*ast.Conditional); ok {
			b.WriteString("else ")
			b.WriteString(Header(next.Condition))
			b.WriteByte('\n')
			writeBranches(b, next)
			return
		}
	}
	if c.HasElse || len(c.Else) > 0 {
		b.WriteString("else\n")
		writeItems(b, c.Else, false)
	}
}

// Header renders a conditional's opening directive, such as
// "ifeq ($(OS),Linux)" or "ifdef DEBUG".
func Header(c ast.Condition) string {
	kw := c.Kind.Keyword()
	switch c.Kind {
	case ast.IfDef, ast.IfNdef:
		if len(c.Args) == 0 {
			return kw
		}
		return kw + " " + c.Args[0]
	}
	var a, bArg string
	if len(c.Args) > 0 {
		a = c.Args[0]
	}
	if len(c.Args) > 1 {
		bArg = c.Args[1]
	}
	if parenSafe(a) && parenSafe(bArg) && !strings.Contains(a, ",") {
		return kw + " (" + a + "," + bArg + ")"
	}
	return kw + " " + quote(a) + " " + quote(bArg)
}

// parenSafe reports whether s survives the "(a,b)" form unchanged.
func parenSafe(s string) bool {
	if s != strings.TrimSpace(s) {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func quote(s string) string {
	if strings.Contains(s, `"`) {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}

func writeModifiers(b *strings.Builder, v *ast.Variable) {
	if v.Override {
		b.WriteString("override ")
	}
	if v.Export {
		b.WriteString("export ")
	}
	if v.Private {
		b.WriteString("private ")
	}
}

func writeVariable(b *strings.Builder, v *ast.Variable) {
	writeModifiers(b, v)
	if v.Define {
		b.WriteString("define ")
		b.WriteString(v.Name)
		if v.Flavor != ast.Recursive {
			b.WriteByte(' ')
			b.WriteString(v.Flavor.Operator())
		}
		b.WriteByte('\n')
		if v.Value != "" {
			b.WriteString(v.Value)
			b.WriteByte('\n')
		}
		b.WriteString("endef\n")
		return
	}
	writeAssignment(b, v)
	if v.Comment != "" {
		b.WriteString(" #")
		b.WriteString(v.Comment)
	}
	b.WriteByte('\n')
}

func writeAssignment(b *strings.Builder, v *ast.Variable) {
	b.WriteString(v.Name)
	b.WriteByte(' ')
	b.WriteString(v.Flavor.Operator())
	if v.Value != "" {
		b.WriteByte(' ')
		b.WriteString(v.Value)
	}
}

func writeTarget(b *strings.Builder, t *ast.Target) {
	b.WriteString(t.Name)
	b.WriteByte(':')
	if t.DoubleColon {
		b.WriteByte(':')
	}
	if t.Assignment != nil {
		b.WriteByte(' ')
		writeModifiers(b, t.Assignment)
		writeAssignment(b, t.Assignment)
	} else if p := t.PrerequisiteText(); p != "" {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	b.WriteByte('\n')
	writeRecipe(b, t.Recipe)
}

func writePatternRule(b *strings.Builder, p *ast.PatternRule) {
	if p.Targets != "" {
		b.WriteString(p.Targets)
		b.WriteString(": ")
	}
	b.WriteString(p.TargetPattern)
	b.WriteByte(':')
	if p.PrereqPattern != "" {
		b.WriteByte(' ')
		b.WriteString(p.PrereqPattern)
	}
	if len(p.OrderOnly) > 0 {
		b.WriteString(" | ")
		b.WriteString(strings.Join(p.OrderOnly, " "))
	}
	b.WriteByte('\n')
	writeRecipe(b, p.Recipe)
}

// writeRecipe writes recipe lines with a tab. Conditional directives kept
// in a recipe start in the first column so make reads them as directives.
func writeRecipe(b *strings.Builder, recipe []ast.RecipeLine) {
	for _, line := range recipe {
		if line.Directive {
			b.WriteString(line.Text)
		} else {
			b.WriteByte('\t')
			b.WriteString(line.Text)
		}
		b.WriteByte('\n')
	}
}
