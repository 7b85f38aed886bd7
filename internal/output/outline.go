package output

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/donaldgifford/makepure/internal/ast"
)

// Outline lists the items of tree one per line, with their source lines.
// Conditional branches are indented under their header.
func Outline(tree *ast.Ast) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d item(s)\n", len(tree.Items))
	outline(&b, tree.Items, 1)
	return b.String()
}

func outline(b *strings.Builder, items []ast.Item, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, it := range items {
		fmt.Fprintf(b, "%s%-7s %s\n", indent, it.Range(), summarize(it))
		c, ok := it.(*ast.Conditional)
		if !ok {
			continue
		}
		outline(b, c.Then, depth+1)
		if c.HasElse {
			fmt.Fprintf(b, "%s        else\n", indent)
			outline(b, c.Else, depth+1)
		}
	}
}

func summarize(it ast.Item) string {
	switch v := it.(type) {
	case *ast.Variable:
		kind := "variable"
		if v.Define {
			kind = "define"
		}
		return fmt.Sprintf("%s %s %s %s", kind, v.Name, v.Flavor.Operator(), truncate(v.Value))
	case *ast.Target:
		s := fmt.Sprintf("target %s: %s", v.Name, strings.Join(v.Prerequisites, " "))
		if len(v.OrderOnly) > 0 {
			s += " | " + strings.Join(v.OrderOnly, " ")
		}
		return s + recipeCount(len(v.Recipe))
	case *ast.PatternRule:
		s := fmt.Sprintf("pattern %s: %s", v.TargetPattern, v.PrereqPattern)
		if v.Targets != "" {
			s = fmt.Sprintf("static %s: %s: %s", v.Targets, v.TargetPattern, v.PrereqPattern)
		}
		return s + recipeCount(len(v.Recipe))
	case *ast.Conditional:
		return fmt.Sprintf("%s %s", v.Condition.Kind, strings.Join(v.Condition.Args, ", "))
	case *ast.Include:
		if v.Optional {
			return "-include " + v.Path
		}
		return "include " + v.Path
	case *ast.FunctionCall:
		return fmt.Sprintf("call $(%s) with %d arg(s)", v.Name, len(v.Args))
	case *ast.Comment:
		return "comment #" + truncate(v.Text)
	case *ast.Directive:
		return strings.TrimSpace(v.Keyword + " " + v.Args)
	}
	return fmt.Sprintf("%T", it)
}

func recipeCount(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf(" (%d recipe line(s))", n)
}

func truncate(s string) string {
	return runewidth.Truncate(strings.ReplaceAll(s, "\n", `\n`), 40, "...")
}
