package purify

import (
	"strings"

	"github.com/donaldgifford/makepure/internal/analyzer"
	"github.com/donaldgifford/makepure/internal/ast"
	"github.com/donaldgifford/makepure/internal/parser"
	"github.com/donaldgifford/makepure/internal/shell"
)

// rewrite applies the safe rewrite for f to the item it is anchored to.
// It reports false when the site no longer holds the problem.
func rewrite(f analyzer.Finding) (Transformation, bool) {
	base := Base{In: StageOf(f.Kind), Names: []string{f.Subject}, Why: f.Detail}

	switch f.Rule {
	case analyzer.RuleUnsortedWildcard, analyzer.RuleUnsortedFind:
		match := analyzer.IsWildcard
		if f.Rule == analyzer.RuleUnsortedFind {
			match = analyzer.IsFind
		}
		var calls []string
		ok := editText(f, func(text string) string {
			out, wrapped := wrapSorted(text, match)
			calls = append(calls, wrapped...)
			return out
		})
		if !ok {
			return nil, false
		}
		return &WrapWithSort{Base: base, Call: strings.Join(calls, " ")}, true

	case analyzer.RuleProcessID:
		var tokens []string
		ok := editText(f, func(text string) string {
			out, stripped := stripProcessIDs(text)
			tokens = append(tokens, stripped...)
			return out
		})
		if !ok {
			return nil, false
		}
		return &StripProcessID{Base: base, Tokens: tokens}, true

	case analyzer.RuleMkdirWithoutP:
		return addFlag(f, base, "mkdir", 'p', "--parents", nil)
	case analyzer.RuleRmWithoutF:
		return addFlag(f, base, "rm", 'f', "--force", nil)
	case analyzer.RuleLnWithoutF:
		return addFlag(f, base, "ln", 'f', "--force", func(c shell.Command) bool {
			return c.HasFlag('s', "--symbolic")
		})

	case analyzer.RuleMissingDependency:
		t, ok := f.Item.(*ast.Target)
		if !ok || len(f.Related) == 0 || t.DependsOn(f.Related[0]) {
			return nil, false
		}
		t.OrderOnly = append(t.OrderOnly, f.Related[0])
		return &AddOrderOnlyPrerequisite{Base: base, Target: t.Name, Prerequisite: f.Related[0]}, true

	case analyzer.RuleShellInRecursive, analyzer.RuleConstantRecursive:
		v, ok := f.Item.(*ast.Variable)
		if !ok || v.Flavor != ast.Recursive {
			return nil, false
		}
		v.Flavor = ast.Simple
		return &ReplaceRecursiveWithSimple{Base: base, Variable: v.Name}, true

	case analyzer.RuleUnchainedRecipe:
		recipe := recipeOf(f.Item)
		if recipe == nil {
			return nil, false
		}
		joined, ok := chain(*recipe, f.Recipe, f.Count)
		if !ok {
			return nil, false
		}
		*recipe = joined
		return &ChainRecipe{Base: base, Lines: f.Count}, true

	case analyzer.RuleUncheckedCommand:
		var name string
		ok := editText(f, func(text string) string {
			out, guarded := guard(text)
			if guarded != "" {
				name = guarded
			}
			return out
		})
		if !ok {
			return nil, false
		}
		return &GuardCommand{Base: base, Command: name}, true

	case analyzer.RuleSourceBuiltin:
		if !editText(f, replaceSource) {
			return nil, false
		}
		return &ReplaceSourceWithDot{Base: base}, true
	}
	return nil, false
}

// editText rewrites the text f points into and reports whether it changed.
func editText(f analyzer.Finding, edit func(string) string) bool {
	switch f.Place {
	case analyzer.InValue:
		switch v := f.Item.(type) {
		case *ast.Variable:
			return set(&v.Value, edit)
		case *ast.Target:
			if v.Assignment != nil {
				return set(&v.Assignment.Value, edit)
			}
		}
	case analyzer.InPrerequisites:
		t, ok := f.Item.(*ast.Target)
		if !ok {
			return false
		}
		changed := false
		kept := t.Prerequisites[:0]
		for _, p := range t.Prerequisites {
			if set(&p, edit) {
				changed = true
			}
			if p != "" {
				kept = append(kept, p)
			}
		}
		t.Prerequisites = kept
		return changed
	case analyzer.InRecipe:
		recipe := recipeOf(f.Item)
		if recipe == nil || f.Recipe < 0 || f.Recipe >= len(*recipe) || (*recipe)[f.Recipe].Directive {
			return false
		}
		return set(&(*recipe)[f.Recipe].Text, edit)
	}
	return false
}

func set(s *string, edit func(string) string) bool {
	out := edit(*s)
	if out == *s {
		return false
	}
	*s = out
	return true
}

func recipeOf(it ast.Item) *[]ast.RecipeLine {
	switch v := it.(type) {
	case *ast.Target:
		return &v.Recipe
	case *ast.PatternRule:
		return &v.Recipe
	}
	return nil
}

// wrapSorted wraps every unsorted call matched in text with $(sort ...).
func wrapSorted(text string, match func(parser.Call) bool) (string, []string) {
	calls := analyzer.UnsortedCalls(text, match)
	wrapped := make([]string, len(calls))
	for i := len(calls) - 1; i >= 0; i-- {
		c := calls[i]
		wrapped[i] = text[c.Start:c.End]
		text = text[:c.Start] + "$(sort " + wrapped[i] + ")" + text[c.End:]
	}
	return text, wrapped
}

// stripProcessIDs removes process id expansions from text together with a
// ".", "-" or "_" directly in front of them.
func stripProcessIDs(text string) (string, []string) {
	refs := shell.ProcessIDRefs(text, shell.Make)
	tokens := make([]string, len(refs))
	for i := len(refs) - 1; i >= 0; i-- {
		start, end := refs[i].Start, refs[i].End
		tokens[i] = text[start:end]
		if start > 0 && strings.IndexByte(".-_", text[start-1]) >= 0 {
			start--
		}
		text = text[:start] + text[end:]
	}
	return text, tokens
}

// addFlag inserts -flag after the name of the first command called name
// that lacks it on the finding's recipe line.
func addFlag(f analyzer.Finding, base Base, name string, short byte, long string, need func(shell.Command) bool) (Transformation, bool) {
	flag := "-" + string(short)
	ok := editText(f, func(text string) string {
		p := shell.RecipePrefix(text)
		cmds := shell.Parse(text[p.Len:], shell.Make)
		for i, c := range cmds {
			if c.Name() != name || c.HasFlag(short, long) || (i > 0 && cmds[i-1].Op == "||") {
				continue
			}
			if need != nil && !need(c) {
				continue
			}
			w, ok := c.NameWord()
			if !ok {
				continue
			}
			at := p.Len + w.End
			return text[:at] + " " + flag + text[at:]
		}
		return text
	})
	if !ok {
		return nil, false
	}
	return &AddCommandFlag{Base: base, Command: name, Flag: flag}, true
}

// chain joins count recipe lines starting at start with &&.
func chain(recipe []ast.RecipeLine, start, count int) ([]ast.RecipeLine, bool) {
	if count < 2 || start < 0 || start+count > len(recipe) {
		return nil, false
	}
	parts := make([]string, count)
	for i, line := range recipe[start : start+count] {
		if line.Directive {
			return nil, false
		}
		parts[i] = strings.TrimSpace(line.Text)
	}
	joined := recipe[start]
	joined.Text = strings.Join(parts, " && ")
	joined.SpaceIndented = false

	out := make([]ast.RecipeLine, 0, len(recipe)-count+1)
	out = append(out, recipe[:start]...)
	out = append(out, joined)
	out = append(out, recipe[start+count:]...)
	return out, true
}

// guard replaces the ";" after the first unchecked critical command with
// "&&" and returns the command's name.
func guard(text string) (string, string) {
	p := shell.RecipePrefix(text)
	cmds := shell.Parse(text[p.Len:], shell.Make)
	for i, c := range cmds {
		if i == len(cmds)-1 || c.Substituted || !analyzer.CriticalCommand(c.Name()) {
			continue
		}
		switch c.Op {
		case ";":
			at := p.Len + c.OpStart
			return text[:at] + " &&" + text[at+1:], c.Name()
		case "&":
			return text, ""
		}
	}
	return text, ""
}

func replaceSource(text string) string {
	p := shell.RecipePrefix(text)
	for _, c := range shell.Parse(text[p.Len:], shell.Make) {
		if c.Name() != "source" {
			continue
		}
		if w, ok := c.NameWord(); ok {
			return text[:p.Len+w.Start] + "." + text[p.Len+w.End:]
		}
	}
	return text
}
