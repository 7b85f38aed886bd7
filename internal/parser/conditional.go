package parser

import (
	"fmt"
	"strings"

	"github.com/donaldgifford/makepure/internal/ast"
	"github.com/donaldgifford/makepure/internal/lexer"
)

// parseConditional parses the block opened at p.pos. When a rule's recipe
// is open and the block holds nothing but recipe lines, the directives are
// kept inline in the recipe and no item is returned.
func (p *state) parseConditional(open lexer.Line) (ast.Item, error) {
	if p.sink != nil {
		handled, err := p.recipeConditional()
		if err != nil {
			return nil, err
		}
		if handled {
			return nil, nil
		}
	}

	cond, err := p.parseCondition(open, open.Text)
	if err != nil {
		return nil, err
	}
	p.pos++
	c, err := p.conditionalBody(open, cond)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// conditionalBody parses the branches of a conditional whose header has
// already been consumed, through its endif.
func (p *state) conditionalBody(open lexer.Line, cond ast.Condition) (*ast.Conditional, error) {
	p.depth++
	defer func() { p.depth-- }()

	c := &ast.Conditional{Condition: cond, Span: ast.Span{Start: open.Number}}

	then, term, err := p.parseItems()
	if err != nil {
		return nil, err
	}
	if term == nil {
		return nil, p.unterminated(open)
	}
	c.Then = then
	if lexer.FirstWord(term.Text) == "endif" {
		c.Span.End = term.EndNumber
		return c, nil
	}

	c.HasElse = true
	if rest := strings.TrimSpace(strings.TrimPrefix(term.Text, "else")); rest != "" {
		if err := p.checkElse(*term, rest); err != nil {
			return nil, err
		}
		chained, err := p.parseCondition(*term, rest)
		if err != nil {
			return nil, err
		}
		// The chained conditional shares this block's endif.
		nested, err := p.conditionalBody(*term, chained)
		if err != nil {
			return nil, err
		}
		c.ElseIf = true
		c.Else = []ast.Item{nested}
		c.Span.End = nested.Span.End
		return c, nil
	}

	els, term, err := p.parseItems()
	if err != nil {
		return nil, err
	}
	if term == nil {
		return nil, p.unterminated(open)
	}
	if lexer.FirstWord(term.Text) == "else" {
		return nil, p.errorAt(InvalidConditionalSyntax, *term, "else", "only one else is allowed per conditional")
	}
	c.Else = els
	c.Span.End = term.EndNumber
	return c, nil
}

func (p *state) unterminated(open lexer.Line) error {
	return p.errorAt(UnterminatedConditional, open, lexer.FirstWord(open.Text),
		fmt.Sprintf("%s opened here has no matching endif", lexer.FirstWord(open.Text)))
}

// checkElse validates the text following "else".
func (p *state) checkElse(line lexer.Line, rest string) error {
	switch lexer.FirstWord(rest) {
	case "ifeq", "ifneq", "ifdef", "ifndef":
		return nil
	}
	return p.errorAt(UnknownConditional, line, lexer.FirstWord(rest),
		fmt.Sprintf("else may only be followed by a conditional, not %q", lexer.FirstWord(rest)))
}

// parseCondition parses a conditional header such as "ifeq (a,b)".
func (p *state) parseCondition(line lexer.Line, text string) (ast.Condition, error) {
	word := lexer.FirstWord(text)
	args := strings.TrimSpace(strings.TrimLeft(text, " \t")[len(word):])

	switch word {
	case "ifeq", "ifneq":
		kind := ast.IfEq
		if word == "ifneq" {
			kind = ast.IfNeq
		}
		if args == "" {
			return ast.Condition{}, p.errorAt(MissingConditionalArguments, line, word, word+" needs two values to compare")
		}
		pair, ok := splitComparison(args)
		if !ok {
			return ast.Condition{}, p.errorAt(InvalidConditionalSyntax, line, args,
				fmt.Sprintf("malformed %s arguments %q", word, args))
		}
		return ast.Condition{Kind: kind, Args: pair}, nil

	case "ifdef", "ifndef":
		kind := ast.IfDef
		if word == "ifndef" {
			kind = ast.IfNdef
		}
		if args == "" {
			return ast.Condition{}, p.errorAt(MissingVariableName, line, word, word+" needs a variable name")
		}
		if names := lexer.Fields(args); len(names) != 1 {
			return ast.Condition{}, p.errorAt(InvalidConditionalSyntax, line, args,
				fmt.Sprintf("%s takes a single variable name, got %q", word, args))
		}
		return ast.Condition{Kind: kind, Args: []string{args}}, nil
	}

	return ast.Condition{}, p.errorAt(UnknownConditional, line, word, fmt.Sprintf("%q is not a make conditional", word))
}

// splitComparison splits "(a,b)", "'a' 'b'" or "\"a\" 'b'" into two values.
func splitComparison(args string) ([]string, bool) {
	if args[0] == '(' {
		if args[len(args)-1] != ')' || matchParen(args) != len(args)-1 {
			return nil, false
		}
		inner := args[1 : len(args)-1]
		comma := lexer.IndexTopLevel(inner, ',')
		if comma < 0 {
			return nil, false
		}
		return []string{strings.TrimSpace(inner[:comma]), strings.TrimSpace(inner[comma+1:])}, true
	}

	first, rest, ok := quoted(args)
	if !ok {
		return nil, false
	}
	second, rest, ok := quoted(strings.TrimLeft(rest, " \t"))
	if !ok || strings.TrimSpace(rest) != "" {
		return nil, false
	}
	return []string{first, second}, true
}

// matchParen returns the index of the parenthesis closing args[0].
func matchParen(args string) int {
	depth := 0
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// quoted reads one single- or double-quoted word from the start of s.
func quoted(s string) (string, string, bool) {
	if s == "" || (s[0] != '"' && s[0] != '\'') {
		return "", "", false
	}
	end := strings.IndexByte(s[1:], s[0])
	if end < 0 {
		return "", "", false
	}
	return s[1 : end+1], s[end+2:], true
}

// recipeConditional handles a conditional that sits inside an open recipe.
// It reports false, leaving the position unchanged, when any branch holds
// something other than recipe lines, comments or nested conditionals.
func (p *state) recipeConditional() (bool, error) {
	depth := 0
	end := -1
scan:
	for i := p.pos; i < len(p.lines); i++ {
		line := p.lines[i]
		switch line.Kind {
		case lexer.KindBlank, lexer.KindComment, lexer.KindRecipe, lexer.KindSpaceRecipe:
			continue
		case lexer.KindText:
		default:
			return false, nil
		}
		switch classify(line.Text) {
		case shapeConditional:
			depth++
		case shapeElse:
		case shapeEndif:
			depth--
		default:
			return false, nil
		}
		if depth == 0 {
			end = i
			break scan
		}
	}
	if end < 0 {
		return false, nil
	}

	for ; p.pos <= end; p.pos++ {
		line := p.lines[p.pos]
		if err := p.checkLine(line); err != nil {
			return true, err
		}
		switch line.Kind {
		case lexer.KindRecipe, lexer.KindSpaceRecipe:
			if err := p.addRecipe(line); err != nil {
				return true, err
			}
		case lexer.KindText:
			if err := p.checkDirective(line); err != nil {
				return true, err
			}
			p.appendRecipe(ast.RecipeLine{Text: line.Text, Line: line.Number, Directive: true}, line)
		}
	}
	return true, nil
}

// checkDirective validates a conditional directive kept inline in a recipe.
func (p *state) checkDirective(line lexer.Line) error {
	switch word := lexer.FirstWord(line.Text); word {
	case "endif":
		return nil
	case "else":
		rest := strings.TrimSpace(strings.TrimPrefix(line.Text, "else"))
		if rest == "" {
			return nil
		}
		if err := p.checkElse(line, rest); err != nil {
			return err
		}
		_, err := p.parseCondition(line, rest)
		return err
	}
	_, err := p.parseCondition(line, line.Text)
	return err
}
