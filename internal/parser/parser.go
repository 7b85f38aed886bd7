// Package parser builds a Makefile syntax tree from lexed lines.
//
// Top-level lines are dispatched on a precomputed shape. Conditionals are
// parsed by recursive descent, so nesting depth is handled once here and
// consumers walk a tree. The first error stops parsing.
package parser

import (
	"fmt"
	"strings"

	"github.com/donaldgifford/makepure/internal/ast"
	"github.com/donaldgifford/makepure/internal/lexer"
	"github.com/donaldgifford/makepure/internal/source"
)

// Options tunes parsing.
type Options struct {
	// File is used only in error locations.
	File string
	// MaxLineLength bounds a logical line. Zero selects
	// lexer.DefaultMaxLineLength and a negative value disables the check.
	MaxLineLength int
}

// ParseString tokenizes and parses src with default options.
func ParseString(file, src string) (*ast.Ast, error) {
	return Options{File: file}.ParseString(src)
}

// ParseString tokenizes and parses src.
func (o Options) ParseString(src string) (*ast.Ast, error) {
	limit := o.MaxLineLength
	if limit == 0 {
		limit = lexer.DefaultMaxLineLength
	}
	return Parse(o.File, lexer.TokenizeWithLimit(src, limit))
}

// Parse builds the tree for lines produced by the lexer. The returned error
// is always a *ParseError.
func Parse(file string, lines []lexer.Line) (*ast.Ast, error) {
	p := &state{file: file, lines: lines}
	items, _, err := p.parseItems()
	if err != nil {
		return nil, err
	}
	tree := &ast.Ast{Items: items}
	markPhony(tree)
	return tree, nil
}

// shape is the discriminant a text line is dispatched on.
type shape int

const (
	shapeConditional shape = iota
	shapeElse
	shapeEndif
	shapeUnknownConditional
	shapeDefine
	shapeEndef
	shapeInclude
	shapeRule
	shapeAssignment
	shapeDirective
	shapeFunctionCall
	shapeInvalid
)

var misspelledConditionals = map[string]bool{
	"elif":    true,
	"elsif":   true,
	"elseif":  true,
	"elifeq":  true,
	"elifdef": true,
	"if":      true,
	"fi":      true,
	"end":     true,
}

func classify(text string) shape {
	word := lexer.FirstWord(text)
	switch word {
	case "ifeq", "ifneq", "ifdef", "ifndef":
		return shapeConditional
	case "else":
		return shapeElse
	case "endif":
		return shapeEndif
	case "endef":
		return shapeEndef
	case "include", "-include", "sinclude":
		return shapeInclude
	}
	if misspelledConditionals[word] && !strings.ContainsAny(text, ":=") {
		return shapeUnknownConditional
	}
	if lexer.StartsDefine(text) {
		return shapeDefine
	}
	if lexer.IsRuleLine(text) {
		return shapeRule
	}
	if idx, _ := lexer.FindAssignment(text); idx >= 0 {
		return shapeAssignment
	}
	switch word {
	case "export", "unexport", "override", "private", "vpath", "undefine":
		return shapeDirective
	}
	if _, ok := referenceOnly(text); ok {
		return shapeFunctionCall
	}
	return shapeInvalid
}

// recipeSink is the rule that recipe lines are currently attached to.
type recipeSink struct {
	recipe *[]ast.RecipeLine
	span   *ast.Span
}

type state struct {
	file  string
	lines []lexer.Line
	pos   int
	depth int
	sink  *recipeSink
}

// parseItems parses items until the end of input or an else/endif line at
// a nesting depth above zero. The terminator is consumed and returned.
func (p *state) parseItems() ([]ast.Item, *lexer.Line, error) {
	var items []ast.Item
	// Comments inside an open recipe join it if more recipe follows.
	var pending []ast.Item

	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		if err := p.checkLine(line); err != nil {
			return nil, nil, err
		}

		switch line.Kind {
		case lexer.KindBlank:
			p.pos++

		case lexer.KindComment:
			c := &ast.Comment{Text: line.Comment, Span: spanOf(line)}
			if p.sink != nil {
				pending = append(pending, c)
			} else {
				items = append(items, c)
			}
			p.pos++

		case lexer.KindRecipe, lexer.KindSpaceRecipe:
			p.keepComments(pending)
			pending = nil
			if err := p.addRecipe(line); err != nil {
				return nil, nil, err
			}
			p.pos++

		case lexer.KindDefineBody:
			return nil, nil, p.errorAt(UnterminatedDefine, line, "", "define body outside of a define block")

		default:
			items = append(items, pending...)
			pending = nil

			sh := classify(line.Text)
			if sh == shapeElse || sh == shapeEndif {
				if p.depth == 0 {
					return nil, nil, p.errorAt(InvalidConditionalSyntax, line, lexer.FirstWord(line.Text),
						fmt.Sprintf("%s without a matching if", lexer.FirstWord(line.Text)))
				}
				p.pos++
				return items, &line, nil
			}

			item, err := p.parseText(line, sh)
			if err != nil {
				return nil, nil, err
			}
			if item != nil {
				items = append(items, item)
			}
		}
	}

	return append(items, pending...), nil, nil
}

// parseText parses the text line at p.pos and advances past everything it
// consumed. A nil item with a nil error means the line was absorbed into
// the open recipe.
func (p *state) parseText(line lexer.Line, sh shape) (ast.Item, error) {
	if sh != shapeConditional {
		p.sink = nil
	}

	switch sh {
	case shapeConditional:
		return p.parseConditional(line)
	case shapeUnknownConditional:
		word := lexer.FirstWord(line.Text)
		return nil, p.errorAt(UnknownConditional, line, word, fmt.Sprintf("%q is not a make conditional", word))
	case shapeDefine:
		return p.parseDefine(line)
	case shapeEndef:
		return nil, p.errorAt(InvalidVariableAssignment, line, "endef", "endef without a matching define")
	case shapeInclude:
		p.pos++
		return p.parseInclude(line)
	case shapeRule:
		p.pos++
		return p.parseRule(line)
	case shapeAssignment:
		p.pos++
		v, err := p.parseVariable(line, line.Text)
		if err != nil {
			return nil, err
		}
		v.Comment = line.Comment
		return v, nil
	case shapeDirective:
		p.pos++
		return p.parseDirective(line)
	case shapeFunctionCall:
		p.pos++
		return parseFunctionLine(line), nil
	}

	if !lexer.Balanced(line.Text) {
		return nil, p.errorAt(InvalidTargetRule, line, "$", "unterminated variable reference")
	}
	return nil, p.errorAt(InvalidTargetRule, line, "", "missing separator")
}

// checkLine rejects lines the lexer flagged as malformed.
func (p *state) checkLine(line lexer.Line) error {
	if line.TooLong {
		return p.errorAt(LineTooLong, line, "", fmt.Sprintf("%d bytes", len(line.Text)))
	}
	if line.Unterminated {
		return p.errorAt(UnexpectedEOF, line, "\\", "line continuation at end of file")
	}
	return nil
}

func (p *state) addRecipe(line lexer.Line) error {
	if p.sink == nil {
		return p.errorAt(InvalidTargetRule, line, "", "recipe commences before first target")
	}
	p.appendRecipe(ast.RecipeLine{
		Text:          line.Text,
		Line:          line.Number,
		SpaceIndented: line.Kind == lexer.KindSpaceRecipe,
	}, line)
	return nil
}

// keepComments moves make comments found between recipe lines into the
// recipe. Like conditionals there, they stay in the first column.
func (p *state) keepComments(comments []ast.Item) {
	if p.sink == nil {
		return
	}
	for _, it := range comments {
		c := it.(*ast.Comment)
		*p.sink.recipe = append(*p.sink.recipe, ast.RecipeLine{Text: "#" + c.Text, Line: c.Span.Start, Directive: true})
	}
}

func (p *state) appendRecipe(r ast.RecipeLine, line lexer.Line) {
	*p.sink.recipe = append(*p.sink.recipe, r)
	if line.EndNumber > p.sink.span.End {
		p.sink.span.End = line.EndNumber
	}
}

func (p *state) parseInclude(line lexer.Line) (ast.Item, error) {
	word := lexer.FirstWord(line.Text)
	paths := strings.TrimSpace(line.Text[len(word):])
	if paths == "" {
		return nil, p.errorAt(InvalidIncludeSyntax, line, word, word+" without a file name")
	}
	return &ast.Include{
		Path:     paths,
		Optional: word != "include",
		Span:     spanOf(line),
	}, nil
}

func (p *state) parseDirective(line lexer.Line) (ast.Item, error) {
	word := lexer.FirstWord(line.Text)
	args := strings.TrimSpace(line.Text[len(word):])
	switch word {
	case "override", "private":
		return nil, p.errorAt(NoAssignmentOperator, line, word, word+" without an assignment")
	case "undefine":
		if args == "" {
			return nil, p.errorAt(MissingVariableName, line, word, "undefine without a variable name")
		}
	}
	return &ast.Directive{Keyword: word, Args: args, Span: spanOf(line)}, nil
}

func parseFunctionLine(line lexer.Line) ast.Item {
	fc := &ast.FunctionCall{Span: spanOf(line)}
	if calls := ExtractFunctionCalls(line.Text); len(calls) == 1 && calls[0].End == len(line.Text) {
		fc.Name = calls[0].Name
		fc.Args = calls[0].Args
		return fc
	}
	// A bare reference such as $(RULES) that expands to make syntax.
	inner, _ := referenceOnly(line.Text)
	fc.Name = inner
	return fc
}

// parseVariable parses an assignment, with optional override, export and
// private modifiers, from text.
func (p *state) parseVariable(line lexer.Line, text string) (*ast.Variable, error) {
	idx, op := lexer.FindAssignment(text)
	if idx < 0 {
		return nil, p.errorAt(NoAssignmentOperator, line, "", "no assignment operator")
	}

	v := &ast.Variable{Span: spanOf(line)}
	words := lexer.Fields(text[:idx])
	words = stripModifiers(words, v)
	switch {
	case len(words) == 0:
		return nil, p.errorAt(EmptyVariableName, line, op, "nothing before "+op)
	case len(words) > 1:
		return nil, p.errorAt(InvalidVariableAssignment, line, words[1],
			fmt.Sprintf("variable name %q contains whitespace", strings.Join(words, " ")))
	}

	v.Name = words[0]
	v.Flavor, _ = ast.FlavorFromOperator(op)
	v.Value = strings.TrimLeft(text[idx+len(op):], " \t")
	return v, nil
}

// stripModifiers consumes leading override/export/private words, keeping
// at least one word so a variable named like a modifier still parses.
func stripModifiers(words []string, v *ast.Variable) []string {
	for len(words) > 1 {
		switch words[0] {
		case "override":
			v.Override = true
		case "export":
			v.Export = true
		case "private":
			v.Private = true
		default:
			return words
		}
		words = words[1:]
	}
	return words
}

// parseDefine consumes a define block through its endef.
func (p *state) parseDefine(open lexer.Line) (ast.Item, error) {
	v := &ast.Variable{Define: true, Flavor: ast.Recursive}
	words := stripModifiers(lexer.Fields(open.Text), v)
	if len(words) == 0 || words[0] != "define" {
		return nil, p.errorAt(InvalidVariableAssignment, open, "", "malformed define")
	}
	words = words[1:]
	switch {
	case len(words) == 0:
		return nil, p.errorAt(EmptyVariableName, open, "define", "define without a variable name")
	case len(words) == 2:
		flavor, ok := ast.FlavorFromOperator(words[1])
		if !ok {
			return nil, p.errorAt(InvalidVariableAssignment, open, words[1],
				fmt.Sprintf("unknown operator %q after define", words[1]))
		}
		v.Flavor = flavor
	case len(words) > 2:
		return nil, p.errorAt(InvalidVariableAssignment, open, words[1], "define takes one name and an optional operator")
	}
	v.Name = words[0]

	p.pos++
	var body []string
	for ; p.pos < len(p.lines); p.pos++ {
		line := p.lines[p.pos]
		if line.Kind == lexer.KindDefineBody {
			body = append(body, line.Text)
			continue
		}
		// The lexer emits the closing endef as a text line.
		v.Value = strings.Join(body, "\n")
		v.Span = ast.Span{Start: open.Number, End: line.EndNumber}
		p.pos++
		return v, nil
	}
	return nil, p.errorAt(UnterminatedDefine, open, "define", fmt.Sprintf("define %s has no matching endef", v.Name))
}

// parseRule parses a rule header: an explicit target, a pattern rule, a
// static pattern rule or a target-specific variable.
func (p *state) parseRule(line lexer.Line) (ast.Item, error) {
	text := line.Text
	colon := lexer.FindRuleColon(text)
	targets := strings.TrimSpace(text[:colon])
	if targets == "" {
		return nil, p.errorAt(EmptyTargetName, line, ":", "rule has no target before the colon")
	}
	if !lexer.Balanced(targets) {
		return nil, p.errorAt(InvalidTargetRule, line, "$", "unterminated variable reference in target")
	}

	rest := text[colon+1:]
	double := strings.HasPrefix(rest, ":")
	if double {
		rest = rest[1:]
	}

	if assign, _ := lexer.FindAssignment(rest); assign >= 0 {
		colon2 := lexer.FindRuleColon(rest)
		semi := lexer.IndexTopLevel(rest, ';')
		if (colon2 < 0 || colon2 >= assign) && (semi < 0 || semi > assign) {
			v, err := p.parseVariable(line, rest)
			if err != nil {
				return nil, err
			}
			t := &ast.Target{Name: targets, DoubleColon: double, Assignment: v, Span: spanOf(line)}
			p.sink = &recipeSink{recipe: &t.Recipe, span: &t.Span}
			return t, nil
		}
	}

	var inline *ast.RecipeLine
	if semi := lexer.IndexTopLevel(rest, ';'); semi >= 0 {
		inline = &ast.RecipeLine{Text: strings.TrimSpace(rest[semi+1:]), Line: line.Number}
		rest = rest[:semi]
	}

	var item ast.Item
	var sink *recipeSink
	if colon2 := lexer.FindRuleColon(rest); colon2 >= 0 {
		normal, orderOnly := splitPrerequisites(rest[colon2+1:])
		pr := &ast.PatternRule{
			Targets:       targets,
			TargetPattern: strings.TrimSpace(rest[:colon2]),
			PrereqPattern: strings.Join(normal, " "),
			OrderOnly:     orderOnly,
			Span:          spanOf(line),
		}
		if pr.TargetPattern == "" {
			return nil, p.errorAt(InvalidTargetRule, line, ":", "static pattern rule without a target pattern")
		}
		item, sink = pr, &recipeSink{recipe: &pr.Recipe, span: &pr.Span}
	} else {
		normal, orderOnly := splitPrerequisites(rest)
		if strings.Contains(targets, "%") {
			pr := &ast.PatternRule{
				TargetPattern: targets,
				PrereqPattern: strings.Join(normal, " "),
				OrderOnly:     orderOnly,
				Span:          spanOf(line),
			}
			item, sink = pr, &recipeSink{recipe: &pr.Recipe, span: &pr.Span}
		} else {
			t := &ast.Target{
				Name:          targets,
				Prerequisites: normal,
				OrderOnly:     orderOnly,
				DoubleColon:   double,
				Span:          spanOf(line),
			}
			item, sink = t, &recipeSink{recipe: &t.Recipe, span: &t.Span}
		}
	}

	p.sink = sink
	if inline != nil {
		*sink.recipe = append(*sink.recipe, *inline)
	}
	return item, nil
}

func splitPrerequisites(text string) (normal, orderOnly []string) {
	if bar := lexer.IndexTopLevel(text, '|'); bar >= 0 {
		return lexer.Fields(text[:bar]), lexer.Fields(text[bar+1:])
	}
	return lexer.Fields(text), nil
}

// markPhony sets IsPhony on targets whose every name is listed as a
// prerequisite of .PHONY.
func markPhony(tree *ast.Ast) {
	phony := map[string]bool{}
	targets := tree.Targets()
	for _, t := range targets {
		if t.Name == ".PHONY" {
			for _, name := range t.Prerequisites {
				phony[name] = true
			}
		}
	}
	if len(phony) == 0 {
		return
	}
	for _, t := range targets {
		names := t.Names()
		t.IsPhony = len(names) > 0
		for _, n := range names {
			if !phony[n] {
				t.IsPhony = false
				break
			}
		}
	}
}

func spanOf(line lexer.Line) ast.Span {
	return ast.Span{Start: line.Number, End: line.EndNumber}
}

// errorAt builds a ParseError located at line. The column points at the
// first occurrence of needle on the line, or at its first non-blank byte.
func (p *state) errorAt(kind ErrorKind, line lexer.Line, needle, detail string) *ParseError {
	first, _, _ := strings.Cut(line.Raw, "\n")
	col := len(first) - len(strings.TrimLeft(first, " \t")) + 1
	if needle != "" {
		if i := strings.Index(first, needle); i >= 0 {
			col = i + 1
		}
	}
	return &ParseError{
		Kind: kind,
		Location: &source.Location{
			File:       p.file,
			Line:       line.Number,
			Column:     col,
			SourceLine: snippet(first),
		},
		Detail: detail,
	}
}
