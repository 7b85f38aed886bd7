package linter

import (
	"strings"

	"github.com/donaldgifford/makepure/internal/ast"
	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/lexer"
	"github.com/donaldgifford/makepure/internal/parser"
	"github.com/donaldgifford/makepure/internal/shell"
	"github.com/donaldgifford/makepure/internal/source"
)

// SegmentKind tells rules where a piece of text came from.
type SegmentKind int

const (
	// SegmentShell is a whole shell script.
	SegmentShell SegmentKind = iota
	// SegmentRecipe is one recipe line of a Makefile, without its indent
	// and @, - and + modifiers.
	SegmentRecipe
	// SegmentMake is a make-syntax line: an assignment, a rule header or
	// a directive.
	SegmentMake
	// SegmentShellCall is the command text of a $(shell ...) call.
	SegmentShellCall
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentShell:
		return "shell"
	case SegmentRecipe:
		return "recipe"
	case SegmentMake:
		return "make"
	case SegmentShellCall:
		return "shell-call"
	}
	return "unknown"
}

// Segment is a piece of the file that rules scan as a unit. Offsets of
// Commands are relative to Text; Span converts them to file offsets.
type Segment struct {
	Kind    SegmentKind
	Text    string
	Start   int
	Dialect shell.Dialect
	// Prefix holds the recipe modifiers stripped from a SegmentRecipe.
	Prefix shell.Prefix
	// Commands is set for segments the shell runs.
	Commands []shell.Command
}

// Span returns the file span of Text[start:end].
func (s Segment) Span(start, end int) source.Span {
	return source.Span{Start: s.Start + start, End: s.Start + end}
}

// Runs reports whether the segment is text the shell executes.
func (s Segment) Runs() bool {
	return s.Kind != SegmentMake
}

// Context is what a rule sees of the file being linted.
type Context struct {
	File *source.File
	Kind source.Kind

	// Lines and Tree are set for Makefiles only.
	Lines []lexer.Line
	Tree  *ast.Ast

	Segments []Segment

	rule     Rule
	severity diag.Severity
	diags    []diag.Diagnostic
}

// NewContext prepares f for linting. Makefiles are parsed, and a parse
// error is returned as is.
func NewContext(f *source.File, kind source.Kind, maxLineLength int) (*Context, error) {
	ctx := &Context{File: f, Kind: kind}
	if kind == source.KindShell {
		ctx.Segments = []Segment{{
			Kind:     SegmentShell,
			Text:     f.Content,
			Dialect:  shell.Posix,
			Commands: shell.Parse(f.Content, shell.Posix),
		}}
		return ctx, nil
	}

	if maxLineLength == 0 {
		maxLineLength = lexer.DefaultMaxLineLength
	}
	ctx.Lines = lexer.TokenizeWithLimit(f.Content, maxLineLength)
	tree, err := parser.Parse(f.Name, ctx.Lines)
	if err != nil {
		return nil, err
	}
	ctx.Tree = tree
	for _, l := range ctx.Lines {
		switch l.Kind {
		case lexer.KindRecipe, lexer.KindSpaceRecipe:
			text := strings.TrimLeft(l.Raw, " \t")
			ctx.addRecipe(text, l.Offset+len(l.Raw)-len(text))
		case lexer.KindText:
			ctx.addMake(l)
		}
	}
	return ctx, nil
}

func (c *Context) addRecipe(text string, start int) {
	p := shell.RecipePrefix(text)
	text = text[p.Len:]
	c.Segments = append(c.Segments, Segment{
		Kind:     SegmentRecipe,
		Text:     text,
		Start:    start + p.Len,
		Dialect:  shell.Make,
		Prefix:   p,
		Commands: shell.Parse(text, shell.Make),
	})
}

func (c *Context) addMake(l lexer.Line) {
	text := l.Raw
	if l.Comment != "" {
		if idx := strings.LastIndex(text, "#"+l.Comment); idx >= 0 {
			text = text[:idx]
		}
	}
	c.Segments = append(c.Segments, Segment{Kind: SegmentMake, Text: text, Start: l.Offset, Dialect: shell.Make})

	var visit func(text string, base int)
	visit = func(text string, base int) {
		for _, call := range parser.ExtractFunctionCalls(text) {
			for i, arg := range call.Args {
				if call.Name == "shell" && i == 0 {
					c.Segments = append(c.Segments, Segment{
						Kind:     SegmentShellCall,
						Text:     arg,
						Start:    base + call.ArgStart[i],
						Dialect:  shell.Make,
						Commands: shell.Parse(arg, shell.Make),
					})
					continue
				}
				visit(arg, base+call.ArgStart[i])
			}
		}
	}
	visit(text, l.Offset)
}

// Report records a diagnostic for the running rule. fix may be nil.
func (c *Context) Report(span source.Span, message string, fix *diag.Fix) {
	c.diags = append(c.diags, diag.Diagnostic{
		Code:     c.rule.Code(),
		Severity: c.severity,
		Message:  message,
		Span:     span,
		Location: c.File.Locate(span.Start),
		Fix:      fix,
	})
}

// LineSpan returns the file span of a lexed line's first physical line.
func (c *Context) LineSpan(l lexer.Line) source.Span {
	end := l.EndOffset
	if nl := strings.IndexByte(l.Raw, '\n'); nl >= 0 {
		end = l.Offset + nl
	}
	return source.Span{Start: l.Offset, End: end}
}

// LineAt returns the lexed line starting at the 1-based physical line n.
func (c *Context) LineAt(n int) (lexer.Line, bool) {
	for _, l := range c.Lines {
		if l.Number == n {
			return l, true
		}
		if l.Number > n {
			break
		}
	}
	return lexer.Line{}, false
}
