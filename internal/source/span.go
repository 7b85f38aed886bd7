// Package source provides byte spans, line/column lookup and source
// locations shared by the parser, the rule engine and the fix resolver.
package source

import "fmt"

// Span is a half-open byte range [Start, End) into a source text.
type Span struct {
	Start int `json:"start" msgpack:"start"`
	End   int `json:"end" msgpack:"end"`
}

// Empty reports whether the span covers no bytes (an insertion point).
func (s Span) Empty() bool {
	return s.Start == s.End
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether offset lies inside the span.
func (s Span) Contains(offset int) bool {
	return s.Start <= offset && offset < s.End
}

// Shift returns the span moved right by n bytes.
func (s Span) Shift(n int) Span {
	return Span{Start: s.Start + n, End: s.End + n}
}

func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// Pos is a 1-based line and column position.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Location points at a place in a named file, together with the text of the
// line it refers to. Any field may be zero when unknown.
type Location struct {
	File       string `json:"file" msgpack:"file"`
	Line       int    `json:"line" msgpack:"line"`
	Column     int    `json:"column" msgpack:"column"`
	SourceLine string `json:"source_line,omitempty" msgpack:"source_line,omitempty"`
}

func (l Location) String() string {
	file := l.File
	if file == "" {
		file = "<input>"
	}
	switch {
	case l.Line == 0:
		return file
	case l.Column == 0:
		return fmt.Sprintf("%s:%d", file, l.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", file, l.Line, l.Column)
	}
}
