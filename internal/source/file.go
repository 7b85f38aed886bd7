package source

import (
	"path/filepath"
	"sort"
	"strings"
)

// Kind tells the rule engine which dialect a file is written in.
type Kind int

const (
	// KindMakefile is GNU make syntax.
	KindMakefile Kind = iota
	// KindShell is a POSIX/bash script.
	KindShell
)

func (k Kind) String() string {
	switch k {
	case KindMakefile:
		return "makefile"
	case KindShell:
		return "shell"
	}
	return "unknown"
}

// DetectKind guesses the dialect from a file name. Anything that does not
// look like a Makefile is treated as a shell script.
func DetectKind(path string) Kind {
	base := filepath.Base(path)
	switch {
	case base == "Makefile", base == "makefile", base == "GNUmakefile":
		return KindMakefile
	case strings.HasSuffix(base, ".mk"), strings.HasSuffix(base, ".mak"):
		return KindMakefile
	case strings.HasPrefix(base, "Makefile."):
		return KindMakefile
	}
	return KindShell
}

// File is a named source text with a line index for offset lookups.
type File struct {
	Name    string
	Content string

	lineStarts []int
}

// NewFile indexes content for position lookups.
func NewFile(name, content string) *File {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' && i+1 < len(content) {
			starts = append(starts, i+1)
		}
	}
	return &File{Name: name, Content: content, lineStarts: starts}
}

// LineCount returns the number of lines in the file.
func (f *File) LineCount() int {
	if f.Content == "" {
		return 0
	}
	return len(f.lineStarts)
}

// Position converts a byte offset into a 1-based line and column.
func (f *File) Position(offset int) Pos {
	if offset < 0 {
		offset = 0
	}
	if offset > len(f.Content) {
		offset = len(f.Content)
	}
	idx := sort.Search(len(f.lineStarts), func(i int) bool {
		return f.lineStarts[i] > offset
	}) - 1
	if idx < 0 {
		idx = 0
	}
	return Pos{Line: idx + 1, Column: offset - f.lineStarts[idx] + 1}
}

// LineStart returns the byte offset of the first byte of a 1-based line.
func (f *File) LineStart(line int) int {
	if line < 1 || line > len(f.lineStarts) {
		return len(f.Content)
	}
	return f.lineStarts[line-1]
}

// Line returns the text of a 1-based line without its newline.
func (f *File) Line(line int) string {
	if line < 1 || line > len(f.lineStarts) {
		return ""
	}
	start := f.lineStarts[line-1]
	end := len(f.Content)
	if line < len(f.lineStarts) {
		end = f.lineStarts[line] - 1
	}
	text := strings.TrimSuffix(f.Content[start:end], "\n")
	return strings.TrimSuffix(text, "\r")
}

// Locate builds a Location for a byte offset.
func (f *File) Locate(offset int) Location {
	pos := f.Position(offset)
	return Location{
		File:       f.Name,
		Line:       pos.Line,
		Column:     pos.Column,
		SourceLine: f.Line(pos.Line),
	}
}
