// Package output renders the results of parse, purify and lint runs as
// colored text or JSON.
package output

import (
	"io"

	"github.com/donaldgifford/makepure/internal/ast"
	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/parser"
	"github.com/donaldgifford/makepure/internal/purify"
)

// Mode names the pipeline that produced a report.
type Mode string

const (
	ModeParse  Mode = "parse"
	ModePurify Mode = "purify"
	ModeLint   Mode = "lint"
)

// Report is the outcome of one file. Exactly one of Tree, Purify and Lint
// is set on success; ParseErr or Err is set on failure.
type Report struct {
	File string
	Mode Mode

	Tree   *ast.Ast
	Purify *purify.Result
	Lint   *diag.Result

	// Content is the purified text when it goes to stdout.
	Content string
	// Diff is the change a --dry-run would have written.
	Diff string
	// ShowReport prints the purify transformation report.
	ShowReport bool
	// Applied counts lint fixes written to disk.
	Applied int
	// Written is set when the file was rewritten; Backup names the copy.
	Written bool
	Backup  string
	Cached  bool

	ParseErr *parser.ParseError
	Err      error
}

// Printer writes reports in one format.
type Printer struct {
	W      io.Writer
	Format Format
	Color  bool
}

// Print renders reports in order.
func (p *Printer) Print(reports []Report) error {
	if p.Format == FormatJSON {
		return p.json(reports)
	}
	return p.pretty(reports)
}
