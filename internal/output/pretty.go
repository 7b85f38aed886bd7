package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/parser"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	appliedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	adviceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// palette holds the colors of one printer. Each color is switched on or
// off explicitly so the global color.NoColor setting does not leak in.
type palette struct {
	err, warn, info, code, gutter, caret, fix *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		err:    mk(color.FgRed, color.Bold),
		warn:   mk(color.FgYellow, color.Bold),
		info:   mk(color.FgCyan, color.Bold),
		code:   mk(color.Bold),
		gutter: mk(color.FgBlue),
		caret:  mk(color.FgMagenta, color.Bold),
		fix:    mk(color.FgGreen),
	}
}

func (c palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.Error:
		return c.err
	case diag.Warning:
		return c.warn
	}
	return c.info
}

func (p *Printer) style(s lipgloss.Style, text string) string {
	if !p.Color {
		return text
	}
	return s.Render(text)
}

func (p *Printer) pretty(reports []Report) error {
	pal := newPalette(p.Color)
	var b strings.Builder
	for _, r := range reports {
		switch {
		case r.Err != nil:
			fmt.Fprintf(&b, "%s %s: %v\n", pal.err.Sprint("error:"), r.File, r.Err)
		case r.ParseErr != nil:
			writeParseError(&b, pal, r.ParseErr)
		case r.Tree != nil:
			b.WriteString(Outline(r.Tree))
		case r.Purify != nil:
			p.writePurify(&b, r)
		case r.Lint != nil:
			writeLint(&b, pal, r)
		}
	}
	_, err := io.WriteString(p.W, b.String())
	return err
}

func writeParseError(b *strings.Builder, pal palette, e *parser.ParseError) {
	text := e.Format()
	head, rest, _ := strings.Cut(text, "\n")
	b.WriteString(pal.err.Sprint(head))
	b.WriteByte('\n')
	b.WriteString(rest)
}

func (p *Printer) writePurify(b *strings.Builder, r Report) {
	res := r.Purify
	switch {
	case r.Diff != "":
		b.WriteString(r.Diff)
	case r.Content != "":
		b.WriteString(r.Content)
	}

	if r.ShowReport {
		b.WriteString(p.style(titleStyle, "Purify "+r.File))
		b.WriteByte('\n')
		for _, line := range strings.Split(strings.TrimRight(res.Report, "\n"), "\n") {
			switch {
			case strings.HasPrefix(line, "Applied:"):
				line = p.style(appliedStyle, line)
			case strings.HasPrefix(line, "Recommended:"):
				line = p.style(adviceStyle, line)
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	if r.Written {
		fmt.Fprintf(b, "%s: %d applied, %d recommended; backup %s\n",
			r.File, len(res.Applied()), len(res.Recommended()), r.Backup)
	}
}

func writeLint(b *strings.Builder, pal palette, r Report) {
	b.WriteString(r.Diff)
	b.WriteString(r.Content)
	res := r.Lint
	for _, d := range res.Diagnostics {
		writeDiagnostic(b, pal, d)
	}
	if r.Written {
		fmt.Fprintf(b, "%s: applied %d fix(es); backup %s\n", r.File, r.Applied, r.Backup)
	}
	if len(res.Diagnostics) > 0 {
		fmt.Fprintf(b, "%s: %s\n", r.File, Summary(*res))
	}
}

func writeDiagnostic(b *strings.Builder, pal palette, d diag.Diagnostic) {
	loc := d.Location
	fmt.Fprintf(b, "%s: %s %s\n", loc, pal.severity(d.Severity).Sprintf("%s[%s]", d.Severity, d.Code), d.Message)
	if loc.SourceLine != "" {
		num := fmt.Sprint(loc.Line)
		gutter := strings.Repeat(" ", len(num))
		pad, mark := caret(loc.SourceLine, loc.Column, d.Span.Len())
		fmt.Fprintf(b, "%s %s\n", pal.gutter.Sprint(num+" |"), loc.SourceLine)
		fmt.Fprintf(b, "%s %s%s\n", pal.gutter.Sprint(gutter+" |"), pad, pal.caret.Sprint(mark))
	}
	if d.Fix != nil && d.Fix.Description != "" {
		fmt.Fprintf(b, "  %s %s\n", pal.fix.Sprint("= fix:"), d.Fix.Description)
	}
}

// caret returns the padding and the ^ marks that underline n bytes from
// the 1-based column of line, measured in display cells. Tabs are kept in
// the padding so the terminal expands them the same way.
func caret(line string, column, n int) (pad, mark string) {
	start := min(max(column-1, 0), len(line))
	end := min(start+n, len(line))

	var b strings.Builder
	for _, r := range line[:start] {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	width := max(runewidth.StringWidth(line[start:end]), 1)
	return b.String(), strings.Repeat("^", width)
}

// Summary counts the diagnostics of a result by severity.
func Summary(r diag.Result) string {
	total := len(r.Diagnostics)
	return fmt.Sprintf("%d %s (%d %s, %d %s, %d %s)",
		total, plural(total, "problem"),
		r.Errors, plural(r.Errors, "error"),
		r.Warnings, plural(r.Warnings, "warning"),
		r.Infos, plural(r.Infos, "info"))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
