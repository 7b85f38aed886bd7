package checks

import (
	"strings"

	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/linter"
	"github.com/donaldgifford/makepure/internal/source"
)

// TrailingWhitespace reports spaces and tabs at the end of a line. Make
// keeps them in variable values, and after a backslash they turn the
// continuation into a literal backslash.
type TrailingWhitespace struct{}

func (TrailingWhitespace) Code() string                  { return "MAKE005" }
func (TrailingWhitespace) Severity() diag.Severity       { return diag.Info }
func (TrailingWhitespace) Applies(kind source.Kind) bool { return makefileOnly(kind) }

func (TrailingWhitespace) Check(ctx *linter.Context) {
	text := ctx.File.Content
	for start := 0; start < len(text); {
		end := strings.IndexByte(text[start:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += start
		}
		line := strings.TrimSuffix(text[start:end], "\r")
		trimmed := strings.TrimRight(line, " \t")
		if len(trimmed) < len(line) {
			span := source.Span{Start: start + len(trimmed), End: start + len(line)}
			msg := "trailing whitespace"
			if strings.HasSuffix(trimmed, `\`) {
				msg = "whitespace after the backslash ends the line; it no longer continues"
			}
			ctx.Report(span, msg, &diag.Fix{
				Span:        span,
				Priority:    diag.PriorityRemove,
				Description: "remove trailing whitespace",
			})
		}
		start = end + 1
	}
}

// FinalNewline reports a file that does not end with exactly one newline.
type FinalNewline struct{}

func (FinalNewline) Code() string                  { return "MAKE006" }
func (FinalNewline) Severity() diag.Severity       { return diag.Info }
func (FinalNewline) Applies(kind source.Kind) bool { return makefileOnly(kind) }

func (FinalNewline) Check(ctx *linter.Context) {
	text := ctx.File.Content
	if text == "" {
		return
	}
	if !strings.HasSuffix(text, "\n") {
		end := len(text)
		ctx.Report(source.Span{Start: end, End: end}, "missing newline at end of file",
			insert(end, "\n", diag.PriorityFlag, "add final newline"))
		return
	}

	body := strings.TrimRight(text, "\r\n")
	if body == "" {
		return
	}
	// The first line break after the last line stays.
	keep := len(body) + 1
	if text[len(body)] == '\r' {
		keep++
	}
	if keep < len(text) {
		span := source.Span{Start: keep, End: len(text)}
		ctx.Report(span, "blank lines at end of file", &diag.Fix{
			Span:        span,
			Priority:    diag.PriorityRemove,
			Description: "remove trailing blank lines",
		})
	}
}
