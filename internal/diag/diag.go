// Package diag defines lint diagnostics, their fixes and the per-file lint
// result.
package diag

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/donaldgifford/makepure/internal/source"
)

// Severity ranks a diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ParseSeverity maps "error", "warning" or "info" to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return Error, nil
	case "warning", "warn":
		return Warning, nil
	case "info":
		return Info, nil
	}
	return Info, fmt.Errorf("unknown severity %q", s)
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Priority decides which of two overlapping fixes is applied. A fix that
// removes code outranks a fix that only rewrites part of it, which in turn
// outranks quoting.
type Priority int

const (
	PriorityQuote   Priority = 10
	PriorityFlag    Priority = 20
	PriorityRewrite Priority = 30
	PriorityRemove  Priority = 40
)

// Fix replaces the bytes of Span with Replacement. An empty span inserts.
type Fix struct {
	Span        source.Span `json:"span" msgpack:"span"`
	Replacement string      `json:"replacement" msgpack:"replacement"`
	Priority    Priority    `json:"priority" msgpack:"priority"`
	Description string      `json:"description,omitempty" msgpack:"description,omitempty"`
}

// Diagnostic is one lint finding.
type Diagnostic struct {
	Code     string          `json:"code" msgpack:"code"`
	Severity Severity        `json:"severity" msgpack:"severity"`
	Message  string          `json:"message" msgpack:"message"`
	Span     source.Span     `json:"span" msgpack:"span"`
	Location source.Location `json:"location" msgpack:"location"`
	Fix      *Fix            `json:"fix,omitempty" msgpack:"fix,omitempty"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s %s: %s", d.Location, d.Severity, d.Code, d.Message)
}

// Result is the outcome of linting one file.
type Result struct {
	Diagnostics []Diagnostic `json:"diagnostics" msgpack:"diagnostics"`
	Errors      int          `json:"errors" msgpack:"errors"`
	Warnings    int          `json:"warnings" msgpack:"warnings"`
	Infos       int          `json:"infos" msgpack:"infos"`
}

// NewResult sorts diagnostics by position and code and counts them by
// severity.
func NewResult(ds []Diagnostic) Result {
	ds = slices.Clone(ds)
	slices.SortStableFunc(ds, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Span.Start, b.Span.Start),
			cmp.Compare(a.Span.End, b.Span.End),
			strings.Compare(a.Code, b.Code),
		)
	})
	r := Result{Diagnostics: ds}
	for _, d := range ds {
		switch d.Severity {
		case Error:
			r.Errors++
		case Warning:
			r.Warnings++
		default:
			r.Infos++
		}
	}
	return r
}

// Fixes returns the fixes attached to the diagnostics.
func (r Result) Fixes() []Fix {
	var out []Fix
	for _, d := range r.Diagnostics {
		if d.Fix != nil {
			out = append(out, *d.Fix)
		}
	}
	return out
}

// ExitCode is 2 when there are errors, 1 when there are warnings and 0
// otherwise.
func (r Result) ExitCode() int {
	switch {
	case r.Errors > 0:
		return 2
	case r.Warnings > 0:
		return 1
	}
	return 0
}
