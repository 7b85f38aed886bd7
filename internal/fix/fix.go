// Package fix chooses a non-overlapping subset of fixes and applies it to
// source text.
package fix

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/source"
)

var (
	// ErrSpanOutOfRange is returned by Apply for a span outside the text.
	ErrSpanOutOfRange = errors.New("fix span out of range")
	// ErrOverlap is returned by Apply when two fixes touch the same bytes.
	ErrOverlap = errors.New("overlapping fixes")
)

func spansOverlap(a, b source.Span) bool {
	return a.Start < b.End && b.Start < a.End
}

// Resolve returns the fixes to apply. Fixes are considered by priority,
// highest first, keeping input order among equal priorities; a fix is
// accepted when its span overlaps no fix accepted before it. The result
// is in source order.
func Resolve(fixes []diag.Fix) []diag.Fix {
	byPriority := slices.Clone(fixes)
	slices.SortStableFunc(byPriority, func(a, b diag.Fix) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	var accepted []diag.Fix
	for _, f := range byPriority {
		if !slices.ContainsFunc(accepted, func(a diag.Fix) bool { return spansOverlap(a.Span, f.Span) }) {
			accepted = append(accepted, f)
		}
	}
	slices.SortStableFunc(accepted, func(a, b diag.Fix) int {
		return cmp.Or(cmp.Compare(a.Span.Start, b.Span.Start), cmp.Compare(a.Span.End, b.Span.End))
	})
	return accepted
}

// Apply applies non-overlapping fixes to src. Offsets refer to the
// original text. An insertion and a replacement starting at the same
// offset keep the insertion in front.
func Apply(src string, fixes []diag.Fix) (string, error) {
	for i, f := range fixes {
		if f.Span.Start < 0 || f.Span.End < f.Span.Start || f.Span.End > len(src) {
			return "", fmt.Errorf("%w: %v in %d bytes", ErrSpanOutOfRange, f.Span, len(src))
		}
		for _, g := range fixes[:i] {
			if spansOverlap(f.Span, g.Span) {
				return "", fmt.Errorf("%w: %v and %v", ErrOverlap, g.Span, f.Span)
			}
		}
	}

	ordered := slices.Clone(fixes)
	slices.SortStableFunc(ordered, func(a, b diag.Fix) int {
		return cmp.Or(cmp.Compare(a.Span.Start, b.Span.Start), cmp.Compare(a.Span.End, b.Span.End))
	})

	var b strings.Builder
	b.Grow(len(src))
	pos := 0
	for _, f := range ordered {
		b.WriteString(src[pos:f.Span.Start])
		b.WriteString(f.Replacement)
		pos = f.Span.End
	}
	b.WriteString(src[pos:])
	return b.String(), nil
}
