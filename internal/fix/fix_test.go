package fix

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/source"
)

func span(start, end int) source.Span { return source.Span{Start: start, End: end} }

func TestResolvePrefersHigherPriority(t *testing.T) {
	// RELEASE=$(echo $TIMESTAMP)
	quote := diag.Fix{Span: span(15, 25), Replacement: `"$TIMESTAMP"`, Priority: diag.PriorityQuote}
	unwrap := diag.Fix{Span: span(8, 26), Replacement: "$TIMESTAMP", Priority: diag.PriorityRemove}

	got := Resolve([]diag.Fix{quote, unwrap})
	if len(got) != 1 || got[0] != unwrap {
		t.Fatalf("want only the removal fix, got %+v", got)
	}

	out, err := Apply("RELEASE=$(echo $TIMESTAMP)", got)
	if err != nil {
		t.Fatal(err)
	}
	if out != "RELEASE=$TIMESTAMP" {
		t.Errorf("got %q", out)
	}
}

func TestResolveKeepsInputOrderOnTies(t *testing.T) {
	a := diag.Fix{Span: span(0, 4), Replacement: "a", Priority: diag.PriorityFlag}
	b := diag.Fix{Span: span(2, 6), Replacement: "b", Priority: diag.PriorityFlag}
	got := Resolve([]diag.Fix{a, b})
	if len(got) != 1 || got[0].Replacement != "a" {
		t.Errorf("want the first of two equal fixes, got %+v", got)
	}
}

func TestResolveReturnsSourceOrder(t *testing.T) {
	got := Resolve([]diag.Fix{
		{Span: span(10, 12), Priority: diag.PriorityQuote},
		{Span: span(0, 2), Priority: diag.PriorityRemove},
		{Span: span(5, 6), Priority: diag.PriorityFlag},
	})
	for i := 1; i < len(got); i++ {
		if got[i-1].Span.Start > got[i].Span.Start {
			t.Fatalf("not in source order: %+v", got)
		}
	}
	if len(got) != 3 {
		t.Errorf("want all three disjoint fixes, got %d", len(got))
	}
}

func TestSpansOverlap(t *testing.T) {
	tests := []struct {
		a, b source.Span
		want bool
	}{
		{span(0, 4), span(2, 6), true},
		{span(0, 4), span(4, 6), false},
		{span(3, 3), span(0, 6), true},
		{span(3, 3), span(3, 6), false},
		{span(6, 6), span(3, 6), false},
		{span(3, 3), span(3, 3), false},
	}
	for _, tt := range tests {
		if got := spansOverlap(tt.a, tt.b); got != tt.want {
			t.Errorf("spansOverlap(%v, %v): want %v, got %v", tt.a, tt.b, tt.want, got)
		}
		if got := spansOverlap(tt.b, tt.a); got != tt.want {
			t.Errorf("spansOverlap(%v, %v): not symmetric", tt.b, tt.a)
		}
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		fixes []diag.Fix
		want  string
	}{
		{"none", "rm $x", nil, "rm $x"},
		{
			name:  "quote",
			src:   "rm $x",
			fixes: []diag.Fix{{Span: span(3, 5), Replacement: `"$x"`}},
			want:  `rm "$x"`,
		},
		{
			name:  "insertion",
			src:   "mkdir build",
			fixes: []diag.Fix{{Span: span(5, 5), Replacement: " -p"}},
			want:  "mkdir -p build",
		},
		{
			name: "insertion before replacement at the same offset",
			src:  "cd dir",
			fixes: []diag.Fix{
				{Span: span(3, 6), Replacement: `"dir"`},
				{Span: span(3, 3), Replacement: "-- "},
			},
			want: `cd -- "dir"`,
		},
		{
			name: "several",
			src:  "a b c",
			fixes: []diag.Fix{
				{Span: span(4, 5), Replacement: "C"},
				{Span: span(0, 1), Replacement: "AA"},
			},
			want: "AA b C",
		},
		{
			name:  "append at end",
			src:   "x",
			fixes: []diag.Fix{{Span: span(1, 1), Replacement: "y"}},
			want:  "xy",
		},
	}
	for _, tt := range tests {
		got, err := Apply(tt.src, tt.fixes)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: want %q, got %q", tt.name, tt.want, got)
		}
	}
}

func TestApplyErrors(t *testing.T) {
	if _, err := Apply("abc", []diag.Fix{{Span: span(2, 9)}}); !errors.Is(err, ErrSpanOutOfRange) {
		t.Errorf("want ErrSpanOutOfRange, got %v", err)
	}
	if _, err := Apply("abc", []diag.Fix{{Span: span(2, 1)}}); !errors.Is(err, ErrSpanOutOfRange) {
		t.Errorf("inverted span: want ErrSpanOutOfRange, got %v", err)
	}
	if _, err := Apply("abcdef", []diag.Fix{{Span: span(0, 3)}, {Span: span(2, 4)}}); !errors.Is(err, ErrOverlap) {
		t.Errorf("want ErrOverlap, got %v", err)
	}
}

// TestResolvedFixesNeverOverlap feeds random fix sets through Resolve and
// checks the accepted set is pairwise disjoint and always applies cleanly.
func TestResolvedFixesNeverOverlap(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	const size = 64
	src := make([]byte, size)
	for i := range src {
		src[i] = byte('a' + i%26)
	}
	priorities := []diag.Priority{diag.PriorityQuote, diag.PriorityFlag, diag.PriorityRewrite, diag.PriorityRemove}

	for range 500 {
		fixes := make([]diag.Fix, r.IntN(12))
		for i := range fixes {
			start := r.IntN(size + 1)
			end := start + r.IntN(size-start+1)
			fixes[i] = diag.Fix{
				Span:        span(start, end),
				Replacement: "X",
				Priority:    priorities[r.IntN(len(priorities))],
			}
		}
		got := Resolve(fixes)
		for i := range got {
			for j := range i {
				if spansOverlap(got[i].Span, got[j].Span) {
					t.Fatalf("accepted overlapping fixes %v and %v", got[j].Span, got[i].Span)
				}
			}
		}
		if len(fixes) > 0 && len(got) == 0 {
			t.Fatalf("no fix accepted from %d candidates", len(fixes))
		}
		if _, err := Apply(string(src), got); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}
}
