// Package ast defines the Makefile syntax tree produced by the parser.
//
// Item is a closed sum type: only the types in this package implement it.
// Conditionals nest to any depth by holding ordered sequences of Items, so
// consumers recurse over a tree instead of tracking depth themselves. The
// tree owns all of its nodes; there are no back-references.
package ast

import (
	"fmt"
	"strings"
)

// Span is an inclusive range of 1-based source lines. Items synthesized by
// purification carry the zero Span.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// IsZero reports whether the span is unset.
func (s Span) IsZero() bool {
	return s.Start == 0 && s.End == 0
}

func (s Span) String() string {
	if s.Start == s.End {
		return fmt.Sprintf("%d", s.Start)
	}
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// Item is a top-level or nested Makefile construct.
type Item interface {
	// Range returns the source lines the item was parsed from.
	Range() Span
	// Clone returns a deep copy of the item.
	Clone() Item

	item()
}

// Ast is an ordered sequence of top-level items.
type Ast struct {
	Items []Item
}

// Clone returns a deep copy of the tree.
func (a *Ast) Clone() *Ast {
	if a == nil {
		return nil
	}
	return &Ast{Items: CloneItems(a.Items)}
}

// CloneItems deep-copies a sequence of items. A nil sequence stays nil.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// Walk visits items in source order, descending into both branches of
// conditionals. Returning false from fn skips the children of that item.
func Walk(items []Item, fn func(Item) bool) {
	for _, it := range items {
		if !fn(it) {
			continue
		}
		if c, ok := it.(*Conditional); ok {
			Walk(c.Then, fn)
			Walk(c.Else, fn)
		}
	}
}

// Targets returns every explicit target in the tree, in source order.
func (a *Ast) Targets() []*Target {
	var out []*Target
	Walk(a.Items, func(it Item) bool {
		if t, ok := it.(*Target); ok {
			out = append(out, t)
		}
		return true
	})
	return out
}

// Variables returns every variable assignment in the tree, in source order.
func (a *Ast) Variables() []*Variable {
	var out []*Variable
	Walk(a.Items, func(it Item) bool {
		if v, ok := it.(*Variable); ok {
			out = append(out, v)
		}
		return true
	})
	return out
}

// HasSpecialTarget reports whether a special target such as .NOTPARALLEL
// is declared anywhere in the tree.
func (a *Ast) HasSpecialTarget(name string) bool {
	for _, t := range a.Targets() {
		for _, n := range t.Names() {
			if n == name {
				return true
			}
		}
	}
	return false
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func joinWords(words []string) string {
	return strings.Join(words, " ")
}
