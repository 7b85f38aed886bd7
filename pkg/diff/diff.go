// Package diff computes line diffs and renders them in unified format.
package diff

import (
	"fmt"
	"slices"
	"strings"
)

// Context is the number of unchanged lines shown around a change.
const Context = 3

// OpKind is the kind of one line operation.
type OpKind int

const (
	Equal OpKind = iota
	Insert
	Delete
)

// Op is one line of an edit script. Old and New index the line in the old
// and new text; the index of the side a line is missing from is -1.
type Op struct {
	Kind OpKind
	Old  int
	New  int
}

// Lines returns a shortest edit script turning a into b, found with the
// Myers algorithm.
func Lines(a, b []string) []Op {
	n, m := len(a), len(b)
	if n+m == 0 {
		return nil
	}

	// v[off+k] is the furthest x reached on diagonal k = x - y.
	off := n + m + 1
	v := make([]int, 2*off+1)
	var trace [][]int
	for d := 0; d <= n+m; d++ {
		trace = append(trace, slices.Clone(v))
		for k := -d; k <= d; k += 2 {
			var x int
			if down(v, off, d, k) {
				x = v[off+k+1]
			} else {
				x = v[off+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[off+k] = x
			if x >= n && y >= m {
				return backtrack(trace, off, n, m)
			}
		}
	}
	return nil
}

// down reports whether the path to diagonal k at step d comes from k+1,
// which is an insertion.
func down(v []int, off, d, k int) bool {
	return k == -d || k != d && v[off+k-1] < v[off+k+1]
}

func backtrack(trace [][]int, off, x, y int) []Op {
	var ops []Op
	for d := len(trace) - 1; d > 0; d-- {
		v := trace[d]
		k := x - y
		prevK := k - 1
		if down(v, off, d, k) {
			prevK = k + 1
		}
		prevX := v[off+prevK]
		prevY := prevX - prevK
		for x > prevX && y > prevY {
			x--
			y--
			ops = append(ops, Op{Kind: Equal, Old: x, New: y})
		}
		if prevK == k+1 {
			y--
			ops = append(ops, Op{Kind: Insert, Old: -1, New: y})
		} else {
			x--
			ops = append(ops, Op{Kind: Delete, Old: x, New: -1})
		}
	}
	for x > 0 && y > 0 {
		x--
		y--
		ops = append(ops, Op{Kind: Equal, Old: x, New: y})
	}
	slices.Reverse(ops)
	return ops
}

// Stat counts changed lines.
type Stat struct {
	Added   int
	Removed int
}

// Stats counts the lines added and removed between two texts.
func Stats(oldText, newText string) Stat {
	var s Stat
	for _, op := range Lines(splitLines(oldText), splitLines(newText)) {
		switch op.Kind {
		case Insert:
			s.Added++
		case Delete:
			s.Removed++
		}
	}
	return s
}

// Unified renders the change from oldText to newText as a unified diff
// with the given file labels. Identical inputs produce an empty string.
func Unified(oldName, newName, oldText, newText string) string {
	if oldText == newText {
		return ""
	}
	a, b := splitLines(oldText), splitLines(newText)
	ops := Lines(a, b)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", oldName, newName)
	for _, h := range hunks(ops) {
		h.write(&sb, ops, a, b)
	}
	return sb.String()
}

// splitLines splits s after each newline. The last line keeps no newline
// when s does not end with one.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// hunk is a range of ops [from, to) together with the line numbers it
// starts at.
type hunk struct {
	from, to           int
	oldStart, newStart int
	oldCount, newCount int
}

// hunks groups changes whose context would touch into single hunks.
func hunks(ops []Op) []hunk {
	var out []hunk
	oldLine, newLine := 0, 0
	// Line numbers before each op.
	before := make([][2]int, len(ops)+1)
	for i, op := range ops {
		before[i] = [2]int{oldLine, newLine}
		if op.Kind != Insert {
			oldLine++
		}
		if op.Kind != Delete {
			newLine++
		}
	}
	before[len(ops)] = [2]int{oldLine, newLine}

	for i := 0; i < len(ops); {
		if ops[i].Kind == Equal {
			i++
			continue
		}
		from := max(i-Context, 0)
		last := i
		for j := i + 1; j < len(ops) && j-last <= 2*Context+1; j++ {
			if ops[j].Kind != Equal {
				last = j
			}
		}
		to := min(last+Context+1, len(ops))

		h := hunk{from: from, to: to, oldStart: before[from][0], newStart: before[from][1]}
		h.oldCount = before[to][0] - h.oldStart
		h.newCount = before[to][1] - h.newStart
		out = append(out, h)
		i = to
	}
	return out
}

func (h hunk) write(sb *strings.Builder, ops []Op, a, b []string) {
	fmt.Fprintf(sb, "@@ -%s +%s @@\n", lineRange(h.oldStart, h.oldCount), lineRange(h.newStart, h.newCount))
	for _, op := range ops[h.from:h.to] {
		switch op.Kind {
		case Equal:
			writeLine(sb, ' ', a[op.Old])
		case Delete:
			writeLine(sb, '-', a[op.Old])
		case Insert:
			writeLine(sb, '+', b[op.New])
		}
	}
}

// lineRange formats a hunk range. An empty range names the line before it.
func lineRange(start, count int) string {
	if count == 0 {
		return fmt.Sprintf("%d,0", start)
	}
	if count == 1 {
		return fmt.Sprint(start + 1)
	}
	return fmt.Sprintf("%d,%d", start+1, count)
}

func writeLine(sb *strings.Builder, mark byte, line string) {
	sb.WriteByte(mark)
	sb.WriteString(line)
	if !strings.HasSuffix(line, "\n") {
		sb.WriteString("\n\\ No newline at end of file\n")
	}
}
