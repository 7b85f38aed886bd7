package analyzer

import (
	"github.com/donaldgifford/makepure/internal/parser"
	"github.com/donaldgifford/makepure/internal/shell"
)

// visitCalls calls fn for every function call in text, outer calls first,
// with offsets relative to text. sorted is true for calls nested in a
// $(sort ...). Returning false skips the call's arguments.
func visitCalls(text string, fn func(c parser.Call, sorted bool) bool) {
	var walk func(text string, base int, sorted bool)
	walk = func(text string, base int, sorted bool) {
		for _, c := range parser.ExtractFunctionCalls(text) {
			c = shiftCall(c, base)
			if !fn(c, sorted) {
				continue
			}
			for i, arg := range c.Args {
				walk(arg, c.ArgStart[i], sorted || c.Name == "sort")
			}
		}
	}
	walk(text, 0, false)
}

func shiftCall(c parser.Call, base int) parser.Call {
	c.Start += base
	c.End += base
	starts := make([]int, len(c.ArgStart))
	for i, s := range c.ArgStart {
		starts[i] = s + base
	}
	c.ArgStart = starts
	return c
}

// UnsortedCalls returns the calls in text that match and are not inside a
// $(sort ...). Offsets are relative to text; calls nested in a returned
// call are not reported separately.
func UnsortedCalls(text string, match func(parser.Call) bool) []parser.Call {
	var out []parser.Call
	visitCalls(text, func(c parser.Call, sorted bool) bool {
		if !sorted && match(c) {
			out = append(out, c)
			return false
		}
		return true
	})
	return out
}

// IsWildcard matches $(wildcard ...).
func IsWildcard(c parser.Call) bool {
	return c.Name == "wildcard"
}

// IsFind matches a $(shell ...) that runs find without piping the result
// through sort.
func IsFind(c parser.Call) bool {
	if c.Name != "shell" || len(c.Args) == 0 {
		return false
	}
	found := false
	for _, cmd := range shell.Parse(c.Args[0], shell.Make) {
		switch cmd.Name() {
		case "find":
			found = true
		case "sort":
			return false
		}
	}
	return found
}

// shellCommands returns the commands run by every $(shell ...) in text.
func shellCommands(text string) []shell.Command {
	var out []shell.Command
	visitCalls(text, func(c parser.Call, _ bool) bool {
		if c.Name == "shell" && len(c.Args) > 0 {
			out = append(out, shell.Parse(c.Args[0], shell.Make)...)
		}
		return true
	})
	return out
}

// hasCall reports whether text calls any of the named functions.
func hasCall(text string, names ...string) bool {
	found := false
	visitCalls(text, func(c parser.Call, _ bool) bool {
		for _, n := range names {
			if c.Name == n {
				found = true
			}
		}
		return !found
	})
	return found
}
