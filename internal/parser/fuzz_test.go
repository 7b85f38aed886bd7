package parser

import (
	"errors"
	"testing"
)

func FuzzParse(f *testing.F) {
	// Seed with representative Makefile constructs.
	seeds := []string{
		"# comment\n",
		"VAR := value\n",
		"VAR:=value\n",
		"VAR ?= value\n",
		"target: prereq\n\t@echo hello\n",
		".PHONY: build test\n",
		"include foo.mk\n",
		"ifeq ($(OS),Linux)\nCC := gcc\nendif\n",
		"ifdef DEBUG\nCFLAGS := -g\nelse ifdef FAST\nCFLAGS := -O3\nelse\nCFLAGS := -O2\nendif\n",
		"build:\n\techo a\nifdef X\n\techo x\nendif\n",
		"define MY_FUNC\n\t@echo hello\nendef\n",
		"SOURCES := \\\n\tmain.go \\\n\tutils.go\n",
		"$(OBJS): %.o: %.c\n\tcc -c $<\n",
		"$(eval $(call tmpl,a,b))\n",
		"ifeq ($(X),1)\n",
		"X = a \\",
		"\n",
		"",
		"log-%:\n\t@grep -h '^$$*' $(MAKEFILE_LIST)\n",
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		// The parser must never panic and must fail only with a ParseError.
		tree, err := ParseString("fuzz.mk", input)
		if err != nil {
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("unexpected error type %T", err)
			}
			if perr.Location == nil {
				t.Fatalf("parse error without location: %v", err)
			}
			return
		}
		_ = tree.Clone()
		_ = ExtractFunctionCalls(input)
	})
}
