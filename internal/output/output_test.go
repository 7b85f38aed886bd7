package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/parser"
	"github.com/donaldgifford/makepure/internal/purify"
	"github.com/donaldgifford/makepure/internal/source"
)

func lintReport() Report {
	res := diag.NewResult([]diag.Diagnostic{{
		Code:     "DET003",
		Severity: diag.Warning,
		Message:  "$$ expands to the process id",
		Span:     source.Span{Start: 11, End: 13},
		Location: source.Location{File: "Makefile", Line: 1, Column: 12, SourceLine: "TMP=/tmp/x.$$"},
		Fix:      &diag.Fix{Description: "remove the process id"},
	}})
	return Report{File: "Makefile", Mode: ModeLint, Lint: &res}
}

func render(t *testing.T, format Format, reports ...Report) string {
	t.Helper()
	var buf bytes.Buffer
	p := &Printer{W: &buf, Format: format}
	if err := p.Print(reports); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestPrettyDiagnostic(t *testing.T) {
	got := render(t, FormatPretty, lintReport())
	want := "Makefile:1:12: warning[DET003] $$ expands to the process id\n" +
		"1 | TMP=/tmp/x.$$\n" +
		"  |            ^^\n" +
		"  = fix: remove the process id\n" +
		"Makefile: 1 problem (0 errors, 1 warning, 0 infos)\n"
	if got != want {
		t.Errorf("want:\n%s\ngot:\n%s", want, got)
	}
}

func TestPrettyColorIsOptIn(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{W: &buf, Format: FormatPretty, Color: true}
	if err := p.Print([]Report{lintReport()}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Error("colored output has no escape sequences")
	}
	if plain := render(t, FormatPretty, lintReport()); strings.Contains(plain, "\x1b[") {
		t.Error("plain output has escape sequences")
	}
}

func TestCaret(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		column, n int
		wantPad   string
		wantMark  string
	}{
		{"start", "abc", 1, 2, "", "^^"},
		{"tab kept", "\tmkdir x", 2, 5, "\t", "^^^^^"},
		{"wide runes", "日本 $$", 8, 2, "     ", "^^"},
		{"clipped at line end", "ab", 2, 10, " ", "^"},
		{"insertion", "ab", 3, 0, "  ", "^"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pad, mark := caret(tt.line, tt.column, tt.n)
			if pad != tt.wantPad || mark != tt.wantMark {
				t.Errorf("caret: want (%q, %q), got (%q, %q)", tt.wantPad, tt.wantMark, pad, mark)
			}
		})
	}
}

func TestPrettyParseError(t *testing.T) {
	_, err := parser.ParseString("Makefile", "ifeq ($(X),1)\nA = 1\n")
	var perr *parser.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("want a parse error, got %v", err)
	}
	got := render(t, FormatPretty, Report{File: "Makefile", Mode: ModeParse, ParseErr: perr})
	for _, want := range []string{"error[", "= note:", "= help:"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestPrettyOutline(t *testing.T) {
	tree, err := parser.ParseString("Makefile", "CC := gcc\nifdef DEBUG\nCFLAGS += -g\nelse\nCFLAGS += -O2\nendif\nall: main.o\n\t$(CC) -o all main.o\n")
	if err != nil {
		t.Fatal(err)
	}
	got := render(t, FormatPretty, Report{File: "Makefile", Mode: ModeParse, Tree: tree})
	for _, want := range []string{
		"3 item(s)",
		"variable CC := gcc",
		"ifdef DEBUG",
		"    3       variable CFLAGS += -g",
		"else",
		"target all: main.o (1 recipe line(s))",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestPrettyPurify(t *testing.T) {
	tree, err := parser.ParseString("Makefile", "SRCS := $(wildcard *.c)\n")
	if err != nil {
		t.Fatal(err)
	}
	res := purify.Purify(tree)
	got := render(t, FormatPretty, Report{
		File: "Makefile", Mode: ModePurify, Purify: &res,
		Content: "SRCS := $(sort $(wildcard *.c))\n", ShowReport: true,
	})
	for _, want := range []string{"SRCS := $(sort $(wildcard *.c))\n", "Purify Makefile\n", "Applied:"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestJSON(t *testing.T) {
	tree, err := parser.ParseString("Makefile", "SRCS := $(wildcard *.c)\n")
	if err != nil {
		t.Fatal(err)
	}
	res := purify.Purify(tree)
	out := render(t, FormatJSON,
		lintReport(),
		Report{File: "Makefile", Mode: ModePurify, Purify: &res},
		Report{File: "gone.mk", Mode: ModeLint, Err: errors.New("no such file")},
	)

	var got []struct {
		File  string `json:"file"`
		Mode  string `json:"mode"`
		Error string `json:"error"`
		Lint  *struct {
			Warnings    int `json:"warnings"`
			Diagnostics []struct {
				Code     string `json:"code"`
				Severity string `json:"severity"`
				Location struct {
					Line   int `json:"line"`
					Column int `json:"column"`
				} `json:"location"`
			} `json:"diagnostics"`
		} `json:"lint"`
		Purify *struct {
			Applied         int `json:"applied"`
			Transformations []struct {
				Kind  string `json:"kind"`
				Stage string `json:"stage"`
				Safe  bool   `json:"safe"`
			} `json:"transformations"`
		} `json:"purify"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 reports, got %d", len(got))
	}

	lint := got[0].Lint
	if lint == nil || lint.Warnings != 1 || lint.Diagnostics[0].Severity != "warning" || lint.Diagnostics[0].Location.Column != 12 {
		t.Errorf("lint report: %+v", lint)
	}
	pur := got[1].Purify
	if pur == nil || pur.Applied != 1 || pur.Transformations[0].Kind != "wrap-with-sort" || !pur.Transformations[0].Safe {
		t.Errorf("purify report: %+v", pur)
	}
	if got[2].Error != "no such file" {
		t.Errorf("error report: %+v", got[2])
	}
}

func TestSummary(t *testing.T) {
	res := diag.NewResult([]diag.Diagnostic{
		{Severity: diag.Error}, {Severity: diag.Warning}, {Severity: diag.Warning},
	})
	want := "3 problems (1 error, 2 warnings, 0 infos)"
	if got := Summary(res); got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}

func TestFlagValues(t *testing.T) {
	var f Format
	if err := f.Set("json"); err != nil || f != FormatJSON {
		t.Errorf("Format.Set(json): %v, %q", err, f)
	}
	if err := f.Set("sarif"); err == nil {
		t.Error("Format.Set(sarif): want error")
	}

	var m ColorMode
	for in, want := range map[string]ColorMode{"on": ColorAlways, "off": ColorNever, "auto": ColorAuto, "never": ColorNever} {
		if err := m.Set(in); err != nil || m != want {
			t.Errorf("ColorMode.Set(%q): got %q, %v", in, m, err)
		}
	}
	if err := m.Set("sometimes"); err == nil {
		t.Error("ColorMode.Set(sometimes): want error")
	}
	if ColorAlways.Enabled(nil) != true || ColorNever.Enabled(nil) != false || ColorAuto.Enabled(nil) != false {
		t.Error("Enabled: unexpected result")
	}
	if ColorAuto.Enabled(&bytes.Buffer{}) {
		t.Error("Enabled: auto mode colored a buffer")
	}
	if !ColorAlways.Enabled(&bytes.Buffer{}) {
		t.Error("Enabled: always mode did not color a buffer")
	}
}
