package diag

import (
	"encoding/json"
	"testing"

	"github.com/donaldgifford/makepure/internal/source"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in      string
		want    Severity
		wantErr bool
	}{
		{"error", Error, false},
		{"Warning", Warning, false},
		{"warn", Warning, false},
		{" info ", Info, false},
		{"fatal", Info, true},
	}
	for _, tt := range tests {
		got, err := ParseSeverity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSeverity(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSeverity(%q): want %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestNewResult(t *testing.T) {
	r := NewResult([]Diagnostic{
		{Code: "B", Severity: Warning, Span: source.Span{Start: 10, End: 12}},
		{Code: "A", Severity: Error, Span: source.Span{Start: 10, End: 12}},
		{Code: "C", Severity: Info, Span: source.Span{Start: 2, End: 4}},
	})
	var codes string
	for _, d := range r.Diagnostics {
		codes += d.Code
	}
	if codes != "CAB" {
		t.Errorf("order: want CAB, got %s", codes)
	}
	if r.Errors != 1 || r.Warnings != 1 || r.Infos != 1 {
		t.Errorf("counts: got %d/%d/%d", r.Errors, r.Warnings, r.Infos)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		r    Result
		want int
	}{
		{"clean", Result{}, 0},
		{"infos only", Result{Infos: 3}, 0},
		{"warnings", Result{Warnings: 1, Infos: 1}, 1},
		{"errors", Result{Errors: 1, Warnings: 2}, 2},
	}
	for _, tt := range tests {
		if got := tt.r.ExitCode(); got != tt.want {
			t.Errorf("%s: want %d, got %d", tt.name, tt.want, got)
		}
	}
}

func TestFixes(t *testing.T) {
	r := NewResult([]Diagnostic{
		{Code: "A", Fix: &Fix{Replacement: "x"}},
		{Code: "B"},
	})
	if got := r.Fixes(); len(got) != 1 || got[0].Replacement != "x" {
		t.Errorf("Fixes: got %+v", got)
	}
}

func TestSeverityJSON(t *testing.T) {
	b, err := json.Marshal(Diagnostic{Code: "X", Severity: Warning})
	if err != nil {
		t.Fatal(err)
	}
	var d Diagnostic
	if err := json.Unmarshal(b, &d); err != nil {
		t.Fatal(err)
	}
	if d.Severity != Warning {
		t.Errorf("severity did not survive encoding: %s", b)
	}
}
