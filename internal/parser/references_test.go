package parser

import "testing"

func TestVariableReferences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"plain and automatic", "$(CC) $(CFLAGS) -o $@ $^", []string{"CC", "CFLAGS", "@", "^"}},
		{"braces", "${A}/${B}", []string{"A", "B"}},
		{"substitution reference", "$(SRCS:.c=.o)", []string{"SRCS"}},
		{"nested in function", "$(patsubst %.c,%.o,$(wildcard $(SRC)/*.c))", []string{"SRC"}},
		{"computed name", "$($(ARCH)_FLAGS)", []string{"ARCH"}},
		{"escaped dollar", "$$HOME $(X)", []string{"X"}},
		{"call names its variable", "${A} $(call tmpl,$(B))", []string{"A", "tmpl", "B"}},
		{"directory form", "$(@D)", []string{"@D"}},
		{"no references", "plain text", nil},
		{"unbalanced stops", "$(A) $(B", []string{"A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := VariableReferences(tt.text)
			var got []string
			for _, r := range refs {
				got = append(got, r.Name)
			}
			if !slicesEqual(got, tt.want) {
				t.Errorf("want %q, got %q", tt.want, got)
			}
		})
	}
}

func TestVariableReferenceOffsets(t *testing.T) {
	text := "x $(A) $(sort $(B))"
	refs := VariableReferences(text)
	if len(refs) != 2 {
		t.Fatalf("want 2 references, got %d", len(refs))
	}
	for _, r := range refs {
		got := text[r.Start:r.End]
		if got != "$("+r.Name+")" {
			t.Errorf("%s: offsets cover %q", r.Name, got)
		}
	}
}

func TestAutomaticAndPositional(t *testing.T) {
	for _, name := range []string{"@", "<", "^", "?", "*", "+", "|", "%", "@D", "<F"} {
		if !IsAutomatic(name) {
			t.Errorf("%q should be automatic", name)
		}
	}
	for _, name := range []string{"CC", "D", "@X", ""} {
		if IsAutomatic(name) {
			t.Errorf("%q should not be automatic", name)
		}
	}
	if !IsPositional("1") || !IsPositional("12") || IsPositional("1a") || IsPositional("") {
		t.Error("IsPositional misclassified a name")
	}
}
