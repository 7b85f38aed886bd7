package analyzer

import (
	"fmt"
	"strings"

	"github.com/donaldgifford/makepure/internal/shell"
	"github.com/donaldgifford/makepure/internal/source"
)

// determinism flags values that differ between runs on the same input:
// unsorted globs, clock readings, random numbers and process ids.
func determinism(m *model) []Finding {
	var out []Finding
	for _, s := range m.sites() {
		for _, c := range UnsortedCalls(s.text, IsWildcard) {
			out = append(out, s.finding(NonDeterminism, RuleUnsortedWildcard,
				fmt.Sprintf("%s is not wrapped in $(sort ...); glob order depends on the file system", s.text[c.Start:c.End]), true))
		}
		for _, c := range UnsortedCalls(s.text, IsFind) {
			out = append(out, s.finding(NonDeterminism, RuleUnsortedFind,
				fmt.Sprintf("%s lists files in directory order; wrap it in $(sort ...)", s.text[c.Start:c.End]), true))
		}

		stamps := shellCommands(s.text)
		if s.place == InRecipe {
			stamps = append(stamps, shell.Parse(s.text, shell.Make)...)
		}
		for _, cmd := range stamps {
			if ReadsClock(cmd) {
				out = append(out, s.finding(NonDeterminism, RuleShellTimestamp,
					"date reads the current time; use SOURCE_DATE_EPOCH or a fixed version string", false))
				break
			}
		}

		if refs := shell.RandomRefs(s.text, shell.Make); len(refs) > 0 {
			out = append(out, s.finding(NonDeterminism, RuleRandomValue,
				"$RANDOM yields a different value on every run; derive the value from the input instead", false))
		}
		for _, cmd := range stamps {
			if cmd.Name() == "uuidgen" {
				out = append(out, s.finding(NonDeterminism, RuleRandomValue,
					"uuidgen yields a different value on every run; derive the value from the input instead", false))
				break
			}
		}

		if refs := shell.ProcessIDRefs(s.text, shell.Make); len(refs) > 0 {
			tokens := make([]string, len(refs))
			for i, r := range refs {
				tokens[i] = s.text[r.Start:r.End]
			}
			out = append(out, s.finding(NonDeterminism, RuleProcessID,
				fmt.Sprintf("%s expands to the process id; names built from it change on every run", strings.Join(tokens, ", ")),
				s.place != InRecipe && namesOnly(s.text, refs)))
		}
	}
	return out
}

// namesOnly reports whether every process id in text is appended to a
// name with a separator, so that removing it leaves a usable name.
func namesOnly(text string, refs []source.Span) bool {
	for _, r := range refs {
		if r.Start == 0 || strings.IndexByte(".-_", text[r.Start-1]) < 0 {
			return false
		}
	}
	return true
}

// ReadsClock reports whether cmd prints the current date rather than
// formatting a fixed one.
func ReadsClock(cmd shell.Command) bool {
	if cmd.Name() != "date" {
		return false
	}
	if cmd.HasFlag('d', "--date") || cmd.HasFlag('r', "--reference") || cmd.HasFlag(0, "--file") {
		return false
	}
	for _, a := range cmd.Args() {
		if strings.HasPrefix(a.Value, "@") {
			return false
		}
	}
	return true
}
