package analyzer

import (
	"fmt"
	"strings"

	"github.com/donaldgifford/makepure/internal/shell"
)

// GNU-only options of common tools, by command.
var gnuOptions = map[string][]string{
	"cp":       {"--parents", "-t", "--target-directory", "--no-clobber"},
	"date":     {"-d", "--date"},
	"grep":     {"-P", "--perl-regexp"},
	"readlink": {"-f", "--canonicalize"},
	"sed":      {"-r", "--regexp-extended"},
	"xargs":    {"-r", "--no-run-if-empty"},
}

// portability flags recipes that only work with bash or GNU tools. Bash
// syntax is accepted when SHELL is set to bash.
func portability(m *model) []Finding {
	var out []Finding
	for _, r := range m.rules {
		for _, l := range r.recipe {
			if !m.bash {
				if what := bashism(l); what != "" {
					out = append(out, r.lineFinding(l, NonPortable, RuleBashism,
						fmt.Sprintf("%s is bash syntax, but make runs recipes with /bin/sh", what), false))
				}
			}
			for _, cmd := range l.cmds {
				name := cmd.Name()
				switch {
				case name == "source" && !m.bash:
					out = append(out, r.lineFinding(l, NonPortable, RuleSourceBuiltin,
						"source is a bash builtin; POSIX sh uses .", true))
				case name == "echo" && (cmd.HasFlag('e', "") || cmd.HasFlag('n', "")):
					out = append(out, r.lineFinding(l, NonPortable, RuleNonPortableEcho,
						"echo options differ between shells; use printf", false))
				default:
					if opt := gnuOption(cmd); opt != "" {
						out = append(out, r.lineFinding(l, NonPortable, RuleGNUOnlyFlag,
							fmt.Sprintf("%s %s is only understood by the GNU version", name, opt), false))
					}
				}
			}
		}
	}
	return out
}

// bashism names the first bash-only construct on the line, or returns "".
func bashism(l *recipeLine) string {
	for _, cmd := range l.cmds {
		switch cmd.Name() {
		case "[[":
			return "[["
		case "declare", "typeset", "local":
			return cmd.Name()
		case "function":
			return "the function keyword"
		}
		for _, w := range cmd.Words {
			if strings.HasPrefix(w.Raw, "&>") {
				return "&>"
			}
		}
	}
	if arithmeticCommand(l.text) {
		return "(( ))"
	}
	return ""
}

// arithmeticCommand reports whether text uses the (( )) arithmetic
// command. The $(( )) expansion is POSIX and is not matched.
func arithmeticCommand(text string) bool {
	for i := 0; i+1 < len(text); i++ {
		if text[i] == '(' && text[i+1] == '(' && (i == 0 || text[i-1] != '$') {
			return true
		}
	}
	return false
}

func gnuOption(cmd shell.Command) string {
	opts := gnuOptions[cmd.Name()]
	for _, a := range cmd.Args() {
		if a.Value == "--" {
			break
		}
		for _, o := range opts {
			if a.Value == o || strings.HasPrefix(a.Value, o+"=") {
				return o
			}
		}
	}
	if cmd.Name() == "sed" {
		// GNU sed takes -i without a suffix argument; BSD sed requires one.
		for _, a := range cmd.Args() {
			if a.Value == "-i" {
				return "-i"
			}
		}
	}
	return ""
}
