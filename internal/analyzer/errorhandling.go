package analyzer

import (
	"fmt"
	"strings"
)

// Commands whose failure should stop the build.
var criticalCommands = map[string]bool{
	"cd": true, "chmod": true, "chown": true, "cp": true, "curl": true, "git": true,
	"install": true, "ln": true, "mkdir": true, "mv": true, "rm": true, "tar": true, "wget": true,
}

// Commands that only print or do nothing.
var quietCommands = map[string]bool{
	":": true, "echo": true, "printf": true, "true": true,
}

// CriticalCommand reports whether a failure of the named command should
// stop the build.
func CriticalCommand(name string) bool {
	return criticalCommands[name]
}

// errorHandling flags failures make cannot see.
func errorHandling(m *model) []Finding {
	var out []Finding
	for _, r := range m.rules {
		for _, l := range r.recipe {
			if !m.errexit && !setsErrexit(l) {
				for i, cmd := range l.cmds {
					name := cmd.Name()
					if !criticalCommands[name] || cmd.Substituted || i == len(l.cmds)-1 {
						continue
					}
					if cmd.Op == ";" || cmd.Op == "&" {
						out = append(out, r.lineFinding(l, MissingErrorHandling, RuleUncheckedCommand,
							fmt.Sprintf("a failing %s is ignored because %q does not stop the line; use &&", name, cmd.Op), cmd.Op == ";"))
						break
					}
				}
			}
			if l.prefix.Silent && len(l.cmds) > 0 && !quietCommands[l.cmds[0].Name()] {
				out = append(out, r.lineFinding(l, MissingErrorHandling, RuleSilencedCommand,
					fmt.Sprintf("@ hides the %s command, so a failure is reported without the command that caused it", l.cmds[0].Name()), false))
			}
		}
		if f, ok := cdWithoutOneshell(m, r); ok {
			out = append(out, f)
		}
	}
	return out
}

// setsErrexit reports whether the line enables set -e before its commands.
func setsErrexit(l *recipeLine) bool {
	for _, cmd := range l.cmds {
		if cmd.Name() != "set" {
			continue
		}
		for _, a := range cmd.Args() {
			if len(a.Value) > 1 && a.Value[0] == '-' && strings.Contains(a.Value, "e") {
				return true
			}
		}
	}
	return false
}

// cdWithoutOneshell flags a recipe line that only changes directory and is
// followed by more lines, which run back in the starting directory.
func cdWithoutOneshell(m *model, r *rule) (Finding, bool) {
	if m.oneShell {
		return Finding{}, false
	}
	for i, l := range r.recipe {
		if i == len(r.recipe)-1 {
			break
		}
		if len(l.cmds) == 1 && l.cmds[0].Name() == "cd" {
			return r.lineFinding(l, MissingErrorHandling, RuleCdWithoutOneshell,
				"cd on its own line has no effect on the following lines, which run in a new shell; join them with &&", false), true
		}
	}
	return Finding{}, false
}
