package analyzer

import (
	"fmt"
	"strings"

	"github.com/donaldgifford/makepure/internal/shell"
)

// idempotence flags recipe commands that fail when the build is run a
// second time over its own output.
func idempotence(m *model) []Finding {
	var out []Finding
	for _, r := range m.rules {
		for li, l := range r.recipe {
			if l.prefix.IgnoreErrors {
				continue
			}
			for i, cmd := range l.cmds {
				if i > 0 && l.cmds[i-1].Op == "||" {
					continue
				}
				operands := operandText(cmd)
				switch cmd.Name() {
				case "mkdir":
					if !cmd.HasFlag('p', "--parents") {
						out = append(out, r.lineFinding(l, NonIdempotence, RuleMkdirWithoutP,
							fmt.Sprintf("mkdir %s fails when the directory already exists; use mkdir -p", operands), true))
					}
				case "rm":
					if !cmd.HasFlag('f', "--force") {
						out = append(out, r.lineFinding(l, NonIdempotence, RuleRmWithoutF,
							fmt.Sprintf("rm %s fails when the file is already gone; use rm -f", operands), true))
					}
				case "ln":
					if cmd.HasFlag('s', "--symbolic") && !cmd.HasFlag('f', "--force") && !removedBefore(r, li, i, cmd) {
						out = append(out, r.lineFinding(l, NonIdempotence, RuleLnWithoutF,
							fmt.Sprintf("ln -s %s fails when the link already exists; use ln -sf", operands), true))
					}
				}
			}
		}
	}
	return out
}

func operandText(cmd shell.Command) string {
	ops := cmd.Operands()
	words := make([]string, len(ops))
	for i, w := range ops {
		words[i] = w.Raw
	}
	return strings.Join(words, " ")
}

// removedBefore reports whether the link created by ln is removed with
// rm -f earlier in the same recipe.
func removedBefore(r *rule, line, index int, ln shell.Command) bool {
	ops := ln.Operands()
	if len(ops) < 2 {
		return false
	}
	link := ops[len(ops)-1].Value
	for li := 0; li <= line; li++ {
		cmds := r.recipe[li].cmds
		if li == line {
			cmds = cmds[:index]
		}
		for _, c := range cmds {
			if c.Name() != "rm" || !c.HasFlag('f', "--force") {
				continue
			}
			for _, w := range c.Operands() {
				if w.Value == link {
					return true
				}
			}
		}
	}
	return false
}
