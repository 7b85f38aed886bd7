package analyzer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/donaldgifford/makepure/internal/shell"
)

// Commands whose -o option names an output file.
var outputFlagCommands = map[string]bool{
	"as": true, "c++": true, "cc": true, "clang": true, "clang++": true, "curl": true,
	"g++": true, "gcc": true, "go": true, "ld": true, "sort": true,
}

// fileUse records the rules that write or read one file.
type fileUse struct {
	name    string
	writers []*rule
	readers []*rule
}

// parallelSafety flags rules that can interfere when make runs jobs in
// parallel. Nothing is reported once .NOTPARALLEL is set.
func parallelSafety(m *model) []Finding {
	if m.notParallel {
		return nil
	}
	var out []Finding
	files, order := m.fileUses()

	for _, name := range order {
		f := files[name]
		if racers := unorderedSet(m, f.writers); len(racers) > 1 {
			first := racers[0]
			names := ruleNames(racers)
			fd := first.finding(RaceCondition, RuleOutputRace,
				fmt.Sprintf("%s is written by targets %s, which may run at the same time", f.name, joinAnd(names)))
			fd.Subject = f.name
			fd.Related = names
			out = append(out, fd)
		}
	}

	for _, name := range order {
		f := files[name]
		if len(f.writers) != 1 || m.isTarget(f.name) {
			continue
		}
		producer := f.writers[0]
		for _, consumer := range f.readers {
			if consumer == producer || consumer.target == nil || m.ordered(consumer, producer) {
				continue
			}
			fd := consumer.finding(MissingDependency, RuleMissingDependency,
				fmt.Sprintf("%s reads %s, which is written by %s, but does not depend on it", consumer.display, f.name, producer.display))
			fd.Related = []string{producer.names[0]}
			fd.Autofix = true
			out = append(out, fd)
		}
	}

	for _, r := range m.rules {
		for _, l := range r.recipe {
			if strings.Contains(l.text, "$(MAKE)") || strings.Contains(l.text, "${MAKE}") {
				out = append(out, r.lineFinding(l, MissingDependency, RuleRecursiveMake,
					"recursive $(MAKE) hides the sub-build's dependencies from this make's job scheduler", false))
			}
		}
	}

	out = append(out, directoryRaces(m)...)
	return out
}

// fileUses maps files to the explicit rules that write and read them, and
// returns the file names in first-seen order.
func (m *model) fileUses() (map[string]*fileUse, []string) {
	files := map[string]*fileUse{}
	var order []string
	use := func(name string) *fileUse {
		f, ok := files[name]
		if !ok {
			f = &fileUse{name: name}
			files[name] = f
			order = append(order, name)
		}
		return f
	}

	for _, r := range m.rules {
		if r.target == nil {
			continue
		}
		written := map[string]bool{}
		for _, l := range r.recipe {
			for _, cmd := range l.cmds {
				for _, name := range outputsOf(cmd) {
					if !written[name] {
						written[name] = true
						f := use(name)
						f.writers = append(f.writers, r)
					}
				}
			}
		}
		read := map[string]bool{}
		addRead := func(name string) {
			name = normalizePath(name)
			if name == "" || written[name] || read[name] || isPerTarget(name) {
				return
			}
			read[name] = true
			f := use(name)
			f.readers = append(f.readers, r)
		}
		for _, p := range r.target.Prerequisites {
			addRead(p)
		}
		for _, l := range r.recipe {
			for _, cmd := range l.cmds {
				for _, w := range cmd.Operands() {
					addRead(w.Value)
				}
				for _, rd := range cmd.Redirects() {
					if !rd.Output() {
						addRead(rd.Target.Value)
					}
				}
			}
		}
	}
	return files, order
}

// outputsOf returns the files a command writes through redirections or an
// -o option.
func outputsOf(cmd shell.Command) []string {
	var out []string
	add := func(v string) {
		if v = normalizePath(v); v != "" && !isPerTarget(v) && !strings.HasPrefix(v, "/dev/") {
			out = append(out, v)
		}
	}
	for _, r := range cmd.Redirects() {
		if r.Output() {
			add(r.Target.Value)
		}
	}
	name := cmd.Name()
	if outputFlagCommands[name] || strings.HasPrefix(name, "$(") || strings.HasPrefix(name, "${") {
		args := cmd.Args()
		for i, a := range args {
			if a.Value == "-o" && i+1 < len(args) {
				add(args[i+1].Value)
			}
		}
	}
	return out
}

func normalizePath(v string) string {
	v = strings.TrimPrefix(v, "./")
	if v == "" || v == "." || strings.HasPrefix(v, "-") || strings.HasPrefix(v, "&") {
		return ""
	}
	return v
}

// isPerTarget reports whether a file name depends on the target being
// built or on shell state, so that two rules never name the same file.
func isPerTarget(v string) bool {
	for _, auto := range []string{"$@", "$(@", "${@", "$*", "$(*", "${*", "$<", "$^", "$$", "%"} {
		if strings.Contains(v, auto) {
			return true
		}
	}
	return false
}

// unorderedSet returns the rules of rs, in order, that may run at the
// same time as at least one other rule of rs.
func unorderedSet(m *model, rs []*rule) []*rule {
	var out []*rule
	for i, a := range rs {
		for j, b := range rs {
			if i != j && !m.ordered(a, b) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

func ruleNames(rs []*rule) []string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = r.display
	}
	return names
}

func joinAnd(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

// directoryRaces flags directories created by several rules that may run
// at once when at least one of them uses a plain mkdir.
func directoryRaces(m *model) []Finding {
	type dir struct {
		rules []*rule
		plain bool
	}
	dirs := map[string]*dir{}
	var order []string
	for _, r := range m.rules {
		if r.target == nil {
			continue
		}
		for _, l := range r.recipe {
			for _, cmd := range l.cmds {
				if cmd.Name() != "mkdir" {
					continue
				}
				for _, w := range cmd.Operands() {
					name := strings.TrimSuffix(normalizePath(w.Value), "/")
					if name == "" || isPerTarget(name) {
						continue
					}
					d, ok := dirs[name]
					if !ok {
						d = &dir{}
						dirs[name] = d
						order = append(order, name)
					}
					if !slices.Contains(d.rules, r) {
						d.rules = append(d.rules, r)
					}
					if !cmd.HasFlag('p', "--parents") {
						d.plain = true
					}
				}
			}
		}
	}

	var out []Finding
	for _, name := range order {
		d := dirs[name]
		if !d.plain || m.isTarget(name) {
			continue
		}
		racers := unorderedSet(m, d.rules)
		if len(racers) < 2 {
			continue
		}
		names := ruleNames(racers)
		fd := racers[0].finding(RaceCondition, RuleDirectoryRace,
			fmt.Sprintf("%s is created by targets %s; give it its own rule and list it as an order-only prerequisite", name, joinAnd(names)))
		fd.Subject = name
		fd.Related = names
		out = append(out, fd)
	}
	return out
}
