package parser

import "strings"

// Reference is a variable reference found in make text. Start and End are
// byte offsets of the whole reference.
type Reference struct {
	Name  string
	Start int
	End   int
}

// VariableReferences returns the variables referenced in text, in order,
// including those inside function arguments. Substitution references such
// as $(SRCS:.c=.o) report the substituted variable. Computed names like
// $($(ARCH)_FLAGS) report only the variables they are computed from.
func VariableReferences(text string) []Reference {
	var refs []Reference
	collectReferences(text, 0, &refs)
	return refs
}

func collectReferences(text string, base int, refs *[]Reference) {
	for i := 0; i < len(text)-1; i++ {
		if text[i] != '$' {
			continue
		}
		next := text[i+1]
		switch next {
		case '$':
			i++
			continue
		case '(', '{':
		default:
			*refs = append(*refs, Reference{Name: string(next), Start: base + i, End: base + i + 2})
			i++
			continue
		}

		end := matchReference(text, i+1)
		if end < 0 {
			return
		}
		if call, ok := parseCall(text, i, end); ok {
			if (call.Name == "call" || call.Name == "value") && len(call.Args) > 0 {
				if name := strings.TrimSpace(call.Args[0]); name != "" && !strings.Contains(name, "$") {
					*refs = append(*refs, Reference{Name: name, Start: base + i, End: base + end + 1})
				}
			}
			for j, arg := range call.Args {
				collectReferences(arg, base+call.ArgStart[j], refs)
			}
			i = end
			continue
		}

		inner := text[i+2 : end]
		name := inner
		if colon := strings.IndexByte(inner, ':'); colon >= 0 && strings.Contains(inner[colon:], "=") {
			name = inner[:colon]
		}
		if strings.Contains(name, "$") {
			collectReferences(inner, base+i+2, refs)
		} else if name = strings.TrimSpace(name); name != "" {
			*refs = append(*refs, Reference{Name: name, Start: base + i, End: base + end + 1})
		}
		i = end
	}
}

// IsAutomatic reports whether name is one of make's automatic variables,
// including the directory and file forms such as @D and <F.
func IsAutomatic(name string) bool {
	if len(name) == 2 && (name[1] == 'D' || name[1] == 'F') {
		name = name[:1]
	}
	return len(name) == 1 && strings.Contains("@<^?*+|%", name)
}

// IsPositional reports whether name is a numbered argument of a $(call).
func IsPositional(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return true
}
