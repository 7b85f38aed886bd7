package ast

import "strings"

// Flavor is the assignment operator of a variable.
type Flavor int

const (
	// Recursive is "=": expanded on every reference.
	Recursive Flavor = iota
	// Simple is ":=" (or "::="): expanded once at definition.
	Simple
	// ConditionalSet is "?=": assigned only when undefined.
	ConditionalSet
	// Append is "+=".
	Append
	// Shell is "!=": the value is the output of a shell command.
	Shell
)

// Operator returns the assignment operator for the flavor.
func (f Flavor) Operator() string {
	switch f {
	case Simple:
		return ":="
	case ConditionalSet:
		return "?="
	case Append:
		return "+="
	case Shell:
		return "!="
	}
	return "="
}

func (f Flavor) String() string {
	switch f {
	case Recursive:
		return "recursive"
	case Simple:
		return "simple"
	case ConditionalSet:
		return "conditional"
	case Append:
		return "append"
	case Shell:
		return "shell"
	}
	return "unknown"
}

// FlavorFromOperator maps an assignment operator to its flavor.
func FlavorFromOperator(op string) (Flavor, bool) {
	switch op {
	case "=":
		return Recursive, true
	case ":=", "::=", ":::=":
		return Simple, true
	case "?=":
		return ConditionalSet, true
	case "+=":
		return Append, true
	case "!=":
		return Shell, true
	}
	return Recursive, false
}

// Variable is an assignment. Value is kept as the opaque source string;
// use parser.ExtractFunctionCalls to inspect it.
type Variable struct {
	Name     string
	Value    string
	Flavor   Flavor
	Export   bool
	Override bool
	Private  bool
	Define   bool   // Multi-line define...endef block.
	Comment  string // Trailing comment without the '#'.
	Span     Span
}

// RecipeLine is one shell command line of a rule.
type RecipeLine struct {
	Text          string // Command text without the leading tab.
	Line          int    // Source line; zero when synthesized.
	SpaceIndented bool   // Indented with spaces instead of a tab.
	// Directive marks a make conditional line (ifdef, else, endif, ...)
	// interleaved with the commands. It is not passed to the shell.
	Directive bool
}

// Command returns the text with backslash-newline continuations collapsed.
func (r RecipeLine) Command() string {
	if !strings.Contains(r.Text, "\\\n") {
		return r.Text
	}
	parts := strings.Split(r.Text, "\\\n")
	for i := range parts {
		if i > 0 {
			parts[i] = strings.TrimLeft(parts[i], " \t")
		}
	}
	return strings.Join(parts, " ")
}

// Target is an explicit rule.
type Target struct {
	Name          string // Target list as written; see Names.
	Prerequisites []string
	OrderOnly     []string
	Recipe        []RecipeLine
	IsPhony       bool
	DoubleColon   bool
	Assignment    *Variable // Target-specific variable, if any.
	Span          Span
}

// Names splits the target list into individual target names.
func (t *Target) Names() []string {
	return strings.Fields(t.Name)
}

// DependsOn reports whether name is a normal or order-only prerequisite.
func (t *Target) DependsOn(name string) bool {
	for _, p := range t.Prerequisites {
		if p == name {
			return true
		}
	}
	for _, p := range t.OrderOnly {
		if p == name {
			return true
		}
	}
	return false
}

// PatternRule is an implicit rule such as "%.o: %.c", or a static pattern
// rule when Targets is set.
type PatternRule struct {
	TargetPattern string
	PrereqPattern string // Prerequisite list as written.
	Targets       string // Explicit targets of a static pattern rule.
	OrderOnly     []string
	Recipe        []RecipeLine
	Span          Span
}

// Prerequisites splits the prerequisite list into words.
func (p *PatternRule) Prerequisites() []string {
	return strings.Fields(p.PrereqPattern)
}

// ConditionKind is the directive that opened a conditional.
type ConditionKind int

const (
	IfEq ConditionKind = iota
	IfNeq
	IfDef
	IfNdef
)

// Keyword returns the directive keyword.
func (k ConditionKind) Keyword() string {
	switch k {
	case IfNeq:
		return "ifneq"
	case IfDef:
		return "ifdef"
	case IfNdef:
		return "ifndef"
	}
	return "ifeq"
}

func (k ConditionKind) String() string {
	return k.Keyword()
}

// Condition is the test of a conditional. IfEq and IfNeq carry two
// arguments; IfDef and IfNdef carry the variable name.
type Condition struct {
	Kind ConditionKind
	Args []string
}

// Conditional is an ifeq/ifneq/ifdef/ifndef block.
type Conditional struct {
	Condition Condition
	Then      []Item
	Else      []Item
	HasElse   bool
	// ElseIf marks an "else ifeq ..." chain: Else holds exactly one
	// Conditional that shares this block's endif.
	ElseIf bool
	Span   Span
}

// Include is an include directive. Optional is set for -include and
// sinclude.
type Include struct {
	Path     string // Path list as written; see Paths.
	Optional bool
	Span     Span
}

// Paths splits the path list into individual paths.
func (i *Include) Paths() []string {
	return strings.Fields(i.Path)
}

// FunctionCall is a line that consists only of a function call, such as
// $(eval ...) or $(info ...).
type FunctionCall struct {
	Name string
	Args []string
	Span Span
}

// Comment is a full-line comment. Text excludes the leading '#'.
type Comment struct {
	Text string
	Span Span
}

// Directive is a bare export, unexport, vpath or undefine line.
type Directive struct {
	Keyword string
	Args    string
	Span    Span
}

func (v *Variable) Range() Span     { return v.Span }
func (t *Target) Range() Span       { return t.Span }
func (p *PatternRule) Range() Span  { return p.Span }
func (c *Conditional) Range() Span  { return c.Span }
func (i *Include) Range() Span      { return i.Span }
func (f *FunctionCall) Range() Span { return f.Span }
func (c *Comment) Range() Span      { return c.Span }
func (d *Directive) Range() Span    { return d.Span }

func (*Variable) item()     {}
func (*Target) item()       {}
func (*PatternRule) item()  {}
func (*Conditional) item()  {}
func (*Include) item()      {}
func (*FunctionCall) item() {}
func (*Comment) item()      {}
func (*Directive) item()    {}

// Clone returns a deep copy of the variable.
func (v *Variable) Clone() Item {
	c := *v
	return &c
}

// Clone returns a deep copy of the target.
func (t *Target) Clone() Item {
	c := *t
	c.Prerequisites = cloneStrings(t.Prerequisites)
	c.OrderOnly = cloneStrings(t.OrderOnly)
	c.Recipe = cloneRecipe(t.Recipe)
	if t.Assignment != nil {
		a := *t.Assignment
		c.Assignment = &a
	}
	return &c
}

// Clone returns a deep copy of the pattern rule.
func (p *PatternRule) Clone() Item {
	c := *p
	c.OrderOnly = cloneStrings(p.OrderOnly)
	c.Recipe = cloneRecipe(p.Recipe)
	return &c
}

// Clone returns a deep copy of the conditional and both branches.
func (c *Conditional) Clone() Item {
	cl := *c
	cl.Condition.Args = cloneStrings(c.Condition.Args)
	cl.Then = CloneItems(c.Then)
	cl.Else = CloneItems(c.Else)
	return &cl
}

// Clone returns a deep copy of the include.
func (i *Include) Clone() Item {
	c := *i
	return &c
}

// Clone returns a deep copy of the function call.
func (f *FunctionCall) Clone() Item {
	c := *f
	c.Args = cloneStrings(f.Args)
	return &c
}

// Clone returns a deep copy of the comment.
func (c *Comment) Clone() Item {
	cl := *c
	return &cl
}

// Clone returns a deep copy of the directive.
func (d *Directive) Clone() Item {
	c := *d
	return &c
}

func cloneRecipe(r []RecipeLine) []RecipeLine {
	if r == nil {
		return nil
	}
	out := make([]RecipeLine, len(r))
	copy(out, r)
	return out
}

// PrerequisiteText renders the normal and order-only prerequisites.
func (t *Target) PrerequisiteText() string {
	s := joinWords(t.Prerequisites)
	if len(t.OrderOnly) > 0 {
		if s != "" {
			s += " "
		}
		s += "| " + joinWords(t.OrderOnly)
	}
	return s
}
