package purify

import (
	"fmt"
	"strings"
)

// report renders the transformations grouped into applied rewrites and
// recommendations, each in stage order.
func report(res Result) string {
	if len(res.Transformations) == 0 {
		return "No issues found.\n"
	}
	applied, recommended := res.Applied(), res.Recommended()

	var b strings.Builder
	fmt.Fprintf(&b, "Purification: %d applied, %d recommended, %d round(s)\n",
		len(applied), len(recommended), res.Rounds)
	section(&b, "Applied", applied)
	section(&b, "Recommended", recommended)
	return b.String()
}

func section(b *strings.Builder, title string, ts []Transformation) {
	if len(ts) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for s := StageSemantic; s <= StagePortability; s++ {
		for _, t := range ts {
			if t.Stage() != s {
				continue
			}
			fmt.Fprintf(b, "  [%s] %s", s, Describe(t))
			if reason := t.Reason(); reason != "" {
				fmt.Fprintf(b, ": %s", reason)
			}
			b.WriteByte('\n')
		}
	}
}

// Describe summarizes what a transformation does in a few words.
func Describe(t Transformation) string {
	subject := strings.Join(t.Subjects(), ", ")
	switch v := t.(type) {
	case *WrapWithSort:
		return fmt.Sprintf("%s: wrapped %s in $(sort ...)", subject, v.Call)
	case *StripProcessID:
		return fmt.Sprintf("%s: removed %s", subject, strings.Join(v.Tokens, " "))
	case *AddCommandFlag:
		return fmt.Sprintf("%s: added %s to %s", subject, v.Flag, v.Command)
	case *AddOrderOnlyPrerequisite:
		return fmt.Sprintf("%s: added order-only prerequisite %s", v.Target, v.Prerequisite)
	case *ReplaceRecursiveWithSimple:
		return fmt.Sprintf("%s: changed = to :=", v.Variable)
	case *ChainRecipe:
		return fmt.Sprintf("%s: chained %d recipe lines with &&", subject, v.Lines)
	case *GuardCommand:
		return fmt.Sprintf("%s: %s now stops the line when it fails", subject, v.Command)
	case *ReplaceSourceWithDot:
		return fmt.Sprintf("%s: replaced source with .", subject)
	case *RecommendDirective:
		return "add special target " + v.Directive
	case *Recommendation:
		return fmt.Sprintf("%s (%s)", subject, v.Rule)
	}
	return t.Kind()
}
