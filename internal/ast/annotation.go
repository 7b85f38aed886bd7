package ast

import "strings"

// AnnotationPrefix marks a comment written by purification to record an
// advisory that was reported but not applied.
const AnnotationPrefix = "makepure:"

// NewAnnotation builds the comment that acknowledges rule for the item
// that follows it.
func NewAnnotation(rule, reason string) *Comment {
	text := " " + AnnotationPrefix + " " + rule
	if reason != "" {
		text += " " + strings.ReplaceAll(reason, "\n", " ")
	}
	return &Comment{Text: text}
}

// AnnotatedRule returns the rule named by an annotation comment.
func (c *Comment) AnnotatedRule() (string, bool) {
	text := strings.TrimSpace(c.Text)
	if !strings.HasPrefix(text, AnnotationPrefix) {
		return "", false
	}
	fields := strings.Fields(strings.TrimPrefix(text, AnnotationPrefix))
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}

// Acknowledged maps each item to the set of rules acknowledged by the run
// of annotation comments directly above it.
type Acknowledged map[Item]map[string]bool

// CollectAcknowledged scans the tree for annotation comments.
func CollectAcknowledged(items []Item) Acknowledged {
	acks := Acknowledged{}
	collectAcks(items, acks)
	return acks
}

func collectAcks(items []Item, acks Acknowledged) {
	var pending map[string]bool
	for _, it := range items {
		if c, ok := it.(*Comment); ok {
			if rule, ok := c.AnnotatedRule(); ok {
				if pending == nil {
					pending = map[string]bool{}
				}
				pending[rule] = true
			}
			continue
		}
		if pending != nil {
			acks[it] = pending
			pending = nil
		}
		if cond, ok := it.(*Conditional); ok {
			collectAcks(cond.Then, acks)
			collectAcks(cond.Else, acks)
		}
	}
}

// Has reports whether rule is acknowledged for it.
func (a Acknowledged) Has(it Item, rule string) bool {
	return a[it][rule]
}
