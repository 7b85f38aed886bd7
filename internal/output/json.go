package output

import (
	"encoding/json"

	"github.com/donaldgifford/makepure/internal/ast"
	"github.com/donaldgifford/makepure/internal/diag"
	"github.com/donaldgifford/makepure/internal/parser"
	"github.com/donaldgifford/makepure/internal/purify"
	"github.com/donaldgifford/makepure/internal/source"
)

type jsonReport struct {
	File       string          `json:"file"`
	Mode       Mode            `json:"mode"`
	Error      string          `json:"error,omitempty"`
	ParseError *jsonParseError `json:"parse_error,omitempty"`
	Items      []jsonItem      `json:"items,omitempty"`
	Purify     *jsonPurify     `json:"purify,omitempty"`
	Lint       *diag.Result    `json:"lint,omitempty"`
	Content    string          `json:"content,omitempty"`
	Diff       string          `json:"diff,omitempty"`
	Applied    int             `json:"applied_fixes,omitempty"`
	Written    bool            `json:"written,omitempty"`
	Backup     string          `json:"backup,omitempty"`
	Cached     bool            `json:"cached,omitempty"`
}

type jsonParseError struct {
	Code     string           `json:"code"`
	Kind     string           `json:"kind"`
	Message  string           `json:"message"`
	Note     string           `json:"note"`
	Help     string           `json:"help"`
	Location *source.Location `json:"location,omitempty"`
}

type jsonItem struct {
	Kind    string     `json:"kind"`
	Lines   ast.Span   `json:"lines"`
	Summary string     `json:"summary"`
	Then    []jsonItem `json:"then,omitempty"`
	Else    []jsonItem `json:"else,omitempty"`
}

type jsonPurify struct {
	Rounds          int                  `json:"rounds"`
	Applied         int                  `json:"applied"`
	Recommended     int                  `json:"recommended"`
	Transformations []jsonTransformation `json:"transformations"`
	Report          string               `json:"report,omitempty"`
}

type jsonTransformation struct {
	Kind        string   `json:"kind"`
	Stage       string   `json:"stage"`
	Safe        bool     `json:"safe"`
	Subjects    []string `json:"subjects,omitempty"`
	Description string   `json:"description"`
	Reason      string   `json:"reason,omitempty"`
}

func (p *Printer) json(reports []Report) error {
	out := make([]jsonReport, 0, len(reports))
	for _, r := range reports {
		jr := jsonReport{
			File:    r.File,
			Mode:    r.Mode,
			Lint:    r.Lint,
			Content: r.Content,
			Diff:    r.Diff,
			Applied: r.Applied,
			Written: r.Written,
			Backup:  r.Backup,
			Cached:  r.Cached,
		}
		if r.Err != nil {
			jr.Error = r.Err.Error()
		}
		if r.ParseErr != nil {
			jr.ParseError = parseErrorJSON(r.ParseErr)
		}
		if r.Tree != nil {
			jr.Items = itemsJSON(r.Tree.Items)
		}
		if r.Purify != nil {
			jr.Purify = purifyJSON(r.Purify, r.ShowReport)
		}
		out = append(out, jr)
	}

	enc := json.NewEncoder(p.W)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func parseErrorJSON(e *parser.ParseError) *jsonParseError {
	return &jsonParseError{
		Code:     e.Kind.Code(),
		Kind:     e.Kind.String(),
		Message:  e.Error(),
		Note:     e.Note(),
		Help:     e.Help(),
		Location: e.Location,
	}
}

func itemsJSON(items []ast.Item) []jsonItem {
	out := make([]jsonItem, 0, len(items))
	for _, it := range items {
		ji := jsonItem{Kind: itemKind(it), Lines: it.Range(), Summary: summarize(it)}
		if c, ok := it.(*ast.Conditional); ok {
			ji.Then = itemsJSON(c.Then)
			if c.HasElse {
				ji.Else = itemsJSON(c.Else)
			}
		}
		out = append(out, ji)
	}
	return out
}

func itemKind(it ast.Item) string {
	switch it.(type) {
	case *ast.Variable:
		return "variable"
	case *ast.Target:
		return "target"
	case *ast.PatternRule:
		return "pattern-rule"
	case *ast.Conditional:
		return "conditional"
	case *ast.Include:
		return "include"
	case *ast.FunctionCall:
		return "function-call"
	case *ast.Comment:
		return "comment"
	case *ast.Directive:
		return "directive"
	}
	return "unknown"
}

func purifyJSON(res *purify.Result, withReport bool) *jsonPurify {
	jp := &jsonPurify{
		Rounds:          res.Rounds,
		Applied:         len(res.Applied()),
		Recommended:     len(res.Recommended()),
		Transformations: make([]jsonTransformation, 0, len(res.Transformations)),
	}
	for _, t := range res.Transformations {
		jp.Transformations = append(jp.Transformations, jsonTransformation{
			Kind:        t.Kind(),
			Stage:       t.Stage().String(),
			Safe:        t.Safe(),
			Subjects:    t.Subjects(),
			Description: purify.Describe(t),
			Reason:      t.Reason(),
		})
	}
	if withReport {
		jp.Report = res.Report
	}
	return jp
}
