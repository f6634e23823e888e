// Package verify holds the precondition checks run before any batch is sent:
// target URL, endpoint liveness, template validity and CSV/template agreement.
package verify

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"Crackgo/internal/batch"
	"Crackgo/internal/operation"

	"github.com/agext/levenshtein"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// PreconditionError is returned by every check in this package.
type PreconditionError struct {
	Check   string
	Message string
	Err     error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s check failed: %s: %v", e.Check, e.Message, e.Err)
	}
	return fmt.Sprintf("%s check failed: %s", e.Check, e.Message)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

var aliasName = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// URL checks that raw is an absolute http(s) URL with a host.
func URL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &PreconditionError{Check: "url", Message: fmt.Sprintf("cannot parse %q", raw), Err: err}
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, &PreconditionError{Check: "url", Message: fmt.Sprintf("%q is not an absolute URL", raw)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &PreconditionError{Check: "url", Message: fmt.Sprintf("unsupported scheme %q (use http or https)", u.Scheme)}
	}
	return u, nil
}

// AliasPrefix checks that prefix is a valid GraphQL name.
func AliasPrefix(prefix string) error {
	if !aliasName.MatchString(prefix) {
		return &PreconditionError{Check: "alias", Message: fmt.Sprintf("%q is not a valid GraphQL name", prefix)}
	}
	return nil
}

// Template renders the template with mock values into a two-instance batch document and
// parses it. The template must yield exactly one root field per instance and no variable
// definitions, since batches are sent without variables.
func Template(t *operation.Template, aliasPrefix string) error {
	if err := AliasPrefix(aliasPrefix); err != nil {
		return err
	}

	body, err := t.Inject(mockValues(t))
	if err != nil {
		return &PreconditionError{Check: "query", Message: "mock injection failed", Err: err}
	}

	asm := batch.NewAssembler(aliasPrefix)
	asm.Append(1, body)
	asm.Append(2, body)
	doc := asm.SealAndRender(t.RootType)

	parsed, err := parser.ParseQuery(&ast.Source{Name: "template", Input: doc})
	if err != nil {
		return &PreconditionError{Check: "query", Message: "batched operation is not valid GraphQL", Err: err}
	}
	if len(parsed.Operations) != 1 {
		return &PreconditionError{Check: "query", Message: fmt.Sprintf("expected one operation, found %d", len(parsed.Operations))}
	}
	if len(parsed.Fragments) > 0 {
		return &PreconditionError{Check: "query", Message: "fragment definitions are not supported in batched operations"}
	}

	op := parsed.Operations[0]
	if op.Operation != ast.Query && op.Operation != ast.Mutation {
		return &PreconditionError{Check: "query", Message: fmt.Sprintf("root operation %q cannot be batched", op.Operation)}
	}
	if len(op.VariableDefinitions) > 0 {
		return &PreconditionError{Check: "query", Message: "variable definitions are not supported; use $name or {{name}} markers bound to CSV columns"}
	}
	if len(op.SelectionSet) != 2 {
		return &PreconditionError{Check: "query", Message: fmt.Sprintf("operation body must contain exactly one root field, found %d", len(op.SelectionSet)/2)}
	}
	for i, sel := range op.SelectionSet {
		field, ok := sel.(*ast.Field)
		if !ok {
			return &PreconditionError{Check: "query", Message: "operation body must be a field, not a fragment"}
		}
		if want := asm.Alias(i + 1); field.Alias != want {
			return &PreconditionError{Check: "query", Message: fmt.Sprintf("root field is already aliased (%q)", field.Alias)}
		}
	}
	return nil
}

// mockValues picks a value per marker that satisfies every filter it is used with.
func mockValues(t *operation.Template) operation.Map {
	values := make(operation.Map)
	for name, filters := range t.Filters() {
		v := "mock"
		for _, f := range filters {
			switch f {
			case operation.FilterBool:
				v = "true"
			case operation.FilterInt, operation.FilterFloat:
				if v != "true" {
					v = "1"
				}
			case operation.FilterRaw:
				if v == "mock" {
					v = "MOCK"
				}
			}
		}
		values[name] = v
	}
	return values
}

// Inputs checks that the CSV header carries a column for every template marker.
func Inputs(t *operation.Template, header []string) error {
	columns := make(map[string]bool, len(header))
	for _, h := range header {
		columns[h] = true
	}

	var missing []string
	for _, m := range t.Markers() {
		if !columns[m] {
			missing = append(missing, describeMissing(m, header))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &PreconditionError{
		Check:   "inputs",
		Message: fmt.Sprintf("CSV header [%s] lacks column(s) for marker(s): %s", strings.Join(header, ", "), strings.Join(missing, "; ")),
	}
}

// describeMissing names a missing marker and, when one is close enough, the column it was probably meant to be.
func describeMissing(marker string, header []string) string {
	type candidate struct {
		name string
		dist int
	}
	var cands []candidate
	for _, h := range header {
		d := levenshtein.Distance(strings.ToLower(marker), strings.ToLower(h), nil)
		limit := len(marker) / 3
		if limit < 2 {
			limit = 2
		}
		if d <= limit {
			cands = append(cands, candidate{name: h, dist: d})
		}
	}
	if len(cands) == 0 {
		return fmt.Sprintf("%q", marker)
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	return fmt.Sprintf("%q (did you mean %q?)", marker, cands[0].name)
}
