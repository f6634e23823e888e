// Package match evaluates a user supplied predicate against each aliased result
// to flag interesting rows, e.g. a login that returned a token.
package match

import (
	"encoding/json"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Env is what a predicate can see.
type Env struct {
	Alias string            `expr:"alias"` // e.g. "alias7".
	Data  any               `expr:"data"`  // Decoded value stored under the alias.
	Row   map[string]string `expr:"row"`   // The CSV row that produced the alias.
}

// Matcher is a compiled predicate.
type Matcher struct {
	source  string
	program *vm.Program
}

// Compile parses source as a boolean expr-lang expression over Env.
func Compile(source string) (*Matcher, error) {
	program, err := expr.Compile(source, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling match expression %q: %w", source, err)
	}
	return &Matcher{source: source, program: program}, nil
}

// String returns the expression source.
func (m *Matcher) String() string {
	return m.source
}

// Eval runs the predicate for one aliased result.
func (m *Matcher) Eval(alias string, value json.RawMessage, row map[string]string) (bool, error) {
	var data any
	if len(value) > 0 {
		if err := json.Unmarshal(value, &data); err != nil {
			return false, fmt.Errorf("decoding result for %s: %w", alias, err)
		}
	}

	out, err := expr.Run(m.program, Env{Alias: alias, Data: data, Row: row})
	if err != nil {
		return false, fmt.Errorf("evaluating match for %s: %w", alias, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}
