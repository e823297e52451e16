package partition

import (
	"strings"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	"github.com/ajitpratap0/toposplit/pkg/errors"
	"github.com/ajitpratap0/toposplit/pkg/states"
)

// Filter selects the states to emit. The expression sees code (string),
// name (string) and geometries (int) and must yield a bool, e.g.
//
//	code in ["17", "19"] || geometries > 100
//
// A nil Filter selects every state.
type Filter struct {
	program    *exprvm.Program
	expression string
}

func filterEnv(s states.State, geometries int) map[string]any {
	return map[string]any{
		"code":       s.Code,
		"name":       s.Name,
		"geometries": geometries,
	}
}

// CompileFilter compiles expression. An empty expression yields a nil Filter.
func CompileFilter(expression string) (*Filter, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, nil
	}

	program, err := exprlang.Compile(expression,
		exprlang.Env(filterEnv(states.State{}, 0)),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "invalid state filter").
			WithDetail("expression", expression)
	}
	return &Filter{program: program, expression: expression}, nil
}

// Match reports whether the state with the given geometry count is selected
func (f *Filter) Match(s states.State, geometries int) (bool, error) {
	if f == nil {
		return true, nil
	}

	out, err := exprlang.Run(f.program, filterEnv(s, geometries))
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypeValidation, "state filter failed").
			WithDetail("expression", f.expression).
			WithDetail("state", s.Code)
	}
	ok, _ := out.(bool)
	return ok, nil
}

// String returns the source expression
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expression
}
