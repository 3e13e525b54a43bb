// Package exprlang adapts github.com/expr-lang/expr into a restricted
// expression subset: arithmetic and comparison operators,
// attribute/index access on mappings, and type predicates, without
// exposing a general-purpose eval.
package exprlang

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// AttrMap is a map that expr-lang resolves through both keyed access
// (m["foo"]) and dotted attribute access (m.foo).
type AttrMap map[string]any

// Env is the variable/function scope an expression is evaluated
// against. Builders populate it with TaskContext's result/task_results
// plus any foreach-bound identifiers before calling Eval.
type Env map[string]any

// NewEnv returns an Env pre-seeded with the restricted subset's builtin
// functions: the reference formatter used by internal/reference's
// composed-expression output, and a handful of isinstance-equivalent
// type predicates.
func NewEnv() Env {
	return Env{
		"format":   formatBuiltin,
		"isstring": func(v any) bool { _, ok := v.(string); return ok },
		"isnumber": isNumber,
		"isbool":   func(v any) bool { _, ok := v.(bool); return ok },
		"islist":   isList,
		"ismap":    isMap,
		"isnil":    func(v any) bool { return v == nil },
	}
}

// EvalBool evaluates an "if"/"elif" condition body and coerces the
// result to bool.
func EvalBool(source string, env Env) (bool, error) {
	out, err := Eval(source, env)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition did not evaluate to a boolean: %v (%T)", out, out)
	}
	return b, nil
}

// Eval compiles and runs source against env. Each call compiles fresh,
// so a plan's condition and reference sources are recompiled on every
// iteration; internal/compiler builds the plan tree once, but not the
// compiled expressions.
func Eval(source string, env Env) (any, error) {
	program, err := expr.Compile(source, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", source, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate expression %q: %w", source, err)
	}
	return out, nil
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

func isList(v any) bool {
	switch v.(type) {
	case []any, []string, []int, []float64:
		return true
	default:
		return false
	}
}

func isMap(v any) bool {
	switch v.(type) {
	case map[string]any, AttrMap:
		return true
	default:
		return false
	}
}

// formatBuiltin is the runtime half of internal/reference's composed
// expression output: a printf-style formatter exposed inside the
// expression environment as format(fmt, args...), so the runtime
// composes multi-reference templates with standard string-format
// semantics.
func formatBuiltin(args ...any) any {
	if len(args) == 0 {
		return ""
	}
	f, ok := args[0].(string)
	if !ok {
		return fmt.Sprint(args...)
	}
	return fmt.Sprintf(f, args[1:]...)
}
