// Package plan is a tagged variant tree over probe execution: Probe,
// ForeachSeq, ForeachMap, If/Elif/Else, Literal. An interpreter (here,
// each node's exec method) walks it directly rather than generating
// source at compile time.
package plan

import (
	"fmt"

	"github.com/opsloop/probed/internal/exprlang"
	"github.com/opsloop/probed/internal/probefn"
)

// Invocation is one probe call recorded in a Context's InvocationLog:
// [[cmd, ...args], returnValue].
type Invocation struct {
	Cmd    []string
	Return any
}

// Context is a mutable, per-task environment carrying the function
// registry, the local host id, and — during
// execution — the named variables result, task_results (here,
// InvocationLog), and user-chosen iteration variables (Vars).
type Context struct {
	Functions probefn.Registry
	HostID    string

	Result        any
	InvocationLog []Invocation
	Vars          map[string]any
}

// NewContext builds a fresh, empty Context bound to a function
// registry and host id. Vars starts empty; Reset is called once per
// iteration by the runtime, not here.
func NewContext(functions probefn.Registry, hostID string) *Context {
	return &Context{
		Functions: functions,
		HostID:    hostID,
		Vars:      map[string]any{},
	}
}

// Reset clears InvocationLog and Result at the start of every
// iteration, so task_results starts empty before the primary probe
// runs. Vars is left alone: it's local to node execution and scoped by
// setVar/restore, not iteration.
func (c *Context) Reset() {
	c.Result = nil
	c.InvocationLog = nil
}

// setVar binds name to value for the duration of one nested block,
// returning a restore func that undoes the binding. This keeps
// foreach-bound identifiers scoped to their loop body rather than
// leaking into sibling statements.
func (c *Context) setVar(name string, value any) (restore func()) {
	old, had := c.Vars[name]
	c.Vars[name] = value
	return func() {
		if had {
			c.Vars[name] = old
		} else {
			delete(c.Vars, name)
		}
	}
}

// env builds the expression environment visible to condition bodies
// and reference expressions: result, task_results, plus every bound
// iteration variable.
func (c *Context) env() exprlang.Env {
	env := exprlang.NewEnv()
	env["result"] = c.Result
	env["task_results"] = invocationLogValues(c.InvocationLog)
	for k, v := range c.Vars {
		env[k] = v
	}
	return env
}

func invocationLogValues(log []Invocation) []any {
	out := make([]any, len(log))
	for i, inv := range log {
		out[i] = []any{append([]string{}, inv.Cmd...), inv.Return}
	}
	return out
}

// wrapIfMap wraps a map[string]any result in exprlang.AttrMap so it's
// reachable by both keyed and dotted access.
func wrapIfMap(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return exprlang.AttrMap(t)
	case exprlang.AttrMap:
		return t
	default:
		return v
	}
}

func notAMapError(v any) error {
	return fmt.Errorf("foreach key, value: result is not a map (got %T)", v)
}
