package plan

import (
	"fmt"

	"github.com/opsloop/probed/internal/exprlang"
	"github.com/opsloop/probed/internal/reference"
)

// Node is one statement in a compiled task's plan tree.
type Node interface {
	exec(ctx *Context) error
}

// Program is a compiled task's top-level statement list.
type Program []Node

// Exec runs every statement in order against ctx.
func (p Program) Exec(ctx *Context) error {
	return execNodes(p, ctx)
}

func execNodes(nodes []Node, ctx *Context) error {
	for _, n := range nodes {
		if err := n.exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Literal is a no-op statement, compiled in place of an empty branch
// body.
type Literal struct{}

func (Literal) exec(*Context) error { return nil }

// Probe is a single command invocation: Cmd names a registered
// function, ArgTemplates are the reference-expanded argument strings
// evaluated against the current Context before the call. Probe sets
// ctx.Result to the call's return value and appends an Invocation to
// ctx.InvocationLog.
type Probe struct {
	Cmd          string
	ArgTemplates []ArgTemplate
}

// ArgTemplate is one probe argument: a format string plus the ordered
// expression sources that fill it, mirroring reference.Template but
// evaluated through exprlang rather than plain Sprintf verbs so that
// $var references resolve against the live Context.
type ArgTemplate struct {
	Format string
	Refs   []string
}

func (p Probe) exec(ctx *Context) error {
	if !ctx.Functions.Has(p.Cmd) {
		return fmt.Errorf("probe %q: no such function registered", p.Cmd)
	}
	args := make([]string, len(p.ArgTemplates))
	env := ctx.env()
	for i, tpl := range p.ArgTemplates {
		values := make([]any, len(tpl.Refs))
		for j, ref := range tpl.Refs {
			v, err := exprlang.Eval(ref, env)
			if err != nil {
				return fmt.Errorf("probe %q: argument %d: %w", p.Cmd, i, err)
			}
			values[j] = v
		}
		args[i] = fmt.Sprintf(tpl.Format, values...)
	}

	ret, err := ctx.Functions.Call(p.Cmd, args)
	if err != nil {
		return fmt.Errorf("probe %q: %w", p.Cmd, err)
	}

	ctx.Result = wrapIfMap(ret)
	ctx.InvocationLog = append(ctx.InvocationLog, Invocation{
		Cmd:    append([]string{p.Cmd}, args...),
		Return: ctx.Result,
	})
	return nil
}

// ForeachSeq iterates ctx.Result as an ordered sequence (sorting it
// first if it was produced as an unordered probefn.Set), binding each
// element to Var for one run of Body.
type ForeachSeq struct {
	Var  string
	Body []Node
}

func (f ForeachSeq) exec(ctx *Context) error {
	items, err := toSortedSlice(ctx.Result)
	if err != nil {
		return fmt.Errorf("foreach %s: %w", f.Var, err)
	}
	for _, item := range items {
		restore := ctx.setVar(f.Var, wrapIfMap(item))
		err := execNodes(f.Body, ctx)
		restore()
		if err != nil {
			return err
		}
	}
	return nil
}

// ForeachMap iterates ctx.Result as a mapping, visiting keys in sorted
// order and binding KeyVar/ValVar to each pair for one run of Body.
type ForeachMap struct {
	KeyVar string
	ValVar string
	Body   []Node
}

func (f ForeachMap) exec(ctx *Context) error {
	pairs, err := toSortedPairs(ctx.Result)
	if err != nil {
		return fmt.Errorf("foreach %s, %s: %w", f.KeyVar, f.ValVar, err)
	}
	for _, kv := range pairs {
		restoreKey := ctx.setVar(f.KeyVar, kv.key)
		restoreVal := ctx.setVar(f.ValVar, wrapIfMap(kv.value))
		err := execNodes(f.Body, ctx)
		restoreVal()
		restoreKey()
		if err != nil {
			return err
		}
	}
	return nil
}

// Branch is one "if"/"elif" arm: Cond is restricted-expression source,
// Body runs when it evaluates true.
type Branch struct {
	Cond string
	Body []Node
}

// If is an if/elif/else chain. Branches are tried in order; the first
// one whose Cond evaluates true runs and short-circuits the rest. Else
// runs only when no Branch matched.
type If struct {
	Branches []Branch
	Else     []Node
}

func (f If) exec(ctx *Context) error {
	env := ctx.env()
	for _, b := range f.Branches {
		matched, err := exprlang.EvalBool(b.Cond, env)
		if err != nil {
			return fmt.Errorf("if %q: %w", b.Cond, err)
		}
		if matched {
			return execNodes(b.Body, ctx)
		}
	}
	return execNodes(f.Else, ctx)
}

// NewArgTemplate is the bridge from internal/reference's string-mode
// Template to plan's ArgTemplate, used by internal/compiler when
// lowering a probe invocation's argument list.
func NewArgTemplate(tpl *reference.Template) ArgTemplate {
	return ArgTemplate{Format: tpl.Format, Refs: tpl.Refs}
}
