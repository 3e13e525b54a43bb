// Package compiler lowers one catalog.CatalogEntry into a
// compiler.CompiledTask. It only lowers; the resulting plan.Program is
// walked by internal/runtime, not here.
package compiler

import (
	"fmt"
	"strings"
	"time"

	"github.com/opsloop/probed/internal/catalog"
	"github.com/opsloop/probed/internal/cronspec"
	"github.com/opsloop/probed/internal/plan"
	"github.com/opsloop/probed/internal/probefn"
	"github.com/opsloop/probed/internal/reference"
)

// CompiledTask is the immutable (taskId, plan, scheduler) triple a
// compiled catalog entry reduces to.
type CompiledTask struct {
	TaskID    string
	Plan      plan.Program
	Scheduler cronspec.Scheduler
}

// CompileError names the 1-based position of the offending catalog
// entry and its run text so the supervisor can log precisely which
// entry was skipped.
type CompileError struct {
	Position int
	Run      string
	Err      error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("catalog entry %d (run=%q): %v", e.Position, e.Run, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Compile lowers every entry independently. A failing entry produces a
// CompileError and is skipped; the rest of the catalog still compiles
// (a compile-time error aborts only that entry). Duplicate task ids
// are rejected for the second and later entry that uses them, rather
// than silently accepted or suffixed.
func Compile(entries []catalog.CatalogEntry, functions probefn.Registry, fallbackInterval time.Duration) ([]CompiledTask, []*CompileError) {
	var tasks []CompiledTask
	var errs []*CompileError
	seen := make(map[string]bool, len(entries))

	for i, entry := range entries {
		pos := i + 1
		id := entry.ID
		if id == "" {
			id = fmt.Sprintf("monitor-%d", pos)
		}
		if seen[id] {
			errs = append(errs, &CompileError{Position: pos, Run: entry.Run, Err: fmt.Errorf("duplicate task id %q", id)})
			continue
		}

		task, err := compileEntry(id, entry, functions, fallbackInterval)
		if err != nil {
			errs = append(errs, &CompileError{Position: pos, Run: entry.Run, Err: err})
			continue
		}
		seen[id] = true
		tasks = append(tasks, task)
	}
	return tasks, errs
}

func compileEntry(id string, entry catalog.CatalogEntry, functions probefn.Registry, fallback time.Duration) (CompiledTask, error) {
	if strings.TrimSpace(entry.Run) == "" {
		return CompiledTask{}, fmt.Errorf("missing run")
	}

	probeNode, err := lowerProbeLine(entry.Run, functions)
	if err != nil {
		return CompiledTask{}, err
	}

	clauseStmts := make([]catalog.RawStatement, len(entry.Clauses))
	for i := range entry.Clauses {
		clause := entry.Clauses[i]
		clauseStmts[i] = catalog.RawStatement{Clause: &clause}
	}
	clauseNodes, err := lowerStatements(clauseStmts, functions)
	if err != nil {
		return CompiledTask{}, err
	}

	program := make(plan.Program, 0, 1+len(clauseNodes))
	program = append(program, probeNode)
	program = append(program, clauseNodes...)

	sched, err := buildScheduler(entry, fallback)
	if err != nil {
		return CompiledTask{}, err
	}

	return CompiledTask{TaskID: id, Plan: program, Scheduler: sched}, nil
}

func buildScheduler(entry catalog.CatalogEntry, fallback time.Duration) (cronspec.Scheduler, error) {
	if entry.At != nil {
		return cronspec.NewCron(entry.At)
	}
	return cronspec.NewInterval(entry.Every, fallback), nil
}

// lowerProbeLine lexes and lowers one "run" command line into a
// plan.Probe.
func lowerProbeLine(line string, functions probefn.Registry) (plan.Probe, error) {
	tokens, err := splitRunLine(line)
	if err != nil {
		return plan.Probe{}, fmt.Errorf("run %q: %w", line, err)
	}
	if len(tokens) == 0 {
		return plan.Probe{}, fmt.Errorf("run %q: empty command", line)
	}
	cmd := tokens[0]
	if !functions.Has(cmd) {
		return plan.Probe{}, fmt.Errorf("run %q: unknown command %q", line, cmd)
	}

	args := make([]plan.ArgTemplate, len(tokens)-1)
	for i, tok := range tokens[1:] {
		tpl, err := reference.Expand(tok)
		if err != nil {
			return plan.Probe{}, fmt.Errorf("run %q: argument %d: %w", line, i, err)
		}
		args[i] = plan.NewArgTemplate(tpl)
	}
	return plan.Probe{Cmd: cmd, ArgTemplates: args}, nil
}

// lowerStatements lowers an ordered statement list into plan nodes,
// grouping consecutive if/elif/else clauses into a single plan.If.
func lowerStatements(stmts []catalog.RawStatement, functions probefn.Registry) ([]plan.Node, error) {
	var nodes []plan.Node
	i := 0
	for i < len(stmts) {
		st := stmts[i]
		if st.Clause == nil {
			node, err := lowerProbeLine(st.Run, functions)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
			i++
			continue
		}

		key := st.Clause.Key
		switch {
		case strings.HasPrefix(key, "foreach "):
			node, err := lowerForeach(st.Clause, functions)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
			i++

		case strings.HasPrefix(key, "if "):
			node, next, err := lowerIfChain(stmts, i, functions)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
			i = next

		case strings.HasPrefix(key, "elif ") || key == "else":
			return nil, fmt.Errorf("%q without a preceding if", key)

		default:
			return nil, fmt.Errorf("unrecognized control clause %q", key)
		}
	}
	return nodes, nil
}

// lowerForeach lowers one "foreach <v>:" or "foreach <k>, <v>:" clause.
func lowerForeach(clause *catalog.RawClause, functions probefn.Registry) (plan.Node, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(clause.Key, "foreach "))
	var vars []string
	for _, v := range strings.Split(rest, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			vars = append(vars, v)
		}
	}

	body, err := lowerStatements(clause.Body, functions)
	if err != nil {
		return nil, err
	}
	body = withPlaceholder(body)

	switch len(vars) {
	case 1:
		return plan.ForeachSeq{Var: vars[0], Body: body}, nil
	case 2:
		return plan.ForeachMap{KeyVar: vars[0], ValVar: vars[1], Body: body}, nil
	default:
		return nil, fmt.Errorf("%q: expected 1 or 2 identifiers, got %d", clause.Key, len(vars))
	}
}

// lowerIfChain lowers the run of if/elif/else statements starting at
// stmts[start] (which must be an "if "). It returns the built plan.If
// and the index of the first statement not consumed by the chain.
func lowerIfChain(stmts []catalog.RawStatement, start int, functions probefn.Registry) (plan.Node, int, error) {
	ifClause := stmts[start].Clause
	cond := reference.ExpandExpression(strings.TrimSpace(strings.TrimPrefix(ifClause.Key, "if ")))
	body, err := lowerStatements(ifClause.Body, functions)
	if err != nil {
		return nil, 0, err
	}
	branches := []plan.Branch{{Cond: cond, Body: withPlaceholder(body)}}
	elseBody := withPlaceholder(nil)

	i := start + 1
	for i < len(stmts) && stmts[i].Clause != nil && strings.HasPrefix(stmts[i].Clause.Key, "elif ") {
		clause := stmts[i].Clause
		cond := reference.ExpandExpression(strings.TrimSpace(strings.TrimPrefix(clause.Key, "elif ")))
		body, err := lowerStatements(clause.Body, functions)
		if err != nil {
			return nil, 0, err
		}
		branches = append(branches, plan.Branch{Cond: cond, Body: withPlaceholder(body)})
		i++
	}
	if i < len(stmts) && stmts[i].Clause != nil && stmts[i].Clause.Key == "else" {
		body, err := lowerStatements(stmts[i].Clause.Body, functions)
		if err != nil {
			return nil, 0, err
		}
		elseBody = withPlaceholder(body)
		i++
	}
	return plan.If{Branches: branches, Else: elseBody}, i, nil
}

// withPlaceholder replaces an empty statement list with a single
// plan.Literal, so every branch body has at least one node to exec.
func withPlaceholder(nodes []plan.Node) []plan.Node {
	if len(nodes) == 0 {
		return []plan.Node{plan.Literal{}}
	}
	return nodes
}
