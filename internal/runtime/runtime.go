// Package runtime implements the MonitorTask loop: execute a compiled
// plan repeatedly, wait on its scheduler, forward results to a
// collector.
package runtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/opsloop/probed/internal/collector"
	"github.com/opsloop/probed/internal/cronspec"
	"github.com/opsloop/probed/internal/logging"
	"github.com/opsloop/probed/internal/plan"
)

// MonitorTask is one compiled task bound to its runtime context and,
// optionally, a collector. Collector is nil when the daemon has no
// collector configured, in which case results are simply discarded
// after execution; only failures are logged.
type MonitorTask struct {
	TaskID    string
	Plan      plan.Program
	Scheduler cronspec.Scheduler
	Context   *plan.Context
	Collector collector.Collector
	Logger    *logging.Logger
}

// New builds a MonitorTask ready to Run.
func New(taskID string, program plan.Program, scheduler cronspec.Scheduler, taskCtx *plan.Context, coll collector.Collector, logger *logging.Logger) *MonitorTask {
	return &MonitorTask{
		TaskID:    taskID,
		Plan:      program,
		Scheduler: scheduler,
		Context:   taskCtx,
		Collector: coll,
		Logger:    logger,
	}
}

// Run loops forever: execute, collect, sleep until cancellation. The
// task's own iteration failures never terminate the loop; only ctx
// cancellation does.
func (t *MonitorTask) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		t.runIteration(ctx)

		d := t.Scheduler.Next(time.Now())
		if d < 0 {
			d = 0
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runIteration runs one (reset, exec, collect) cycle. Probe and
// collector errors are logged with the task id and never escape; a
// failed iteration never terminates the task.
func (t *MonitorTask) runIteration(ctx context.Context) {
	t.Context.Reset()
	iterationID := uuid.NewString()
	log := t.Logger.WithTask(t.TaskID)

	defer func() {
		if r := recover(); r != nil {
			log.Errorw("task iteration panicked", "iteration_id", iterationID, "panic", r)
		}
	}()

	if err := t.Plan.Exec(t.Context); err != nil {
		log.Errorw("probe execution failed", "iteration_id", iterationID, "error", err)
		return
	}

	if t.Collector == nil {
		return
	}

	lastCmd, lastResult := t.lastInvocation()
	if err := t.Collector.Collect(ctx, t.Context.HostID, lastCmd, lastResult); err != nil {
		log.Errorw("collector failed", "iteration_id", iterationID, "error", err)
	}
}

// lastInvocation returns the final cmd/result pair reached this
// iteration: only the last probe invocation reaches the collector,
// while the full log stays on Context for the rest of the iteration's
// conditions/foreach.
func (t *MonitorTask) lastInvocation() ([]string, any) {
	log := t.Context.InvocationLog
	if len(log) == 0 {
		return nil, t.Context.Result
	}
	last := log[len(log)-1]
	return last.Cmd, last.Return
}
