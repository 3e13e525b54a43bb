package runtime

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opsloop/probed/internal/cronspec"
	"github.com/opsloop/probed/internal/logging"
	"github.com/opsloop/probed/internal/plan"
	"github.com/opsloop/probed/internal/probefn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCollector struct {
	calls     int32
	lastHost  string
	lastCmd   []string
	lastValue any
}

func (c *countingCollector) Collect(_ context.Context, hostID string, lastCommand []string, lastResult any) error {
	atomic.AddInt32(&c.calls, 1)
	c.lastHost = hostID
	c.lastCmd = lastCommand
	c.lastValue = lastResult
	return nil
}

func TestRunIterationInvokesPlanAndCollector(t *testing.T) {
	registry := probefn.MapRegistry{
		"test.ping": func([]string) (any, error) { return true, nil },
	}
	program := plan.Program{plan.Probe{Cmd: "test.ping"}}
	taskCtx := plan.NewContext(registry, "host-1")
	coll := &countingCollector{}

	task := New("t1", program, cronspec.NewInterval(nil, time.Second), taskCtx, coll, logging.New())
	task.runIteration(context.Background())

	assert.EqualValues(t, 1, coll.calls)
	assert.Equal(t, "host-1", coll.lastHost)
	assert.Equal(t, []string{"test.ping"}, coll.lastCmd)
	assert.Equal(t, true, coll.lastValue)
}

func TestRunIterationResetsResultsBetweenIterations(t *testing.T) {
	registry := probefn.MapRegistry{
		"test.ping": func([]string) (any, error) { return true, nil },
	}
	program := plan.Program{plan.Probe{Cmd: "test.ping"}}
	taskCtx := plan.NewContext(registry, "host-1")
	coll := &countingCollector{}
	task := New("t1", program, cronspec.NewInterval(nil, time.Second), taskCtx, coll, logging.New())

	task.runIteration(context.Background())
	require.Len(t, taskCtx.InvocationLog, 1)
	task.runIteration(context.Background())
	assert.Len(t, taskCtx.InvocationLog, 1, "InvocationLog must reset at the start of every iteration")
}

func TestRunIterationSurvivesProbeError(t *testing.T) {
	registry := probefn.MapRegistry{
		"test.fail": func([]string) (any, error) { return nil, assert.AnError },
	}
	program := plan.Program{plan.Probe{Cmd: "test.fail"}}
	taskCtx := plan.NewContext(registry, "host-1")
	coll := &countingCollector{}
	task := New("t1", program, cronspec.NewInterval(nil, time.Second), taskCtx, coll, logging.New())

	assert.NotPanics(t, func() { task.runIteration(context.Background()) })
	assert.EqualValues(t, 0, coll.calls, "collector must not run when plan execution failed")
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	registry := probefn.MapRegistry{
		"test.ping": func([]string) (any, error) { return true, nil },
	}
	program := plan.Program{plan.Probe{Cmd: "test.ping"}}
	taskCtx := plan.NewContext(registry, "host-1")
	coll := &countingCollector{}
	task := New("t1", program, cronspec.NewInterval(map[string]float64{"second": 0}, time.Second), taskCtx, coll, logging.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		task.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	assert.GreaterOrEqual(t, coll.calls, int32(1))
}
