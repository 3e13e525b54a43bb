package compiler

import (
	"testing"
	"time"

	"github.com/opsloop/probed/internal/catalog"
	"github.com/opsloop/probed/internal/plan"
	"github.com/opsloop/probed/internal/probefn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() probefn.MapRegistry {
	noop := func([]string) (any, error) { return nil, nil }
	return probefn.MapRegistry{
		"test.ping":        noop,
		"status.diskusage": noop,
		"backup.backup":    noop,
		"alert.send":       noop,
	}
}

func TestCompileDefaultInterval(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
monitor:
  - run: test.ping
`))
	require.NoError(t, err)

	tasks, errs := Compile(cat.Entries, testRegistry(), 10*time.Second)
	assert.Empty(t, errs)
	require.Len(t, tasks, 1)
	assert.Equal(t, "monitor-1", tasks[0].TaskID)
	assert.Equal(t, 10*time.Second, tasks[0].Scheduler.Next(time.Now()))
}

func TestCompileUnknownCommandIsSkippedNotFatal(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
monitor:
  - run: test.ping
  - run: no.such.command
  - run: backup.backup
`))
	require.NoError(t, err)

	tasks, errs := Compile(cat.Entries, testRegistry(), 10*time.Second)
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].Position)
	require.Len(t, tasks, 2)
	assert.Equal(t, "monitor-1", tasks[0].TaskID)
	assert.Equal(t, "monitor-3", tasks[1].TaskID)
}

func TestCompileRejectsDuplicateIDs(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
monitor:
  - id: disk-check
    run: test.ping
  - id: disk-check
    run: backup.backup
`))
	require.NoError(t, err)

	tasks, errs := Compile(cat.Entries, testRegistry(), 10*time.Second)
	require.Len(t, tasks, 1)
	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].Position)
	assert.ErrorContains(t, errs[0], "duplicate task id")
}

func TestCompileForeachMapWithGuardedIf(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
monitor:
  - run: status.diskusage /
    foreach fs, stats:
      - if stats.available * 100 / stats.total > 90:
          - alert.send 'disk usage is above 90% on $fs'
`))
	require.NoError(t, err)

	tasks, errs := Compile(cat.Entries, testRegistry(), 10*time.Second)
	require.Empty(t, errs)
	require.Len(t, tasks, 1)
	require.Len(t, tasks[0].Plan, 2)

	loop, ok := tasks[0].Plan[1].(plan.ForeachMap)
	require.True(t, ok)
	assert.Equal(t, "fs", loop.KeyVar)
	assert.Equal(t, "stats", loop.ValVar)
	require.Len(t, loop.Body, 1)

	cond, ok := loop.Body[0].(plan.If)
	require.True(t, ok)
	require.Len(t, cond.Branches, 1)
	assert.Equal(t, "stats.available * 100 / stats.total > 90", cond.Branches[0].Cond)
}

func TestCompileIfElifElseChain(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
monitor:
  - run: test.ping
    if cond1:
      - alert.send msg1
    elif cond2:
      - alert.send msg2
    else:
      - alert.send msg3
`))
	require.NoError(t, err)

	tasks, errs := Compile(cat.Entries, testRegistry(), 10*time.Second)
	require.Empty(t, errs)
	require.Len(t, tasks, 1)
	require.Len(t, tasks[0].Plan, 2)

	cond, ok := tasks[0].Plan[1].(plan.If)
	require.True(t, ok)
	require.Len(t, cond.Branches, 2)
	assert.Equal(t, "cond1", cond.Branches[0].Cond)
	assert.Equal(t, "cond2", cond.Branches[1].Cond)
	require.Len(t, cond.Else, 1)
}

func TestCompileMissingRunIsSkipped(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
monitor:
  - run: ""
`))
	require.NoError(t, err)

	tasks, errs := Compile(cat.Entries, testRegistry(), 10*time.Second)
	assert.Empty(t, tasks)
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "missing run")
}

func TestSplitRunLinePreservesQuotedSpaces(t *testing.T) {
	tokens, err := splitRunLine(`alert.send 'disk usage is above 90% on $fs'`)
	require.NoError(t, err)
	assert.Equal(t, []string{"alert.send", "disk usage is above 90% on $fs"}, tokens)
}

func TestSplitRunLineRejectsUnterminatedQuote(t *testing.T) {
	_, err := splitRunLine(`echo 'unterminated`)
	assert.Error(t, err)
}
