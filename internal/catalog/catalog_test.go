package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaultInterval(t *testing.T) {
	cat, err := Parse([]byte(`
monitor:
  - run: test.ping
`))
	require.NoError(t, err)
	require.Len(t, cat.Entries, 1)
	assert.Equal(t, "test.ping", cat.Entries[0].Run)
	assert.Nil(t, cat.Entries[0].Every)
	assert.Nil(t, cat.Entries[0].At)
}

func TestParseEveryClause(t *testing.T) {
	cat, err := Parse([]byte(`
monitor:
  - run: test.ping
    every:
      second: 3
`))
	require.NoError(t, err)
	require.Len(t, cat.Entries, 1)
	assert.Equal(t, map[string]float64{"second": 3}, cat.Entries[0].Every)
}

func TestParseCronClause(t *testing.T) {
	cat, err := Parse([]byte(`
monitor:
  - run: backup.backup
    at:
      weekday: sun
      hour: "3"
      minute: "27"
`))
	require.NoError(t, err)
	require.Len(t, cat.Entries, 1)
	assert.Equal(t, "sun", cat.Entries[0].At["weekday"])
	assert.Equal(t, "3", cat.Entries[0].At["hour"])
}

func TestParseForeachMapClause(t *testing.T) {
	cat, err := Parse([]byte(`
monitor:
  - run: status.diskusage /
    foreach fs, stats:
      - if stats.available * 100 / stats.total > 90:
          - alert.send 'disk usage is above 90% on $fs'
`))
	require.NoError(t, err)
	require.Len(t, cat.Entries, 1)
	require.Len(t, cat.Entries[0].Clauses, 1)

	clause := cat.Entries[0].Clauses[0]
	assert.Equal(t, "foreach fs, stats", clause.Key)
	require.Len(t, clause.Body, 1)

	nested := clause.Body[0].Clause
	require.NotNil(t, nested)
	assert.Equal(t, "if stats.available * 100 / stats.total > 90", nested.Key)
	require.Len(t, nested.Body, 1)
	assert.Equal(t, `alert.send 'disk usage is above 90% on $fs'`, nested.Body[0].Run)
}

func TestParseIgnoresUnknownTopLevelKeys(t *testing.T) {
	cat, err := Parse([]byte(`
monitor:
  - run: test.ping
    description: not a recognized field
`))
	require.NoError(t, err)
	require.Len(t, cat.Entries, 1)
	assert.Empty(t, cat.Entries[0].Clauses)
}

func TestParseEmptyMonitorKey(t *testing.T) {
	cat, err := Parse([]byte(`other: value`))
	require.NoError(t, err)
	assert.Empty(t, cat.Entries)
}
