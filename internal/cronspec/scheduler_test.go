package cronspec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalSchedulerDefault(t *testing.T) {
	sched := NewInterval(nil, DefaultInterval)
	now := time.Now()
	assert.Equal(t, 10*time.Second, sched.Next(now))
	assert.Equal(t, 10*time.Second, sched.Next(now.Add(time.Hour)))
}

func TestIntervalSchedulerEvery(t *testing.T) {
	sched := NewInterval(map[string]float64{"second": 3}, DefaultInterval)
	now := time.Now()
	assert.Equal(t, 3*time.Second, sched.Next(now))
	assert.Equal(t, 3*time.Second, sched.Next(now))
}

func TestCronSchedulerWeeklyBackup(t *testing.T) {
	sched, err := NewCron(map[string]string{
		"weekday": "sun",
		"hour":    "3",
		"minute":  "27",
	})
	require.NoError(t, err)

	// Monday 2024-01-01 00:00:00 UTC; the next Sunday is 2024-01-07.
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := sched.Next(now)
	want := 6*24*time.Hour + 3*time.Hour + 27*time.Minute
	assert.Equal(t, want, got)
}

func TestCronSchedulerRejectsEmptySpec(t *testing.T) {
	_, err := NewCron(map[string]string{})
	assert.Error(t, err)
}

func TestCronSchedulerRejectsMalformedCronlist(t *testing.T) {
	_, err := NewCron(map[string]string{"hour": "25"})
	assert.Error(t, err)

	_, err = NewCron(map[string]string{"month": "not-a-month"})
	assert.Error(t, err)

	_, err = NewCron(map[string]string{"day": "5-2"})
	assert.Error(t, err)
}

func TestCronSchedulerRangeWithStep(t *testing.T) {
	sched, err := NewCron(map[string]string{"minute": "0-30/10"})
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)
	got := sched.Next(now)
	assert.Equal(t, 5*time.Minute, got)
}

func TestCronSchedulerWildcardStep(t *testing.T) {
	sched, err := NewCron(map[string]string{"second": "*/15"})
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 0, 0, 7, 0, time.UTC)
	got := sched.Next(now)
	assert.Equal(t, 8*time.Second, got)
}

func TestCronSchedulerMonthName(t *testing.T) {
	sched, err := NewCron(map[string]string{"month": "feb", "day": "29"})
	require.NoError(t, err)
	now := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	got := sched.Next(now)
	next := now.Add(got)
	assert.Equal(t, time.February, next.Month())
	assert.Equal(t, 29, next.Day())
	assert.Equal(t, 2024, next.Year()) // 2023 isn't a leap year
}

func TestToSpecWeekday(t *testing.T) {
	assert.Equal(t, 1, toSpecWeekday(time.Monday))
	assert.Equal(t, 7, toSpecWeekday(time.Sunday))
	assert.Equal(t, 6, toSpecWeekday(time.Saturday))
}
