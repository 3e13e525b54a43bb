// Package cronspec turns a monitor catalog entry's timing clause into
// an unbounded Iterator<Duration>, built from either an "every"
// interval spec or an "at" cron spec.
package cronspec

import (
	"fmt"
	"time"
)

// DefaultInterval is used when a catalog entry has neither "every" nor
// "at".
const DefaultInterval = 10 * time.Second

// Scheduler yields the next sleep duration given the current wall-clock
// time. Interval schedulers ignore now; cron schedulers use it to find
// the next strictly-later matching occurrence.
type Scheduler interface {
	Next(now time.Time) time.Duration
}

// SchedulerError indicates the scheduler could not produce a next
// duration. Compile-time validation should make this unreachable; it
// exists so the runtime can fail a single task rather than panic.
type SchedulerError struct {
	TaskID string
	Err    error
}

func (e *SchedulerError) Error() string {
	return fmt.Sprintf("scheduler error for task %s: %v", e.TaskID, e.Err)
}

func (e *SchedulerError) Unwrap() error { return e.Err }

// intervalScheduler emits a fixed duration on every call.
type intervalScheduler struct {
	duration time.Duration
}

func (s intervalScheduler) Next(time.Time) time.Duration {
	return s.duration
}

// NewInterval builds the interval-mode scheduler from a field->number
// map over {day, hour, minute, second}. An empty spec falls back to
// fallback (the daemon's configured default interval).
func NewInterval(spec map[string]float64, fallback time.Duration) Scheduler {
	if len(spec) == 0 {
		return intervalScheduler{duration: fallback}
	}
	var total time.Duration
	total += time.Duration(spec["day"] * float64(24*time.Hour))
	total += time.Duration(spec["hour"] * float64(time.Hour))
	total += time.Duration(spec["minute"] * float64(time.Minute))
	total += time.Duration(spec["second"] * float64(time.Second))
	if total < 0 {
		total = 0
	}
	return intervalScheduler{duration: total}
}

// cronScheduler finds the next wall-clock occurrence matching a set of
// cronlists, one per field.
type cronScheduler struct {
	month, day, weekday, hour, minute, second fieldSet
}

// NewCron builds the cron-mode scheduler from a field->cronlist map
// over {month, day, weekday, hour, minute, second}. Missing fields mean
// "any". An entirely empty spec is rejected.
func NewCron(spec map[string]string) (Scheduler, error) {
	if len(spec) == 0 {
		return nil, fmt.Errorf("cron spec must have at least one field")
	}
	s := &cronScheduler{}
	var err error
	if v, ok := spec["month"]; ok {
		if s.month, err = parseCronlist(v, monthBounds); err != nil {
			return nil, fmt.Errorf("month: %w", err)
		}
	}
	if v, ok := spec["day"]; ok {
		if s.day, err = parseCronlist(v, dayBounds); err != nil {
			return nil, fmt.Errorf("day: %w", err)
		}
	}
	if v, ok := spec["weekday"]; ok {
		if s.weekday, err = parseCronlist(v, weekdayBounds); err != nil {
			return nil, fmt.Errorf("weekday: %w", err)
		}
	}
	if v, ok := spec["hour"]; ok {
		if s.hour, err = parseCronlist(v, hourBounds); err != nil {
			return nil, fmt.Errorf("hour: %w", err)
		}
	}
	if v, ok := spec["minute"]; ok {
		if s.minute, err = parseCronlist(v, minuteBounds); err != nil {
			return nil, fmt.Errorf("minute: %w", err)
		}
	}
	if v, ok := spec["second"]; ok {
		if s.second, err = parseCronlist(v, secondBounds); err != nil {
			return nil, fmt.Errorf("second: %w", err)
		}
	}
	return s, nil
}

// maxIterations bounds the search loop; each iteration advances the
// candidate time by at least the finest unmatched field, so in
// practice this converges in well under a thousand steps even for
// narrow specs (e.g. "Feb 29").
const maxIterations = 200000

// Next finds the minimum time strictly greater than now that matches
// every field, applying a most-specific-increments-first tie-break:
// second, minute, hour, day∧weekday, month.
func (s *cronScheduler) Next(now time.Time) time.Duration {
	loc := now.Location()
	t := now.Truncate(time.Second).Add(time.Second)

	for i := 0; i < maxIterations; i++ {
		if !s.month.contains(int(t.Month())) {
			t = firstOfNextMonth(t, loc)
			continue
		}
		if !s.dayMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
			continue
		}
		if !s.hour.contains(t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, loc)
			continue
		}
		if !s.minute.contains(t.Minute()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()+1, 0, 0, loc)
			continue
		}
		if !s.second.contains(t.Second()) {
			t = t.Add(time.Second)
			continue
		}
		return t.Sub(now)
	}
	return 0
}

func firstOfNextMonth(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, loc)
}

// dayMatches ANDs the day-of-month and weekday fields: both must
// match.
func (s *cronScheduler) dayMatches(t time.Time) bool {
	if !s.day.contains(t.Day()) {
		return false
	}
	return s.weekday.contains(toSpecWeekday(t.Weekday()))
}

// toSpecWeekday converts Go's Sunday=0 convention to the spec's
// Monday=1..Sunday=7 convention.
func toSpecWeekday(wd time.Weekday) int {
	return (int(wd)+6)%7 + 1
}
