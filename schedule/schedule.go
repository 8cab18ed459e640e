// Package schedule converts platform cron specifications into crontab
// expressions and computes their fire-time windows.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"

	"heimdall/model"
)

// Platform day-of-week numbering starts the week on Monday (0), crontab on
// Sunday (0).
var dayOfWeekRemap = map[int]int{
	0: 1,
	1: 2,
	2: 3,
	3: 4,
	4: 5,
	5: 6,
	6: 0,
}

// Crontab renders a ScheduleSpec as a 7-field crontab expression:
// "second minute hour day month day-of-week year". Absent fields default to
// "*"; integer day-of-week values are remapped to crontab numbering.
func Crontab(spec model.ScheduleSpec) string {
	fields := []string{
		field(spec.Second),
		field(spec.Minute),
		field(spec.Hour),
		field(spec.Day),
		field(spec.Month),
		dayOfWeek(spec.DayOfWeek),
		field(spec.Year),
	}
	return strings.Join(fields, " ")
}

func field(v any) string {
	switch n := v.(type) {
	case nil:
		return "*"
	case string:
		if n == "" {
			return "*"
		}
		return n
	case int:
		return fmt.Sprintf("%d", n)
	case float64:
		// JSON numbers decode as float64.
		return fmt.Sprintf("%d", int(n))
	}
	return fmt.Sprintf("%v", v)
}

func dayOfWeek(v any) string {
	day := -1
	switch n := v.(type) {
	case int:
		day = n
	case float64:
		day = int(n)
	}
	if mapped, ok := dayOfWeekRemap[day]; ok {
		return fmt.Sprintf("%d", mapped)
	}
	return field(v)
}

// Window is the half-open interval between a schedule's previous and next
// fire instants around a reference time.
type Window struct {
	Previous time.Time
	Next     time.Time
}

// Period returns the distance between the two fire instants.
func (w Window) Period() time.Duration {
	return w.Next.Sub(w.Previous)
}

// LowBuffer extends the window backwards by one schedule period to absorb
// slightly-early firings and near-boundary races.
func (w Window) LowBuffer() time.Time {
	return w.Previous.Add(-w.Period())
}

// Contains reports whether t falls inside [LowBuffer, Next], both inclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.LowBuffer()) && !t.After(w.Next)
}

// Compute returns the previous and next fire times of expr around ref, both
// UTC. A reference time that is itself an exact fire instant is returned as
// Previous. Expressions with no reachable occurrence (for example an
// impossible day/month combination) return an error; callers treat that as a
// rule configuration problem, not as "did not run".
func Compute(expr string, ref time.Time) (Window, error) {
	ref = ref.UTC()

	prev, err := gronx.PrevTickBefore(expr, ref, true)
	if err != nil {
		return Window{}, fmt.Errorf("schedule %q: %w", expr, err)
	}
	next, err := gronx.NextTickAfter(expr, ref, false)
	if err != nil {
		return Window{}, fmt.Errorf("schedule %q: %w", expr, err)
	}
	return Window{Previous: prev.UTC(), Next: next.UTC()}, nil
}
