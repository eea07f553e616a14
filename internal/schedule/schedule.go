// Package schedule holds the date math shared by the server's completion
// guard and the client's status display, so the two can never disagree.
package schedule

import (
	"fmt"
	"math"
	"time"

	"taskplanner/internal/domain/models"
)

// StartOfDay returns t with the clock zeroed, in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable millisecond of t's calendar day.
// The completion guard compares due dates against this boundary: a task due
// any time today is still completable, tomorrow is not.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DaysUntilDue computes the whole-day difference between the due date and
// now, both taken at midnight, rounding partial days up. Zero means due
// today, negative means overdue.
func DaysUntilDue(dueDate, now time.Time) int {
	diff := StartOfDay(dueDate).Sub(StartOfDay(now))
	return int(math.Ceil(diff.Hours() / 24))
}

// CanComplete reports whether a task with the given due date may transition
// to completed at time now, per the rule that future-dated tasks cannot be
// marked done.
func CanComplete(dueDate, now time.Time) bool {
	return !dueDate.After(EndOfDay(now))
}

// Status is the derived display state of a task.
type Status struct {
	Label         string
	DaysDiff      int
	Overdue       bool
	HighlyOverdue bool
	// CanMarkCompleted mirrors the server-side completion guard: true only
	// for pending tasks whose due date is today or earlier.
	CanMarkCompleted bool
}

const highlyOverdueDays = 5

// Derive computes the display status for a task at time now.
func Derive(task models.Task, now time.Time) Status {
	diff := DaysUntilDue(task.DueDate, now)
	st := Status{DaysDiff: diff}

	switch {
	case task.Status == models.StatusCompleted:
		st.Label = "Completed"
	case diff == 0:
		st.Label = "Due today"
	case diff > 0:
		st.Label = fmt.Sprintf("Due in %d %s", diff, pluralDays(diff))
	default:
		overdueBy := -diff
		st.Label = fmt.Sprintf("Overdue by %d %s", overdueBy, pluralDays(overdueBy))
		st.Overdue = true
		st.HighlyOverdue = overdueBy > highlyOverdueDays
	}

	st.CanMarkCompleted = task.Status == models.StatusPending && diff <= 0
	return st
}

func pluralDays(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}
