package task

import "time"

// Recurrence describes how a task repeats after completion.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

// Valid reports whether r is a known recurrence value.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	default:
		return false
	}
}

// IsRecurring reports whether the task rolls forward on completion.
func (t *Task) IsRecurring() bool {
	return t.Recurrence != "" && t.Recurrence != RecurrenceNone
}

// NextDueDate advances a due date by one recurrence interval. Monthly and
// yearly use calendar arithmetic, so Jan 31 + monthly normalizes per
// time.AddDate. Returns nil when the date or the recurrence is absent.
func NextDueDate(due *time.Time, r Recurrence) *time.Time {
	if due == nil || r == "" || r == RecurrenceNone {
		return nil
	}

	var next time.Time
	switch r {
	case RecurrenceDaily:
		next = due.AddDate(0, 0, 1)
	case RecurrenceWeekly:
		next = due.AddDate(0, 0, 7)
	case RecurrenceMonthly:
		next = due.AddDate(0, 1, 0)
	case RecurrenceYearly:
		next = due.AddDate(1, 0, 0)
	default:
		return nil
	}

	return &next
}
