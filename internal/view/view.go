// Package view turns query results into presentation rows. Nothing here is
// persisted; urgency is recomputed on every render.
package view

import (
	"time"

	"stm/internal/task"
)

// EmptyMessage is shown when no task survives the filters.
const EmptyMessage = "No tasks found. Add a new task or adjust your filters!"

// DueSoonDays is the inclusive day horizon for UrgencyDueSoon.
const DueSoonDays = 3

type Urgency int

const (
	UrgencyNormal Urgency = iota
	UrgencyDueSoon
	UrgencyOverdue
)

func (u Urgency) String() string {
	switch u {
	case UrgencyOverdue:
		return "overdue"
	case UrgencyDueSoon:
		return "due-soon"
	default:
		return ""
	}
}

// Classify compares calendar days in now's location: a deadline before today
// is overdue, today through DueSoonDays ahead is due soon.
func Classify(deadline *time.Time, now time.Time) Urgency {
	if deadline == nil {
		return UrgencyNormal
	}
	days := DaysBetween(now, *deadline)
	switch {
	case days < 0:
		return UrgencyOverdue
	case days <= DueSoonDays:
		return UrgencyDueSoon
	default:
		return UrgencyNormal
	}
}

// DaysBetween counts whole calendar days from a to b in a's location.
func DaysBetween(a, b time.Time) int {
	loc := a.Location()
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.In(loc).Date()
	start := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	end := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

type Row struct {
	ID           int64
	Title        string
	Priority     task.Priority
	Category     string
	Completed    bool
	HasDeadline  bool
	DeadlineText string
	Urgency      Urgency
	HasReminder  bool
}

// FormatDeadline renders a deadline like "Mar 5, 2026".
func FormatDeadline(d *time.Time) string {
	if d == nil {
		return "No deadline"
	}
	return d.Format("Jan 2, 2006")
}

func Rows(tasks []task.Task, now time.Time) []Row {
	rows := make([]Row, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, Row{
			ID:           t.ID,
			Title:        t.Title,
			Priority:     t.Priority,
			Category:     t.Category,
			Completed:    t.Completed,
			HasDeadline:  t.Deadline != nil,
			DeadlineText: FormatDeadline(t.Deadline),
			Urgency:      Classify(t.Deadline, now),
			HasReminder:  t.Reminder != nil,
		})
	}
	return rows
}
