package task

import (
	"fmt"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities lists the valid priorities from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// Rank orders priorities High=3, Medium=2, Low=1; anything else ranks 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

func (p Priority) Valid() bool { return p.Rank() > 0 }

// ParsePriority accepts any letter case and surrounding whitespace.
func ParsePriority(v string) (Priority, error) {
	v = strings.TrimSpace(v)
	for _, p := range Priorities() {
		if strings.EqualFold(v, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q", v)
}

type Task struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Deadline      *time.Time `json:"deadline"`
	Priority      Priority   `json:"priority"`
	Category      string     `json:"category"`
	Reminder      *time.Time `json:"reminder"`
	ReminderShown bool       `json:"reminderShown"`
	Completed     bool       `json:"completed"`
	DateCreated   time.Time  `json:"dateCreated"`
}

// Fields are the user-supplied values for a new task.
type Fields struct {
	Title     string
	Deadline  *time.Time
	Priority  Priority
	Category  string
	Reminder  *time.Time
	Completed bool
}

// Patch describes a partial update. Nil fields are left untouched; the Clear
// flags remove an optional value.
type Patch struct {
	Title         *string
	Deadline      *time.Time
	ClearDeadline bool
	Priority      *Priority
	Category      *string
	Reminder      *time.Time
	ClearReminder bool
	Completed     *bool
}

func (p Patch) apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	switch {
	case p.ClearDeadline:
		t.Deadline = nil
	case p.Deadline != nil:
		d := *p.Deadline
		t.Deadline = &d
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	before := t.Reminder
	switch {
	case p.ClearReminder:
		t.Reminder = nil
	case p.Reminder != nil:
		r := *p.Reminder
		t.Reminder = &r
	}
	if !sameInstant(before, t.Reminder) {
		t.ReminderShown = false
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (t Task) clone() Task {
	if t.Deadline != nil {
		d := *t.Deadline
		t.Deadline = &d
	}
	if t.Reminder != nil {
		r := *t.Reminder
		t.Reminder = &r
	}
	return t
}

type Stats struct {
	Total               int
	Completed           int
	Pending             int
	HighPriorityPending int
}

func ComputeStats(tasks []Task) Stats {
	var s Stats
	s.Total = len(tasks)
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
			continue
		}
		if t.Priority == PriorityHigh {
			s.HighPriorityPending++
		}
	}
	s.Pending = s.Total - s.Completed
	return s
}
