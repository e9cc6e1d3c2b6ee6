package query

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"stm/internal/task"
)

// All disables the category or priority filter.
const All = "all"

type Filters struct {
	Category      string
	Priority      string
	ShowCompleted bool
}

// DefaultFilters shows everything.
func DefaultFilters() Filters {
	return Filters{Category: All, Priority: All, ShowCompleted: true}
}

func (f Filters) keep(t task.Task) bool {
	if f.Category != "" && f.Category != All && t.Category != f.Category {
		return false
	}
	if f.Priority != "" && f.Priority != All && string(t.Priority) != f.Priority {
		return false
	}
	if !f.ShowCompleted && t.Completed {
		return false
	}
	return true
}

type SortKey string

const (
	SortDeadline    SortKey = "deadline"
	SortPriority    SortKey = "priority"
	SortDateCreated SortKey = "dateCreated"
	SortTitle       SortKey = "title"
)

func SortKeys() []SortKey {
	return []SortKey{SortDeadline, SortPriority, SortDateCreated, SortTitle}
}

// ParseSortKey matches case-insensitively; ok is false for unknown keys.
func ParseSortKey(v string) (SortKey, bool) {
	v = strings.TrimSpace(v)
	for _, k := range SortKeys() {
		if strings.EqualFold(v, string(k)) {
			return k, true
		}
	}
	return SortKey(v), false
}

// Next cycles through SortKeys.
func (k SortKey) Next() SortKey {
	keys := SortKeys()
	i := slices.Index(keys, k)
	return keys[(i+1)%len(keys)]
}

// Apply filters and orders a copy of tasks; the input is never modified.
// Unknown sort keys keep the filtered tasks in input order.
func Apply(tasks []task.Task, f Filters, key SortKey) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.keep(t) {
			out = append(out, t)
		}
	}

	switch key {
	case SortDeadline:
		slices.SortStableFunc(out, byDeadline)
	case SortPriority:
		slices.SortStableFunc(out, func(a, b task.Task) int {
			return b.Priority.Rank() - a.Priority.Rank()
		})
	case SortDateCreated:
		slices.SortStableFunc(out, func(a, b task.Task) int {
			return b.DateCreated.Compare(a.DateCreated)
		})
	case SortTitle:
		col := collate.New(language.English)
		slices.SortStableFunc(out, func(a, b task.Task) int {
			return col.CompareString(a.Title, b.Title)
		})
	}
	return out
}

func byDeadline(a, b task.Task) int {
	switch {
	case a.Deadline == nil && b.Deadline == nil:
		return 0
	case a.Deadline == nil:
		return 1
	case b.Deadline == nil:
		return -1
	}
	return a.Deadline.Compare(*b.Deadline)
}

// Cycle returns the option after current in opts, with All in front.
func Cycle(current string, opts []string) string {
	all := append([]string{All}, opts...)
	i := slices.Index(all, current)
	return all[(i+1)%len(all)]
}
