package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stm/internal/task"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"

	DefaultCategory = "Personal"
)

var (
	ErrEmptyTitle      = errors.New("task title is empty")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrTaskGone        = errors.New("task no longer exists")
)

// Values are the raw form fields as typed by the user.
type Values struct {
	Title    string
	Deadline string
	Priority string
	Category string
	Reminder string
}

func Defaults() Values {
	return Values{Priority: string(task.PriorityMedium), Category: DefaultCategory}
}

// Mutator is the subset of the task store the form writes through.
type Mutator interface {
	Get(id int64) (task.Task, bool)
	Create(ctx context.Context, f task.Fields) (task.Task, error)
	Update(ctx context.Context, id int64, p task.Patch) (bool, error)
}

// Controller backs the single add/edit form. When editing is nil a submit
// creates a task; otherwise it updates the task with that id.
type Controller struct {
	store   Mutator
	loc     *time.Location
	values  Values
	editing *int64
}

func New(store Mutator, loc *time.Location) *Controller {
	if loc == nil {
		loc = time.Local
	}
	return &Controller{store: store, loc: loc, values: Defaults()}
}

func (c *Controller) Values() Values { return c.values }

func (c *Controller) SetValues(v Values) { c.values = v }

// Editing returns the id being edited, if any.
func (c *Controller) Editing() (int64, bool) {
	if c.editing == nil {
		return 0, false
	}
	return *c.editing, true
}

// Edit loads the task into the form. It reports false for unknown ids.
func (c *Controller) Edit(id int64) bool {
	t, ok := c.store.Get(id)
	if !ok {
		return false
	}
	c.values = Values{
		Title:    t.Title,
		Deadline: formatTime(t.Deadline, c.loc, DateLayout),
		Priority: string(t.Priority),
		Category: t.Category,
		Reminder: formatTime(t.Reminder, c.loc, DateTimeLayout),
	}
	c.editing = &id
	return true
}

func (c *Controller) Cancel() { c.Reset() }

func (c *Controller) Reset() {
	c.values = Defaults()
	c.editing = nil
}

// Submit validates the form and routes it to create or update. Validation
// failures leave both the store and the form untouched. A persist error is
// returned after the form has been reset, since the mutation already took
// effect in memory.
func (c *Controller) Submit(ctx context.Context) (task.Task, error) {
	title := strings.TrimSpace(c.values.Title)
	if title == "" {
		return task.Task{}, ErrEmptyTitle
	}
	deadline, err := parseTime(c.values.Deadline, c.loc, DateLayout)
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: deadline %q", ErrInvalidDate, c.values.Deadline)
	}
	reminder, err := parseTime(c.values.Reminder, c.loc, DateTimeLayout, "2006-01-02T15:04")
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: reminder %q", ErrInvalidDate, c.values.Reminder)
	}
	priority, err := task.ParsePriority(c.values.Priority)
	if err != nil {
		return task.Task{}, fmt.Errorf("%w: %q", ErrInvalidPriority, c.values.Priority)
	}
	category := strings.TrimSpace(c.values.Category)
	if category == "" {
		category = DefaultCategory
	}

	if c.editing == nil {
		created, err := c.store.Create(ctx, task.Fields{
			Title:    title,
			Deadline: deadline,
			Priority: priority,
			Category: category,
			Reminder: reminder,
		})
		c.Reset()
		return created, err
	}

	id := *c.editing
	patch := task.Patch{
		Title:         &title,
		Deadline:      deadline,
		ClearDeadline: deadline == nil,
		Priority:      &priority,
		Category:      &category,
		Reminder:      reminder,
		ClearReminder: reminder == nil,
	}
	found, err := c.store.Update(ctx, id, patch)
	c.Reset()
	if !found {
		return task.Task{}, fmt.Errorf("%w: id %d", ErrTaskGone, id)
	}
	updated, _ := c.store.Get(id)
	return updated, err
}

func parseTime(v string, loc *time.Location, layouts ...string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, v, loc)
		if err == nil {
			return &t, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func formatTime(t *time.Time, loc *time.Location, layout string) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(layout)
}
