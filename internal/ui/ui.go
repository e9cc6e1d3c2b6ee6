package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"stm/internal/app"
	"stm/internal/config"
	"stm/internal/form"
	"stm/internal/query"
	"stm/internal/task"
	"stm/internal/theme"
)

type mode int

const (
	modeList mode = iota
	modeForm
)

// AlertQueue collects blocking alerts raised by the notifier until the
// model shows them.
type AlertQueue struct {
	mu   sync.Mutex
	msgs []string
}

func (q *AlertQueue) Alert(message string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, message)
}

func (q *AlertQueue) drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.msgs
	q.msgs = nil
	return out
}

type tickMsg struct{}

type Model struct {
	ctx        context.Context
	app        *app.App
	cfg        config.Config
	filters    query.Filters
	sort       query.SortKey
	visible    []task.Task
	cursor     int
	mode       mode
	field      int
	inputs     []textinput.Model
	status     string
	confirmDel bool
	pendingDel *task.Task
	alerts     *AlertQueue
	alert      string
	theme      theme.Theme
	styles     theme.Styles
}

func Run(ctx context.Context, a *app.App, alerts *AlertQueue) error {
	program := tea.NewProgram(New(ctx, a, alerts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func New(ctx context.Context, a *app.App, alerts *AlertQueue) Model {
	if alerts == nil {
		alerts = &AlertQueue{}
	}
	cfg := a.Config
	sortKey, _ := query.ParseSortKey(cfg.View.Sort)
	th := theme.Preferred(ctx, a.Backend, cfg.View.Theme)

	m := Model{
		ctx: ctx,
		app: a,
		cfg: cfg,
		filters: query.Filters{
			Category:      cfg.View.Category,
			Priority:      cfg.View.Priority,
			ShowCompleted: cfg.View.ShowCompleted,
		},
		sort:   sortKey,
		inputs: newInputs(),
		status: fmt.Sprintf("Press '%s' to add, space to toggle, '%s' to delete.", cfg.Keys.Add, cfg.Keys.Delete),
		mode:   modeList,
		alerts: alerts,
		theme:  th,
		styles: theme.StylesFor(th),
	}
	m.refresh()
	return m
}

func newInputs() []textinput.Model {
	placeholders := formFields()
	inputs := make([]textinput.Model, len(placeholders))
	for i, p := range placeholders {
		ti := textinput.New()
		ti.Placeholder = p
		ti.CharLimit = 256
		ti.Width = 40
		inputs[i] = ti
	}
	return inputs
}

func formFields() []string {
	return []string{"title", "deadline (YYYY-MM-DD)", "priority (Low/Medium/High)", "category", "reminder (YYYY-MM-DD HH:MM)"}
}

func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return tickMsg{} }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m.pollReminders()
	case tea.KeyMsg:
		if m.alert != "" {
			m.alert = ""
			m.status = "Reminder dismissed"
			return m, nil
		}
		if m.mode == modeForm {
			return m.updateFormMode(msg.String(), msg)
		}
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		return m.updateListMode(msg.String())
	case tea.WindowSizeMsg:
		for i := range m.inputs {
			m.inputs[i].Width = msg.Width - 10
		}
	}
	return m, nil
}

func (m Model) pollReminders() (tea.Model, tea.Cmd) {
	fired, err := m.app.Poller.Poll(m.ctx)
	if err != nil {
		m.status = fmt.Sprintf("reminder save failed: %v", err)
	} else if len(fired) > 0 {
		m.status = fmt.Sprintf("Reminder: %s", fired[len(fired)-1].Title)
	}
	if alerts := m.alerts.drain(); len(alerts) > 0 {
		m.alert = strings.Join(alerts, "\n\n")
	}
	m.refresh()
	return m, tea.Tick(m.app.Poller.Interval(), func(time.Time) tea.Msg { return tickMsg{} })
}

// refresh recomputes the visible rows from the store.
func (m *Model) refresh() {
	m.visible = query.Apply(m.app.Store.Tasks(), m.filters, m.sort)
	m.cursor = clampCursor(m.cursor, len(m.visible))
}

func (m Model) selected() (task.Task, bool) {
	if len(m.visible) == 0 {
		return task.Task{}, false
	}
	return m.visible[clampCursor(m.cursor, len(m.visible))], true
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch key {
	case "ctrl+c", k.Quit:
		return m, tea.Quit
	case k.Down, "down":
		if len(m.visible) == 0 {
			return m, nil
		}
		m.cursor = clampCursor(m.cursor+1, len(m.visible))
	case k.Up, "up":
		if m.cursor > 0 {
			m.cursor = clampCursor(m.cursor-1, len(m.visible))
		}
	case k.Add:
		m.app.Form.Reset()
		return m.openForm("Add task: enter to advance, esc to cancel")
	case k.Edit:
		t, ok := m.selected()
		if !ok {
			m.status = "No tasks to edit"
			return m, nil
		}
		if !m.app.Form.Edit(t.ID) {
			m.status = "Task no longer exists"
			m.refresh()
			return m, nil
		}
		return m.openForm(fmt.Sprintf("Editing \"%s\": enter to advance, esc to cancel", t.Title))
	case k.Toggle:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		if _, err := m.app.Store.ToggleComplete(m.ctx, t.ID); err != nil {
			m.status = fmt.Sprintf("toggle failed: %v", err)
		} else {
			m.status = "Toggled task"
		}
		m.refresh()
	case k.Delete:
		t, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.confirmDel = true
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", t.Title)
	case k.FilterCategory:
		m.filters.Category = query.Cycle(m.filters.Category, m.cfg.Categories)
		m.status = "Category: " + m.filters.Category
		m.refresh()
	case k.FilterPriority:
		m.filters.Priority = query.Cycle(m.filters.Priority, []string{"High", "Medium", "Low"})
		m.status = "Priority: " + m.filters.Priority
		m.refresh()
	case k.ToggleCompleted:
		m.filters.ShowCompleted = !m.filters.ShowCompleted
		m.status = fmt.Sprintf("Show completed: %t", m.filters.ShowCompleted)
		m.refresh()
	case k.Sort:
		m.sort = m.sort.Next()
		m.status = "Sort: " + string(m.sort)
		m.refresh()
	case k.Theme:
		m.theme = m.theme.Toggle()
		m.styles = theme.StylesFor(m.theme)
		if err := theme.Save(m.ctx, m.app.Backend, m.theme); err != nil {
			m.status = fmt.Sprintf("theme save failed: %v", err)
		} else {
			m.status = m.theme.Label()
		}
	}
	return m, nil
}

func (m Model) openForm(status string) (tea.Model, tea.Cmd) {
	v := m.app.Form.Values()
	values := []string{v.Title, v.Deadline, v.Priority, v.Category, v.Reminder}
	for i := range m.inputs {
		m.inputs[i].SetValue(values[i])
		m.inputs[i].CursorEnd()
		m.inputs[i].Blur()
	}
	m.field = 0
	m.mode = modeForm
	m.status = status
	return m, m.inputs[0].Focus()
}

func (m Model) formValues() form.Values {
	return form.Values{
		Title:    m.inputs[0].Value(),
		Deadline: m.inputs[1].Value(),
		Priority: m.inputs[2].Value(),
		Category: m.inputs[3].Value(),
		Reminder: m.inputs[4].Value(),
	}
}

func (m Model) focusField(idx int) (tea.Model, tea.Cmd) {
	m.inputs[m.field].Blur()
	m.field = wrapIndex(idx, len(m.inputs))
	m.status = m.formPrompt()
	return m, m.inputs[m.field].Focus()
}

func (m Model) updateFormMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		m.app.Form.Cancel()
		m.mode = modeList
		m.inputs[m.field].Blur()
		m.status = "Edit cancelled"
		return m, nil
	case m.cfg.Keys.NextField, "down":
		return m.focusField(m.field + 1)
	case m.cfg.Keys.PrevField, "up":
		return m.focusField(m.field - 1)
	case m.cfg.Keys.Confirm, "enter":
		if m.field < len(m.inputs)-1 {
			return m.focusField(m.field + 1)
		}
		return m.submitForm()
	case "ctrl+s":
		return m.submitForm()
	default:
		var cmd tea.Cmd
		m.inputs[m.field], cmd = m.inputs[m.field].Update(msg)
		return m, cmd
	}
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	_, editing := m.app.Form.Editing()
	m.app.Form.SetValues(m.formValues())
	saved, err := m.app.Form.Submit(m.ctx)
	switch {
	case errors.Is(err, form.ErrEmptyTitle):
		m.status = "Please enter a task title"
		return m.focusFieldKeepStatus(0)
	case errors.Is(err, form.ErrInvalidDate), errors.Is(err, form.ErrInvalidPriority):
		m.status = err.Error()
		return m, nil
	case errors.Is(err, form.ErrTaskGone):
		m.status = "Task no longer exists"
	case err != nil:
		m.status = fmt.Sprintf("save failed: %v", err)
	case editing:
		m.status = "Task updated"
	default:
		m.status = "Added task"
	}

	m.inputs[m.field].Blur()
	m.mode = modeList
	m.refresh()
	for i, t := range m.visible {
		if t.ID == saved.ID {
			m.cursor = i
			break
		}
	}
	return m, nil
}

func (m Model) focusFieldKeepStatus(idx int) (tea.Model, tea.Cmd) {
	status := m.status
	next, cmd := m.focusField(idx)
	nm := next.(Model)
	nm.status = status
	return nm, cmd
}

func (m Model) formPrompt() string {
	return fmt.Sprintf("Editing %s (field %d of %d). Enter to advance, Esc to cancel, tab to move.",
		formFields()[m.field], m.field+1, len(m.inputs))
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", "esc":
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			m.confirmDel = false
			return m, nil
		}
		if _, err := m.app.Store.Delete(m.ctx, m.pendingDel.ID); err != nil {
			m.status = fmt.Sprintf("delete failed: %v", err)
		} else {
			m.status = "Deleted task"
		}
		m.confirmDel = false
		m.pendingDel = nil
		m.refresh()
		return m, nil
	default:
		return m, nil
	}
}
