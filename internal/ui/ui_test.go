package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus/hooks/test"

	"stm/internal/app"
	"stm/internal/config"
	"stm/internal/notify"
	"stm/internal/storage"
	"stm/internal/task"
	"stm/internal/theme"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)

func newTestModel(t *testing.T) (Model, *app.App) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cfg := config.Default()
	cfg.View.Theme = "light"
	cfg.Reminders.Notifications = "off"
	alerts := &AlertQueue{}

	a, err := app.Open(context.Background(), cfg, logger, app.Options{
		Backend:  storage.NewMemory(),
		Alerter:  alerts,
		Executor: &notify.RecordingExecutor{Missing: true},
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("open app: %v", err)
	}
	return New(context.Background(), a, alerts), a
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func enters(n int) []tea.Msg {
	out := make([]tea.Msg, n)
	for i := range out {
		out[i] = key("enter")
	}
	return out
}

func addTask(m Model, title string) Model {
	m = send(m, key("a"), key(title))
	return send(m, enters(5)...)
}

func TestAddTaskThroughForm(t *testing.T) {
	m, a := newTestModel(t)

	m = addTask(m, "Pay rent")
	if m.mode != modeList {
		t.Fatalf("expected list mode after submit, got %v", m.mode)
	}
	tasks := a.Store.Tasks()
	if len(tasks) != 1 || tasks[0].Title != "Pay rent" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if tasks[0].Priority != task.PriorityMedium || tasks[0].Category != "Personal" {
		t.Fatalf("expected form defaults, got %+v", tasks[0])
	}
	if m.status != "Added task" {
		t.Fatalf("unexpected status %q", m.status)
	}
	if !strings.Contains(m.View(), "Pay rent") {
		t.Fatal("expected task in rendered view")
	}
}

func TestEmptyTitleKeepsForm(t *testing.T) {
	m, a := newTestModel(t)
	m = send(m, key("a"))
	m = send(m, enters(5)...)

	if m.mode != modeForm {
		t.Fatal("expected form to stay open")
	}
	if m.status != "Please enter a task title" {
		t.Fatalf("unexpected status %q", m.status)
	}
	if len(a.Store.Tasks()) != 0 {
		t.Fatal("expected no task created")
	}

	m = send(m, key("esc"))
	if m.mode != modeList {
		t.Fatal("expected esc to close the form")
	}
	if _, editing := a.Form.Editing(); editing {
		t.Fatal("expected no editing id after cancel")
	}
}

func TestEditUpdatesInPlace(t *testing.T) {
	m, a := newTestModel(t)
	m = addTask(m, "Draft")

	m = send(m, key("e"))
	if _, editing := a.Form.Editing(); !editing {
		t.Fatal("expected editing id set")
	}
	if !strings.Contains(m.View(), "Update Task") {
		t.Fatal("expected update heading")
	}
	m = send(m, key("!"))
	m = send(m, enters(5)...)

	tasks := a.Store.Tasks()
	if len(tasks) != 1 || tasks[0].Title != "Draft!" {
		t.Fatalf("expected updated title, got %+v", tasks)
	}
	if m.status != "Task updated" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestEditOfVanishedTask(t *testing.T) {
	m, a := newTestModel(t)
	m = addTask(m, "Draft")
	id := m.visible[m.cursor].ID

	m = send(m, key("e"))
	if _, err := a.Store.Delete(context.Background(), id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	m = send(m, enters(5)...)

	if m.status != "Task no longer exists" {
		t.Fatalf("unexpected status %q", m.status)
	}
	if m.mode != modeList {
		t.Fatal("expected form closed")
	}
	if len(a.Store.Tasks()) != 0 {
		t.Fatal("expected no task recreated")
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m, a := newTestModel(t)
	m = addTask(m, "keep")
	m = addTask(m, "drop")

	m = send(m, key("d"), key("n"))
	if len(a.Store.Tasks()) != 2 {
		t.Fatal("declined delete must not remove anything")
	}

	target := m.visible[m.cursor].ID
	m = send(m, key("d"), key("y"))
	tasks := a.Store.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("expected exactly one task removed, got %d left", len(tasks))
	}
	if tasks[0].ID == target {
		t.Fatal("removed the wrong task")
	}
	if m.status != "Deleted task" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestToggleAndHideCompleted(t *testing.T) {
	m, a := newTestModel(t)
	m = send(m, key(" "))
	if a.Store.Stats().Total != 0 {
		t.Fatal("toggle on empty list must be a no-op")
	}

	m = addTask(m, "laundry")
	m = send(m, key(" "))
	if st := a.Store.Stats(); st.Completed != 1 {
		t.Fatalf("expected one completed, got %+v", st)
	}

	m = send(m, key("h"))
	if len(m.visible) != 0 {
		t.Fatalf("expected completed task hidden, got %d visible", len(m.visible))
	}
	if !strings.Contains(m.View(), "No tasks found") {
		t.Fatal("expected empty message")
	}
}

func TestFilterAndSortKeys(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(m, key("c"))
	if m.filters.Category != "Personal" {
		t.Fatalf("expected first category, got %q", m.filters.Category)
	}
	m = send(m, key("p"))
	if m.filters.Priority != "High" {
		t.Fatalf("expected High, got %q", m.filters.Priority)
	}
	m = send(m, key("s"))
	if m.sort != "priority" {
		t.Fatalf("expected priority sort, got %q", m.sort)
	}
}

func TestThemeTogglePersists(t *testing.T) {
	m, a := newTestModel(t)
	m = send(m, key("t"))
	if m.theme != theme.Dark {
		t.Fatalf("expected dark theme, got %s", m.theme)
	}
	data, err := a.Backend.Get(context.Background(), theme.Key)
	if err != nil || string(data) != "dark" {
		t.Fatalf("expected stored theme, got %q %v", data, err)
	}
}

func TestReminderTickShowsBlockingAlert(t *testing.T) {
	m, a := newTestModel(t)
	r := now.Add(30 * time.Second)
	if _, err := a.Store.Create(context.Background(), task.Fields{Title: "Call mom", Reminder: &r, Priority: task.PriorityHigh}); err != nil {
		t.Fatalf("create: %v", err)
	}

	next, cmd := m.Update(tickMsg{})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected next tick scheduled")
	}
	if !strings.Contains(m.alert, "Reminder: Call mom") {
		t.Fatalf("expected alert, got %q", m.alert)
	}

	m = send(m, key("a"))
	if m.alert != "" || m.mode != modeList {
		t.Fatal("expected first key to only dismiss the alert")
	}

	m = send(m, tickMsg{})
	if m.alert != "" {
		t.Fatal("reminder must not fire twice")
	}
}
