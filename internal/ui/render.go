package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stm/internal/config"
	"stm/internal/view"
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Task Manager"))
	b.WriteString("  ")
	b.WriteString(m.styles.Muted.Render(m.theme.Label()))
	b.WriteString("\n")
	b.WriteString(m.renderStats())
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render(m.renderFilters()))
	b.WriteString("\n\n")

	if len(m.visible) == 0 {
		b.WriteString(m.styles.Muted.Render(view.EmptyMessage))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderTaskList())
	}

	b.WriteString("\n---\n")

	if m.mode == modeForm {
		b.WriteString(m.renderFormBox())
	}

	if m.alert != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Alert.Render("⏰ " + m.alert + "\n\n(press any key)"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Status.Render(m.status))
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render(renderHelp(m.cfg.Keys)))

	return b.String()
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s edit • space toggle • %s delete • %s category • %s priority • %s completed • %s sort • %s theme • %s quit",
		k.Up, k.Down, k.Add, k.Edit, k.Delete, k.FilterCategory, k.FilterPriority, k.ToggleCompleted, k.Sort, k.Theme, k.Quit)
}

func (m Model) renderStats() string {
	s := m.app.Store.Stats()
	return fmt.Sprintf("Total %d • Completed %d • Pending %d • High priority %d",
		s.Total, s.Completed, s.Pending, s.HighPriorityPending)
}

func (m Model) renderFilters() string {
	return fmt.Sprintf("category:%s priority:%s completed:%s sort:%s",
		m.filters.Category, m.filters.Priority, showHide(m.filters.ShowCompleted), m.sort)
}

func (m Model) renderTaskList() string {
	var b strings.Builder
	rows := view.Rows(m.visible, m.app.Now())
	for i, r := range rows {
		cursor := " "
		if m.cursor == i && m.mode == modeList {
			cursor = ">"
		}

		checkbox := "[ ]"
		if r.Completed {
			checkbox = "[x]"
		}

		title := r.Title
		if r.Completed {
			title = m.styles.Completed.Render(title)
		}

		extras := []string{
			m.styles.ForPriority(r.Priority).Render(string(r.Priority)),
			m.styles.Category.Render(r.Category),
		}
		if r.HasDeadline {
			extras = append(extras, m.styles.ForUrgency(r.Urgency).Render(r.DeadlineText))
		}
		if r.HasReminder {
			extras = append(extras, "⏰")
		}

		line := fmt.Sprintf("%s %s %s  %s", cursor, checkbox, title, strings.Join(extras, " "))
		if m.cursor == i && m.mode == modeList {
			line = m.styles.Selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderFormBox() string {
	heading := "Add Task"
	if _, editing := m.app.Form.Editing(); editing {
		heading = "Update Task"
	}
	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n\n")
	for i, name := range formFields() {
		prefix := " "
		if i == m.field {
			prefix = ">"
		}
		b.WriteString(fmt.Sprintf("%s %-28s %s\n", prefix, name, m.inputs[i].View()))
	}
	return m.styles.Border.Render(lipgloss.NewStyle().Padding(0, 1).Render(b.String()))
}

func showHide(show bool) string {
	if show {
		return "shown"
	}
	return "hidden"
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
