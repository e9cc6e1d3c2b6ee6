package theme

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stm/internal/storage"
	"stm/internal/task"
	"stm/internal/view"
)

// Key is the storage key holding the chosen theme.
const Key = "stm-theme"

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

func Parse(v string) (Theme, bool) {
	switch Theme(strings.ToLower(strings.TrimSpace(v))) {
	case Light:
		return Light, true
	case Dark:
		return Dark, true
	}
	return "", false
}

func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Label is what the toggle shows for the active theme.
func (t Theme) Label() string {
	if t == Dark {
		return "Dark mode"
	}
	return "Light mode"
}

// Preferred picks the stored theme, then the configured one, then whatever
// matches the terminal background.
func Preferred(ctx context.Context, b storage.Backend, configured string) Theme {
	if data, err := b.Get(ctx, Key); err == nil {
		if t, ok := Parse(string(data)); ok {
			return t
		}
	}
	if t, ok := Parse(configured); ok {
		return t
	}
	if lipgloss.HasDarkBackground() {
		return Dark
	}
	return Light
}

func Save(ctx context.Context, b storage.Backend, t Theme) error {
	if _, ok := Parse(string(t)); !ok {
		return errors.New("theme: want light or dark")
	}
	return b.Put(ctx, Key, []byte(t))
}

type Styles struct {
	Title     lipgloss.Style
	Selected  lipgloss.Style
	Completed lipgloss.Style
	Muted     lipgloss.Style
	Status    lipgloss.Style
	Alert     lipgloss.Style
	Overdue   lipgloss.Style
	DueSoon   lipgloss.Style
	Priority  map[task.Priority]lipgloss.Style
	Category  lipgloss.Style
	Border    lipgloss.Style
}

func (s Styles) ForUrgency(u view.Urgency) lipgloss.Style {
	switch u {
	case view.UrgencyOverdue:
		return s.Overdue
	case view.UrgencyDueSoon:
		return s.DueSoon
	default:
		return s.Muted
	}
}

func (s Styles) ForPriority(p task.Priority) lipgloss.Style {
	if st, ok := s.Priority[p]; ok {
		return st
	}
	return s.Muted
}

func StylesFor(t Theme) Styles {
	fg, muted, selBg, selFg, border := "235", "244", "153", "232", "250"
	if t == Dark {
		fg, muted, selBg, selFg, border = "252", "241", "62", "230", "240"
	}
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(fg)),
		Selected:  lipgloss.NewStyle().Background(lipgloss.Color(selBg)).Foreground(lipgloss.Color(selFg)),
		Completed: lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color(muted)),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color(muted)),
		Status:    lipgloss.NewStyle().Foreground(lipgloss.Color(fg)),
		Alert: lipgloss.NewStyle().
			Bold(true).
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")),
		Overdue: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		DueSoon: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Priority: map[task.Priority]lipgloss.Style{
			task.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
			task.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("172")),
			task.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		},
		Category: lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(border)),
	}
}
