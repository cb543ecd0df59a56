package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Mizogg/GUI-keyhunt/internal/supervisor"
)

var (
	accent      = lipgloss.Color("#8BC34A")
	muted       = lipgloss.Color("#6b7a90")
	destructive = lipgloss.Color("#e53935")
	warning     = lipgloss.Color("#FFC107")
	info        = lipgloss.Color("#2196F3")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	statusStyle = lipgloss.NewStyle().Foreground(muted)
	errorStyle  = lipgloss.NewStyle().Foreground(destructive)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)
	paneHeaderStyle = lipgloss.NewStyle().Bold(true)
)

func stateStyle(s supervisor.InstanceState) lipgloss.Style {
	switch s {
	case supervisor.StateRunning, supervisor.StateStarting:
		return lipgloss.NewStyle().Foreground(accent)
	case supervisor.StateFailed:
		return lipgloss.NewStyle().Foreground(destructive)
	case supervisor.StateKilled, supervisor.StateReplaced:
		return lipgloss.NewStyle().Foreground(warning)
	case supervisor.StateCompleted:
		return lipgloss.NewStyle().Foreground(info)
	default:
		return lipgloss.NewStyle().Foreground(muted)
	}
}
