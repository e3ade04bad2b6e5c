// Package theme holds the simulator's catppuccin mocha palette.
package theme

import "github.com/charmbracelet/lipgloss"

var (
	Base     = lipgloss.Color("#1e1e2e")
	Mantle   = lipgloss.Color("#181825")
	Surface1 = lipgloss.Color("#45475a")
	Text     = lipgloss.Color("#cdd6f4")
	Subtext0 = lipgloss.Color("#a6adc8")
	Lavender = lipgloss.Color("#b4befe")
	Sapphire = lipgloss.Color("#74c7ec")
	Green    = lipgloss.Color("#a6e3a1")
	Yellow   = lipgloss.Color("#f9e2af")
	Peach    = lipgloss.Color("#fab387")
	Red      = lipgloss.Color("#f38ba8")

	App = lipgloss.NewStyle().
		Background(Base).
		Foreground(Text).
		Padding(1, 2)

	Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Surface1).
		Background(Mantle).
		Foreground(Text).
		Padding(1)

	PaneActive = Pane.BorderForeground(Lavender)

	Title = lipgloss.NewStyle().Foreground(Sapphire).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(Subtext0)
	Hot   = lipgloss.NewStyle().Foreground(Peach).Bold(true)
)

// Session colours the attribution type of the current session.
func Session(sessionType string) lipgloss.Style {
	switch sessionType {
	case "direct":
		return lipgloss.NewStyle().Foreground(Green).Bold(true)
	case "indirect":
		return lipgloss.NewStyle().Foreground(Yellow).Bold(true)
	default:
		return Muted
	}
}

// Status colours a delivery status.
func Status(status string) lipgloss.Style {
	switch status {
	case "sent":
		return lipgloss.NewStyle().Foreground(Green)
	case "queued":
		return lipgloss.NewStyle().Foreground(Peach)
	case "rejected", "unknown":
		return lipgloss.NewStyle().Foreground(Red)
	default:
		return Muted
	}
}
