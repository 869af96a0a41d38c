package ui

import "github.com/charmbracelet/lipgloss"

var (
	surface  = lipgloss.Color("#45475a")
	text     = lipgloss.Color("#cdd6f4")
	subtext  = lipgloss.Color("#a6adc8")
	lavender = lipgloss.Color("#b4befe")
	sapphire = lipgloss.Color("#74c7ec")
	green    = lipgloss.Color("#a6e3a1")
	peach    = lipgloss.Color("#fab387")
	red      = lipgloss.Color("#f38ba8")

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(surface).
			Foreground(text).
			Padding(0, 1)

	titleStyle     = lipgloss.NewStyle().Foreground(sapphire).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(subtext)
	onStyle        = lipgloss.NewStyle().Foreground(green).Bold(true)
	warnStyle      = lipgloss.NewStyle().Foreground(peach).Bold(true)
	critStyle      = lipgloss.NewStyle().Foreground(red).Bold(true)
	cursorStyle    = lipgloss.NewStyle().Foreground(lavender).Bold(true)
	countdownStyle = lipgloss.NewStyle().Foreground(text).Bold(true).Padding(0, 2)
)
