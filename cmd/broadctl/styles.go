package main

import "github.com/charmbracelet/lipgloss"

// Color palette for CLI output
var (
	successColor = lipgloss.Color("#43BF6D") // Green - on, captured
	errorColor   = lipgloss.Color("#FF5555") // Red - off, failures
	accentColor  = lipgloss.Color("#7D56F4") // Purple - device names
	mutedColor   = lipgloss.Color("#626262") // Gray - secondary info
)

var (
	deviceNameStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	detailStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	onStyle = lipgloss.NewStyle().
		Foreground(successColor).
		Bold(true)

	offStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(accentColor)
)

// onOff renders a power state.
func onOff(on bool) string {
	if on {
		return onStyle.Render("ON")
	}
	return offStyle.Render("OFF")
}
