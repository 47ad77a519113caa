package tui

import "github.com/charmbracelet/lipgloss"

// Styles groups the lipgloss styles used by the comparison screen.
type Styles struct {
	Title   lipgloss.Style
	Card    lipgloss.Style
	Label   lipgloss.Style
	Rating  lipgloss.Style
	Warn    lipgloss.Style
	Error   lipgloss.Style
	Success lipgloss.Style
	Muted   lipgloss.Style
}

// DefaultStyles returns the standard style set.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Foreground(lipgloss.Color("#0077B6")).Bold(true),
		Card:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#626262")).Padding(0, 1),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBD2E")).Bold(true),
		Rating:  lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
		Warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBD2E")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F56")).Bold(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
	}
}
