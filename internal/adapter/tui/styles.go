package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("205")
	upColor     = lipgloss.Color("42")
	downColor   = lipgloss.Color("203")
	mutedColor  = lipgloss.Color("242")
	errorColor  = lipgloss.Color("196")
	infoColor   = lipgloss.Color("78")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	selectedStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	upStyle       = lipgloss.NewStyle().Bold(true).Foreground(upColor)
	downStyle     = lipgloss.NewStyle().Bold(true).Foreground(downColor)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor)
	infoStyle     = lipgloss.NewStyle().Foreground(infoColor)
)
