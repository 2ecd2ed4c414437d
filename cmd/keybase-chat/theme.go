package main

import "github.com/charmbracelet/lipgloss"

type uiTheme struct {
	accent    lipgloss.Color
	accentDim lipgloss.Color

	root       lipgloss.Style
	header     lipgloss.Style
	panel      lipgloss.Style
	panelTitle lipgloss.Style
	inputPanel lipgloss.Style
	footer     lipgloss.Style
	helpText   lipgloss.Style
}

func newTheme() uiTheme {
	accent := lipgloss.Color("39")
	accentDim := lipgloss.Color("31")
	text := lipgloss.Color("252")
	muted := lipgloss.Color("243")

	return uiTheme{
		accent:    accent,
		accentDim: accentDim,
		root: lipgloss.NewStyle().
			Padding(0, 1),
		header: lipgloss.NewStyle().
			Foreground(text).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accentDim).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),
		inputPanel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		footer: lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 1),
		helpText: lipgloss.NewStyle().Foreground(muted),
	}
}
