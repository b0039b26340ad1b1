package main

import "github.com/charmbracelet/lipgloss"

var (
	success     = lipgloss.Color("#8BC34A") // Lime Green
	destructive = lipgloss.Color("#e53935") // Red
	warning     = lipgloss.Color("#FFC107") // Yellow
	muted       = lipgloss.Color("#6b7280")

	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(destructive).Bold(true)
	ruleStyle    = lipgloss.NewStyle().Foreground(warning)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
)
