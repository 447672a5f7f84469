package main

import "github.com/charmbracelet/lipgloss"

var (
	primary = lipgloss.Color("#7C3AED")
	success = lipgloss.Color("#10B981")
	warning = lipgloss.Color("#F59E0B")
	danger  = lipgloss.Color("#EF4444")
	muted   = lipgloss.Color("#6B7280")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primary)
	okStyle      = lipgloss.NewStyle().Foreground(success)
	warnStyle    = lipgloss.NewStyle().Foreground(warning)
	errorStyle   = lipgloss.NewStyle().Foreground(danger).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	parkedStyle  = lipgloss.NewStyle().Foreground(success).Bold(true)
	balanceStyle = lipgloss.NewStyle().Bold(true)
)
