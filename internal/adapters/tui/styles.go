package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/flaskblog/assetflow/internal/ui/style"
)

var (
	pendingStyle = lipgloss.NewStyle().
			Foreground(style.Muted)

	runningStyle = lipgloss.NewStyle().
			Foreground(style.Accent).
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(style.Green)

	failedStyle = lipgloss.NewStyle().
			Foreground(style.Red)

	selectedStyle = lipgloss.NewStyle().
			Foreground(style.Accent).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Background(style.Accent).
			Foreground(style.White)

	failureTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Padding(0, 1).
				Background(style.Red).
				Foreground(style.White)

	listStyle = lipgloss.NewStyle().
			PaddingRight(2)

	logStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(style.Muted).
			PaddingLeft(1)
)
