package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/flaskblog/assetflow/internal/ui/style"
)

// failureTail is how many output lines of a failed task are kept on screen
// after the dashboard closes.
const failureTail = 20

// View implements tea.Model.
func (m *Model) View() string {
	if m.listHeight <= 0 {
		return "Planning " + strings.Join(m.targets, ", ") + "..."
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.taskList(), m.logPane())
}

func (m *Model) taskList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("TASKS") + "\n\n")

	end := min(m.listOffset+m.listHeight, len(m.rows))
	for i := min(m.listOffset, end); i < end; i++ {
		b.WriteString(m.renderRow(i, m.rows[i]) + "\n")
	}
	return listStyle.Render(b.String())
}

func (m *Model) renderRow(index int, r *row) string {
	st := rowStyle(r)
	cursor := "  "
	if index == m.selected {
		cursor = selectedStyle.Render("> ")
		if r.status == statusPending || r.status == statusRunning {
			st = selectedStyle
		}
	}

	text := rowIcon(r) + " " + r.name
	if r.status == statusDone || r.status == statusFailed {
		text += fmt.Sprintf(" %s", r.elapsed.Round(time.Millisecond))
	}
	return cursor + st.Render(text)
}

func rowIcon(r *row) string {
	switch r.status {
	case statusRunning:
		return "●"
	case statusDone:
		return style.Check
	case statusFailed:
		return style.Cross
	default:
		return "○"
	}
}

func rowStyle(r *row) lipgloss.Style {
	switch r.status {
	case statusRunning:
		return runningStyle
	case statusDone:
		return doneStyle
	case statusFailed:
		return failedStyle
	default:
		return pendingStyle
	}
}

func (m *Model) logPane() string {
	r := m.selectedRow()
	if r == nil {
		return logStyle.Render(titleStyle.Render("OUTPUT (waiting)"))
	}

	mode := "manual"
	if m.follow {
		mode = "following"
	}
	header := titleStyle.Render(fmt.Sprintf("OUTPUT: %s (%s)", r.name, mode))
	return logStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, r.log.view()))
}

// failureReport renders the tail of every failed task's output. It is
// printed once the dashboard has released the terminal.
func (m *Model) failureReport() string {
	var b strings.Builder
	for _, r := range m.failures() {
		b.WriteString(failureTitleStyle.Render("FAILED: "+r.name) + "\n")
		if tail := r.log.tail(failureTail); tail != "" {
			b.WriteString(tail + "\n")
		}
		if r.err != nil {
			b.WriteString(failedStyle.Render(r.err.Error()) + "\n")
		}
	}
	return b.String()
}
