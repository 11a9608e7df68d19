package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	listWidthRatio = 0.3
	logPaneChrome  = 4
)

type status int

const (
	statusPending status = iota
	statusRunning
	statusDone
	statusFailed
)

// row is one planned task. Tasks started by nested runs, such as the build
// behind the default task, are appended when they first start.
type row struct {
	name    string
	status  status
	started time.Time
	elapsed time.Duration
	err     error
	log     *logView
}

// Model is the Bubble Tea model of the task dashboard: a task list on the
// left and the selected task's output on the right.
type Model struct {
	rows    []*row
	byName  map[string]*row
	bySpan  map[string]*row
	targets []string

	selected   int
	listOffset int
	listHeight int
	logWidth   int
	logHeight  int

	// follow moves the selection to whichever task started last.
	follow bool

	interrupt func()
}

// NewModel returns an empty dashboard. interrupt runs when the user presses
// ctrl+c, since the terminal is in raw mode and no SIGINT is delivered.
func NewModel(interrupt func()) *Model {
	if interrupt == nil {
		interrupt = func() {}
	}
	return &Model{
		byName:    make(map[string]*row),
		bySpan:    make(map[string]*row),
		follow:    true,
		interrupt: interrupt,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case msgPlan:
		m.targets = msg.targets
		for _, name := range msg.tasks {
			m.ensureRow(name)
		}

	case msgTaskStart:
		r := m.ensureRow(msg.name)
		r.status = statusRunning
		r.started = msg.start
		r.err = nil
		m.bySpan[msg.spanID] = r
		if m.follow {
			m.selectRow(r)
		}

	case msgTaskLog:
		if r, ok := m.bySpan[msg.spanID]; ok {
			_, _ = r.log.Write(msg.data)
		}

	case msgTaskComplete:
		if r, ok := m.bySpan[msg.spanID]; ok {
			r.elapsed = msg.end.Sub(r.started)
			r.err = msg.err
			r.status = statusDone
			if msg.err != nil {
				r.status = statusFailed
			}
			delete(m.bySpan, msg.spanID)
		}
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q":
		m.interrupt()
		return tea.Quit
	case "k", "up":
		m.move(-1)
	case "j", "down":
		m.move(1)
	case "esc", "f":
		m.follow = true
		for i := len(m.rows) - 1; i >= 0; i-- {
			if m.rows[i].status == statusRunning {
				m.selectRow(m.rows[i])
				break
			}
		}
	default:
		if r := m.selectedRow(); r != nil {
			switch msg.String() {
			case "pgup":
				r.log.scroll(-r.log.page())
			case "pgdown":
				r.log.scroll(r.log.page())
			case "home":
				r.log.scroll(-r.log.lines())
			case "end":
				r.log.toBottom()
			}
		}
	}
	return nil
}

func (m *Model) ensureRow(name string) *row {
	if r, ok := m.byName[name]; ok {
		return r
	}
	r := &row{name: name, log: newLogView()}
	if m.logWidth > 0 {
		r.log.resize(m.logWidth, m.logHeight)
	}
	m.rows = append(m.rows, r)
	m.byName[name] = r
	return r
}

func (m *Model) move(delta int) {
	next := m.selected + delta
	if next < 0 || next >= len(m.rows) {
		return
	}
	m.follow = false
	m.selected = next
	m.ensureVisible()
}

func (m *Model) selectRow(r *row) {
	for i, candidate := range m.rows {
		if candidate == r {
			m.selected = i
			break
		}
	}
	r.log.toBottom()
	m.ensureVisible()
}

func (m *Model) selectedRow() *row {
	if m.selected >= 0 && m.selected < len(m.rows) {
		return m.rows[m.selected]
	}
	return nil
}

func (m *Model) ensureVisible() {
	if m.listHeight <= 0 {
		return
	}
	if m.selected < m.listOffset {
		m.listOffset = m.selected
	} else if m.selected >= m.listOffset+m.listHeight {
		m.listOffset = m.selected - m.listHeight + 1
	}
}

func (m *Model) resize(width, height int) {
	listWidth := int(float64(width) * listWidthRatio)
	header := lipgloss.Height(titleStyle.Render("TASKS") + "\n\n")

	m.logWidth = width - listWidth - logPaneChrome
	m.logHeight = height - header
	m.listHeight = height - header
	for _, r := range m.rows {
		r.log.resize(m.logWidth, m.logHeight)
	}
	m.ensureVisible()
}

// failures returns the rows that failed, in plan order.
func (m *Model) failures() []*row {
	var out []*row
	for _, r := range m.rows {
		if r.status == statusFailed {
			out = append(out, r)
		}
	}
	return out
}
