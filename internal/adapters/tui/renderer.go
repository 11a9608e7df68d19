// Package tui renders task progress as an interactive terminal dashboard.
package tui

import (
	"context"
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/flaskblog/assetflow/internal/core/ports"
	"github.com/flaskblog/assetflow/internal/ui/output"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer wraps the dashboard model as a ports.Renderer.
type Renderer struct {
	program *tea.Program
	model   *Model
	out     io.Writer

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	errCh     chan error
}

// NewRenderer creates a dashboard drawing to w. interrupt is called when the
// user asks to quit.
func NewRenderer(w io.Writer, interrupt func(), opts ...tea.ProgramOption) *Renderer {
	lipgloss.SetColorProfile(output.ProfileFor(w))
	model := NewModel(interrupt)
	opts = append([]tea.ProgramOption{tea.WithOutput(w)}, opts...)
	return &Renderer{
		program: tea.NewProgram(model, opts...),
		model:   model,
		out:     w,
		errCh:   make(chan error, 1),
	}
}

// Start launches the dashboard in a background goroutine.
func (r *Renderer) Start(context.Context) error {
	r.startOnce.Do(func() {
		r.started = true
		go func() {
			_, err := r.program.Run()
			r.errCh <- err
		}()
	})
	return nil
}

// Stop closes the dashboard, waits for the terminal to be restored and then
// prints the output of failed tasks.
func (r *Renderer) Stop() error {
	var err error
	r.stopOnce.Do(func() {
		r.startOnce.Do(func() {})
		if !r.started {
			return
		}
		r.program.Quit()
		if err = <-r.errCh; err != nil {
			return
		}
		if report := r.model.failureReport(); report != "" {
			_, err = io.WriteString(r.out, report)
		}
	})
	return err
}

// OnPlanEmit forwards the plan to the dashboard.
func (r *Renderer) OnPlanEmit(tasks []string, _ map[string][]string, targets []string) {
	r.program.Send(msgPlan{tasks: tasks, targets: targets})
}

// OnTaskStart forwards a task start.
func (r *Renderer) OnTaskStart(spanID, _, name string, startTime time.Time) {
	r.program.Send(msgTaskStart{spanID: spanID, name: name, start: startTime})
}

// OnTaskLog forwards task output.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.program.Send(msgTaskLog{spanID: spanID, data: data})
}

// OnTaskComplete forwards a task completion.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error) {
	r.program.Send(msgTaskComplete{spanID: spanID, end: endTime, err: err})
}
