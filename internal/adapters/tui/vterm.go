package tui

import (
	"bytes"
	"strings"
	"sync"

	"github.com/vito/midterm"
)

// logView is a scrollable window over one task's virtual terminal. Tool
// output may carry colors and carriage returns, so it is replayed through
// midterm rather than stored as text.
type logView struct {
	mu     sync.Mutex
	vt     *midterm.Terminal
	offset int
	height int
}

func newLogView() *logView {
	return &logView{
		vt:     midterm.NewAutoResizingTerminal(),
		height: 1,
	}
}

// Write appends task output. A view scrolled to the bottom stays there.
func (v *logView) Write(p []byte) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	follow := v.offset >= v.maxOffset()
	n, err := v.vt.Write(p)
	if follow {
		v.offset = v.maxOffset()
	}
	return n, err
}

func (v *logView) resize(width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	follow := v.offset >= v.maxOffset()
	v.height = max(height, 1)
	v.vt.ResizeX(max(width, 1))
	if follow {
		v.offset = v.maxOffset()
	}
	v.clamp()
}

func (v *logView) scroll(delta int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset += delta
	v.clamp()
}

func (v *logView) page() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.height
}

func (v *logView) toBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.offset = v.maxOffset()
}

func (v *logView) lines() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.vt.UsedHeight()
}

// view renders the visible window.
func (v *logView) view() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.render(v.offset, v.height)
}

// tail renders the last n lines regardless of the scroll position.
func (v *logView) tail(n int) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	used := v.vt.UsedHeight()
	return v.render(max(used-n, 0), n)
}

func (v *logView) render(from, n int) string {
	var buf bytes.Buffer
	used := v.vt.UsedHeight()
	for row := from; row < from+n && row < used; row++ {
		if row > from {
			buf.WriteByte('\n')
		}
		_ = v.vt.RenderLine(&buf, row)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (v *logView) clamp() {
	v.offset = min(max(v.offset, 0), v.maxOffset())
}

func (v *logView) maxOffset() int {
	return max(v.vt.UsedHeight()-v.height, 0)
}
