// Package chrome renders pages in headless Chrome to extract critical CSS.
package chrome

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"go.trai.ch/zerr"
)

//go:embed extract.js
var extractScript string

// Renderer implements ports.CriticalRenderer. One browser process is shared
// and every render runs in its own tab.
type Renderer struct {
	opts []chromedp.ExecAllocatorOption

	mu          sync.Mutex
	browser     context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
}

// NewRenderer creates a Renderer. Extra options are appended to chromedp's defaults.
func NewRenderer(opts ...chromedp.ExecAllocatorOption) *Renderer {
	all := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	return &Renderer{opts: append(all, opts...)}
}

// Render loads req.URL at the requested viewport and returns the rules of
// req.Stylesheet that apply to elements above the fold.
func (r *Renderer) Render(ctx context.Context, req domain.RenderRequest) (string, error) {
	css, err := os.ReadFile(req.Stylesheet)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", req.Stylesheet)
	}

	script, err := BuildScript(string(css), req.Height)
	if err != nil {
		return "", err
	}

	browser, err := r.browserContext()
	if err != nil {
		return "", err
	}

	tab, cancel := chromedp.NewContext(browser)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var out string
	err = chromedp.Run(tab,
		chromedp.EmulateViewport(int64(req.Width), int64(req.Height)),
		chromedp.Navigate(req.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(script, &out),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", zerr.With(zerr.Wrap(err, domain.ErrRenderFailed.Error()), "url", req.URL)
	}
	return out, nil
}

// Close shuts the browser down.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	r.cancelTab()
	r.cancelAlloc()
	r.browser = nil
	return nil
}

func (r *Renderer) browserContext() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser != nil {
		return r.browser, nil
	}

	alloc, cancelAlloc := chromedp.NewExecAllocator(context.Background(), r.opts...)
	browser, cancelTab := chromedp.NewContext(alloc)
	// Running an empty action list starts the browser.
	if err := chromedp.Run(browser); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, zerr.Wrap(err, domain.ErrRenderFailed.Error())
	}
	r.browser, r.cancelAlloc, r.cancelTab = browser, cancelAlloc, cancelTab
	return browser, nil
}

// BuildScript returns the extraction script for the given stylesheet and fold height.
func BuildScript(css string, foldHeight int) (string, error) {
	literal, err := json.Marshal(css)
	if err != nil {
		return "", zerr.Wrap(err, domain.ErrRenderFailed.Error())
	}
	return fmt.Sprintf(extractScript, literal, foldHeight), nil
}
