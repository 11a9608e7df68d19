// Package sass compiles SCSS through an embedded Dart Sass process.
package sass

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/godartsass/v2"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/flaskblog/assetflow/internal/core/ports"
	"go.trai.ch/zerr"
)

const defaultTimeout = 30 * time.Second

// Compiler implements ports.StyleCompiler. The Dart Sass process is started
// on the first compilation and reused until Close.
type Compiler struct {
	binary     string
	sourceMaps bool
	logger     ports.Logger

	mu         sync.Mutex
	transpiler *godartsass.Transpiler
	start      func(godartsass.Options) (*godartsass.Transpiler, error)
}

// NewCompiler creates a Compiler using the given dart-sass binary. An empty
// binary is resolved from PATH by godartsass.
func NewCompiler(binary string, sourceMaps bool, logger ports.Logger) *Compiler {
	return &Compiler{
		binary:     binary,
		sourceMaps: sourceMaps,
		logger:     logger,
		start:      godartsass.Start,
	}
}

// Compile compiles the SCSS file at path with expanded output.
func (c *Compiler) Compile(ctx context.Context, path string, includePaths []string) (ports.CompiledStyle, error) {
	if err := ctx.Err(); err != nil {
		return ports.CompiledStyle{}, err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return ports.CompiledStyle{}, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}

	t, err := c.transpilerFor()
	if err != nil {
		return ports.CompiledStyle{}, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	res, err := t.Execute(godartsass.Args{
		Source:                  string(src),
		URL:                     "file://" + filepath.ToSlash(abs),
		OutputStyle:             godartsass.OutputStyleExpanded,
		SourceSyntax:            godartsass.SourceSyntaxSCSS,
		IncludePaths:            includePaths,
		EnableSourceMap:         c.sourceMaps,
		SourceMapIncludeSources: c.sourceMaps,
	})
	if err != nil {
		return ports.CompiledStyle{}, zerr.With(zerr.Wrap(err, domain.ErrStyleCompileFailed.Error()), "path", path)
	}
	return ports.CompiledStyle{CSS: res.CSS, SourceMap: res.SourceMap}, nil
}

// Close stops the Dart Sass process if it was started.
func (c *Compiler) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transpiler == nil {
		return nil
	}
	err := c.transpiler.Close()
	c.transpiler = nil
	return err
}

func (c *Compiler) transpilerFor() (*godartsass.Transpiler, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transpiler != nil && !c.transpiler.IsShutDown() {
		return c.transpiler, nil
	}

	t, err := c.start(godartsass.Options{
		DartSassEmbeddedFilename: c.binary,
		Timeout:                  defaultTimeout,
		LogEventHandler:          c.onLog,
	})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStyleCompileFailed.Error()), "binary", c.binary)
	}
	c.transpiler = t
	return t, nil
}

func (c *Compiler) onLog(e godartsass.LogEvent) {
	if c.logger == nil {
		return
	}
	c.logger.Warn("sass: " + e.Message)
}
