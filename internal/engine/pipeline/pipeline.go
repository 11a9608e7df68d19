// Package pipeline implements the asset build steps: styles, lint, wiredep,
// html bundling, images, fonts, extras and clean.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/flaskblog/assetflow/internal/adapters/fs"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/flaskblog/assetflow/internal/core/ports"
	"github.com/flaskblog/assetflow/internal/ui/output"
	"go.trai.ch/zerr"
)

// Pipeline runs the asset steps against one project configuration.
type Pipeline struct {
	cfg      *domain.Config
	runner   ports.CommandRunner
	compiler ports.StyleCompiler
	prefixer ports.Prefixer
	minifier ports.Minifier
	store    ports.ArtifactStore
	reloader ports.Reloader
	logger   ports.Logger
}

// New creates a Pipeline.
func New(
	cfg *domain.Config,
	runner ports.CommandRunner,
	compiler ports.StyleCompiler,
	prefixer ports.Prefixer,
	minifier ports.Minifier,
	store ports.ArtifactStore,
	reloader ports.Reloader,
	logger ports.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		runner:   runner,
		compiler: compiler,
		prefixer: prefixer,
		minifier: minifier,
		store:    store,
		reloader: reloader,
		logger:   logger,
	}
}

// Clean removes the temp and dist directories.
func (p *Pipeline) Clean(w io.Writer) error {
	var errs []error
	for _, dir := range []string{p.cfg.Paths.Tmp, p.cfg.Paths.Dist} {
		if err := os.RemoveAll(p.cfg.Abs(dir)); err != nil {
			errs = append(errs, zerr.With(zerr.Wrap(err, domain.ErrFileWriteFailed.Error()), "path", dir))
			continue
		}
		fmt.Fprintf(w, "removed %s\n", dir)
	}
	return errors.Join(errs...)
}

// ReportDist prints the number of files in dist and their raw and gzip size.
func (p *Pipeline) ReportDist(w io.Writer) error {
	var files int
	var raw, zipped int64
	for path := range fs.WalkFiles(p.cfg.Abs(p.cfg.Paths.Dist), nil) {
		data, err := os.ReadFile(path)
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", p.rel(path))
		}
		files++
		raw += int64(len(data))
		zipped += output.GzipSize(data)
	}
	fmt.Fprintf(w, "build: %d files, %s (gzip %s)\n", files, humanize.Bytes(uint64(raw)), humanize.Bytes(uint64(zipped)))
	return nil
}

// rel returns path relative to the project root with forward slashes, for output.
func (p *Pipeline) rel(path string) string {
	r, err := filepath.Rel(p.cfg.Root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(r)
}
