// Package critical extracts the above-the-fold CSS of the blog's pages and
// inlines it into the production templates.
package critical

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/flaskblog/assetflow/internal/adapters/fs"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/flaskblog/assetflow/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// maxJobListBytes bounds the job list body.
const maxJobListBytes = 1 << 20

// Extractor runs the critical-CSS phase against the companion application.
type Extractor struct {
	cfg      *domain.Config
	process  ports.ProcessController
	renderer ports.CriticalRenderer
	minifier ports.Minifier
	client   *http.Client
	logger   ports.Logger
}

// New creates an Extractor.
func New(
	cfg *domain.Config,
	process ports.ProcessController,
	renderer ports.CriticalRenderer,
	minifier ports.Minifier,
	logger ports.Logger,
) *Extractor {
	return &Extractor{
		cfg:      cfg,
		process:  process,
		renderer: renderer,
		minifier: minifier,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// Extract starts the companion, asks it which pages to render and writes one
// critical-CSS artifact per page. The companion is stopped when the phase
// ends, whatever the outcome. Completion is reported once, after every
// artifact has been written.
func (e *Extractor) Extract(ctx context.Context, w io.Writer) (err error) {
	profile, err := e.cfg.Profile(e.cfg.Critical.Profile)
	if err != nil {
		return err
	}

	if err := e.process.Start(ctx, profile); err != nil {
		return err
	}
	defer func() {
		if stopErr := e.process.Stop(context.WithoutCancel(ctx), profile); stopErr != nil {
			if err == nil {
				err = stopErr
				return
			}
			e.logger.Warn(fmt.Sprintf("stopping %s after failed extraction: %v", profile.Name, stopErr))
		}
	}()

	if err := e.process.WaitReady(ctx, profile); err != nil {
		return err
	}

	if e.cfg.Critical.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Critical.Timeout)
		defer cancel()
	}

	base := profile.BaseURL()
	jobs, err := e.fetchJobs(ctx, base)
	if err != nil {
		return err
	}

	written, err := e.renderAll(ctx, base, jobs)
	if err != nil {
		return err
	}
	if written != len(jobs) {
		err := zerr.With(domain.ErrIncompleteExtraction, "written", written)
		return zerr.With(err, "jobs", len(jobs))
	}

	fmt.Fprintf(w, "critical css: %d page(s)\n", written)
	return nil
}

// fetchJobs reads the page list from the companion.
func (e *Extractor) fetchJobs(ctx context.Context, base string) ([]domain.JobDescriptor, error) {
	url := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(e.cfg.Critical.APIPath, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrJobListRequestFailed.Error()), "url", url)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrJobListRequestFailed.Error()), "url", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := zerr.With(domain.ErrJobListStatus, "url", url)
		return nil, zerr.With(err, "status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJobListBytes))
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrJobListRequestFailed.Error()), "url", url)
	}

	var list domain.JobList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrJobListParseFailed.Error()), "url", url)
	}
	if list.List == nil {
		return nil, zerr.With(zerr.With(domain.ErrJobListParseFailed, "url", url), "reason", "missing list")
	}
	for _, job := range list.List {
		if err := job.Validate(); err != nil {
			return nil, err
		}
	}
	return list.List, nil
}

// renderAll renders every job concurrently. The first failure cancels the
// renders still running.
func (e *Extractor) renderAll(ctx context.Context, base string, jobs []domain.JobDescriptor) (int, error) {
	outDir := e.cfg.Abs(e.cfg.Paths.CriticalPath())
	stylesheet := e.cfg.Abs(e.cfg.Paths.MainStylesheet())

	var written atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	if e.cfg.Critical.Concurrency > 0 {
		g.SetLimit(e.cfg.Critical.Concurrency)
	}
	for _, job := range jobs {
		g.Go(func() error {
			url := job.PageURL(base)
			css, err := e.renderer.Render(ctx, domain.RenderRequest{
				URL:        url,
				Stylesheet: stylesheet,
				Width:      e.cfg.Critical.Width,
				Height:     e.cfg.Critical.Height,
			})
			if err != nil {
				return err
			}
			if strings.TrimSpace(css) == "" {
				return zerr.With(domain.ErrEmptyCriticalCSS, "url", url)
			}
			if err := fs.WriteFile(filepath.Join(outDir, job.Filename), []byte(css)); err != nil {
				return err
			}
			written.Add(1)
			return nil
		})
	}
	err := g.Wait()
	return int(written.Load()), err
}

// artifacts lists the critical-CSS files as absolute paths.
func (e *Extractor) artifacts() ([]string, error) {
	dir := e.cfg.Abs(e.cfg.Paths.CriticalPath())
	names, err := fs.Glob(dir, "**/*.css")
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(names))
	for _, n := range names {
		paths = append(paths, filepath.Join(dir, filepath.FromSlash(n)))
	}
	return paths, nil
}

// lookup returns the artifact named name for injection.
func (e *Extractor) lookup(name string) (string, error) {
	path := filepath.Join(e.cfg.Abs(e.cfg.Paths.CriticalPath()), filepath.Base(name))
	data, err := os.ReadFile(path) //nolint:gosec // G304: name is reduced to a base name in the artifact dir
	if err != nil {
		missing := errors.Is(err, os.ErrNotExist)
		err = zerr.With(zerr.Wrap(err, domain.ErrArtifactReadFailed.Error()), "artifact", name)
		if missing {
			err = zerr.With(err, "reason", "artifact not extracted")
		}
		return "", err
	}
	return string(data), nil
}
