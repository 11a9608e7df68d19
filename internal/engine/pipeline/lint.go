package pipeline

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/flaskblog/assetflow/internal/adapters/fs"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"go.trai.ch/zerr"
)

// Lint checks the application scripts.
func (p *Pipeline) Lint(ctx context.Context, w io.Writer) error {
	return p.lint(ctx, w, p.cfg.Paths.Scripts(), p.cfg.Lint.Scripts, nil)
}

// LintTest checks the test specs with the mocha environment enabled.
func (p *Pipeline) LintTest(ctx context.Context, w io.Writer) error {
	return p.lint(ctx, w, p.cfg.Paths.Test, p.cfg.Lint.Tests, p.cfg.Lint.TestEnvFlags)
}

// lint runs the linter over the files matching pattern below dir. While a
// live-reload session is active, findings are reported without failing.
func (p *Pipeline) lint(ctx context.Context, w io.Writer, dir, pattern string, flags []string) error {
	files, err := fs.Glob(p.cfg.Abs(dir), pattern)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(w, "no files match %s\n", path.Join(dir, pattern))
		return nil
	}

	args := make([]string, 0, len(p.cfg.Lint.Command)+len(flags)+len(files))
	args = append(args, p.cfg.Lint.Command...)
	args = append(args, flags...)
	for _, f := range files {
		args = append(args, filepath.Join(dir, filepath.FromSlash(f)))
	}

	err = p.runner.Run(ctx, domain.Command{Args: args, Dir: p.cfg.Root}, w, w)
	if err == nil {
		fmt.Fprintf(w, "%d file(s) clean\n", len(files))
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if p.reloader != nil && p.reloader.Active() {
		p.logger.Warn(fmt.Sprintf("lint reported problems in %s", dir))
		return nil
	}
	return zerr.With(zerr.Wrap(err, domain.ErrLintFailed.Error()), "dir", dir)
}
