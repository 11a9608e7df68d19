package critical

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/flaskblog/assetflow/internal/adapters/fs"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/flaskblog/assetflow/internal/ui/output"
	"go.trai.ch/zerr"
)

var charsetRule = regexp.MustCompile(`@charset[^;]*;`)

// Minify strips the first @charset rule from every artifact and minifies it
// in place. An inline style block must not carry a charset.
func (e *Extractor) Minify(w io.Writer) error {
	paths, err := e.artifacts()
	if err != nil {
		return err
	}
	for _, path := range paths {
		data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a glob over the artifact dir
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrArtifactReadFailed.Error()), "artifact", filepath.Base(path))
		}
		if loc := charsetRule.FindIndex(data); loc != nil {
			data = append(data[:loc[0]:loc[0]], data[loc[1]:]...)
		}
		out, err := e.minifier.CSS(data)
		if err != nil {
			return zerr.With(err, "artifact", filepath.Base(path))
		}
		if err := fs.WriteFile(path, out); err != nil {
			return err
		}
		output.ReportSize(w, "critical", filepath.Base(path), out)
	}
	return nil
}

// Inject replaces the first critical-CSS placeholder of every dist template
// with the matching artifact wrapped in a style element.
func (e *Extractor) Inject(w io.Writer) error {
	dir := e.cfg.Abs(e.cfg.Paths.DistTemplates())
	templates, err := fs.Glob(dir, "**/*.html")
	if err != nil {
		return err
	}

	injected := 0
	for _, name := range templates {
		path := filepath.Join(dir, filepath.FromSlash(name))
		data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a glob over the dist dir
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", name)
		}
		out, ok, err := domain.InjectCritical(string(data), e.lookup)
		if err != nil {
			return zerr.With(err, "template", name)
		}
		if !ok {
			continue
		}
		if err := fs.WriteFile(path, []byte(out)); err != nil {
			return err
		}
		injected++
	}
	fmt.Fprintf(w, "critical css inlined into %d template(s)\n", injected)
	return nil
}
