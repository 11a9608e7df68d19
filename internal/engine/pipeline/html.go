package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/flaskblog/assetflow/internal/adapters/fs"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/flaskblog/assetflow/internal/ui/output"
	"go.trai.ch/zerr"
)

// HTML bundles the assets referenced by each template's build blocks,
// minifies the templates, points vendored references at the CDN and writes
// the result to the dist templates directory.
func (p *Pipeline) HTML(ctx context.Context, w io.Writer) error {
	tplDir := p.cfg.Abs(p.cfg.Paths.Templates())
	templates, err := fs.Glob(tplDir, "**/*.html")
	if err != nil {
		return err
	}

	v, err := p.loadVendor()
	if err != nil {
		return err
	}
	cdn := newCDNizer(p.cfg.HTML.CDN, v)

	outDir := p.cfg.Abs(p.cfg.Paths.DistTemplates())
	written := make(map[string]bool)
	for _, name := range templates {
		if err := ctx.Err(); err != nil {
			return err
		}

		src, err := os.ReadFile(filepath.Join(tplDir, filepath.FromSlash(name)))
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", name)
		}

		out, bundles, err := useref(src)
		if err != nil {
			return zerr.With(err, "template", name)
		}
		for _, b := range bundles {
			if written[b.target] {
				continue
			}
			if err := p.writeBundle(w, b); err != nil {
				return zerr.With(err, "template", name)
			}
			written[b.target] = true
		}

		out = bytes.ReplaceAll(out, []byte(p.cfg.HTML.StaticGenPrefix), []byte(p.cfg.HTML.StaticPrefix))
		if out, err = p.minifier.HTML(out); err != nil {
			return zerr.With(err, "template", name)
		}
		out = cdn.rewrite(out)

		if err := fs.WriteFile(filepath.Join(outDir, filepath.FromSlash(name)), out); err != nil {
			return err
		}
		fmt.Fprintf(w, "html %s\n", name)
	}
	return nil
}

// writeBundle concatenates and minifies the files of one build block.
func (p *Pipeline) writeBundle(w io.Writer, b bundle) error {
	searchPaths := p.cfg.HTML.SearchPaths
	if len(b.alt) > 0 {
		searchPaths = b.alt
	}

	var buf bytes.Buffer
	for _, ref := range b.refs {
		data, err := p.resolveRef(ref, searchPaths)
		if err != nil {
			return zerr.With(err, "bundle", b.target)
		}
		buf.Write(data)
		if len(data) > 0 && data[len(data)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}

	var (
		out []byte
		err error
	)
	switch b.kind {
	case "css":
		out, err = p.minifier.CSS(buf.Bytes())
	case "js":
		out, err = p.minifier.JS(buf.Bytes())
	default:
		out = buf.Bytes()
	}
	if err != nil {
		return zerr.With(err, "bundle", b.target)
	}

	dst := filepath.Join(p.cfg.Abs(p.cfg.Paths.DistApp), filepath.FromSlash(strings.TrimLeft(b.target, "/")))
	if err := fs.WriteFile(dst, out); err != nil {
		return err
	}
	if b.kind == "css" {
		output.ReportSize(w, "css", b.target, out)
	} else {
		fmt.Fprintf(w, "%s %s\n", b.kind, b.target)
	}
	return nil
}

// resolveRef reads the first existing file for ref below the search paths.
func (p *Pipeline) resolveRef(ref string, searchPaths []string) ([]byte, error) {
	clean := ref
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	clean = filepath.FromSlash(strings.TrimLeft(clean, "/"))

	for _, sp := range searchPaths {
		data, err := os.ReadFile(filepath.Join(p.cfg.Abs(sp), clean))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, iofs.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "ref", ref)
		}
	}
	return nil, zerr.With(zerr.With(domain.ErrBundleSourceNotFound, "ref", ref), "search_paths", strings.Join(searchPaths, ","))
}
