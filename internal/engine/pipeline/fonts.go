package pipeline

import (
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/flaskblog/assetflow/internal/adapters/fs"
	"github.com/flaskblog/assetflow/internal/core/domain"
)

const fontPattern = "*.{eot,svg,ttf,woff,woff2}"

// Fonts copies the vendored font files and the application's own fonts to
// the generated and the dist font directories. Vendored fonts are flattened
// to their base name.
func (p *Pipeline) Fonts(w io.Writer) error {
	v, err := p.loadVendor()
	if err != nil {
		return err
	}

	type font struct{ src, rel string }
	var fonts []font
	for _, f := range v.files(p.cfg.Paths.Vendor, func(_ domain.VendorPackage, file string) bool {
		return fs.MatchBase(fontPattern, file)
	}) {
		fonts = append(fonts, font{src: p.cfg.Abs(filepath.FromSlash(f)), rel: path.Base(f)})
	}

	ownDir := p.cfg.Abs(p.cfg.Paths.Fonts())
	own, err := fs.Glob(ownDir, "**")
	if err != nil {
		return err
	}
	for _, rel := range own {
		fonts = append(fonts, font{src: filepath.Join(ownDir, filepath.FromSlash(rel)), rel: rel})
	}

	dsts := []string{
		p.cfg.Abs(p.cfg.Paths.GeneratedFonts()),
		filepath.Join(p.cfg.Abs(p.cfg.Paths.DistStatic()), "fonts"),
	}
	for _, f := range fonts {
		for _, dst := range dsts {
			if err := fs.CopyFile(f.src, filepath.Join(dst, filepath.FromSlash(f.rel))); err != nil {
				return err
			}
		}
	}
	fmt.Fprintf(w, "fonts: %d file(s)\n", len(fonts))
	return nil
}
