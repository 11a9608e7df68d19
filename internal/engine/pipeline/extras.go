package pipeline

import (
	"fmt"
	"io"

	"github.com/flaskblog/assetflow/internal/adapters/fs"
)

// Extras copies every template-directory file that is neither a template nor
// compiled Python, dotfiles included.
func (p *Pipeline) Extras(w io.Writer) error {
	src := p.cfg.Abs(p.cfg.Paths.Templates())
	files, err := fs.GlobExcluding(src, "**", "**/*.html", "**/*.pyc")
	if err != nil {
		return err
	}
	if err := fs.CopyTree(src, p.cfg.Abs(p.cfg.Paths.DistTemplates()), files); err != nil {
		return err
	}
	fmt.Fprintf(w, "extras: %d file(s)\n", len(files))
	return nil
}
