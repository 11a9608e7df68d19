package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/flaskblog/assetflow/internal/adapters/fs"
	"go.trai.ch/zerr"
)

// Styles compiles every non-partial SCSS entry point into the generated
// styles directory and asks connected browsers to refresh their CSS.
func (p *Pipeline) Styles(ctx context.Context, w io.Writer) error {
	srcDir := p.cfg.Abs(p.cfg.Paths.Styles())
	entries, err := fs.GlobExcluding(srcDir, "*.scss", "_*")
	if err != nil {
		return err
	}

	includes := make([]string, 0, len(p.cfg.Styles.IncludePaths))
	for _, inc := range p.cfg.Styles.IncludePaths {
		includes = append(includes, p.cfg.Abs(inc))
	}

	outDir := p.cfg.Abs(p.cfg.Paths.GeneratedStyles())
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := p.compiler.Compile(ctx, filepath.Join(srcDir, entry), includes)
		if err != nil {
			return err
		}

		css, err := p.prefixer.Prefix([]byte(out.CSS), p.cfg.Styles.Targets)
		if err != nil {
			return zerr.With(err, "path", entry)
		}
		if p.cfg.Styles.SourceMaps && out.SourceMap != "" {
			css = appendSourceMap(css, out.SourceMap)
		}

		dst := filepath.Join(outDir, strings.TrimSuffix(entry, path.Ext(entry))+".css")
		if err := fs.WriteFile(dst, css); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s -> %s\n", entry, p.rel(dst))

		if p.reloader != nil && p.reloader.Active() {
			p.reloader.ReloadCSS(p.rel(dst))
		}
	}
	return nil
}

func appendSourceMap(css []byte, sourceMap string) []byte {
	out := make([]byte, 0, len(css)+len(sourceMap)*4/3+64)
	out = append(out, css...)
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	out = append(out, "/*# sourceMappingURL=data:application/json;charset=utf-8;base64,"...)
	out = base64.StdEncoding.AppendEncode(out, []byte(sourceMap))
	return append(out, " */\n"...)
}
