package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/flaskblog/assetflow/internal/adapters/fs"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"go.trai.ch/zerr"
)

var (
	htmlBowerBlock = regexp.MustCompile(`(?s)([ \t]*)(<!--\s*bower:(\w+)\s*-->)(.*?)(<!--\s*endbower\s*-->)`)
	scssBowerBlock = regexp.MustCompile(`(?s)([ \t]*)(//\s*bower:(\w+))(.*?)(//\s*endbower)`)
)

// injector rewrites one kind of source file.
type injector struct {
	block      *regexp.Regexp
	ignorePath *regexp.Regexp
	exclude    []string
	// tag formats a reference for a block type; ok is false for unsupported types.
	tag func(blockType, ref string) (string, bool)
}

// Wiredep injects references to the vendored packages into the SCSS entry
// points and the templates, in dependency order.
func (p *Pipeline) Wiredep(w io.Writer) error {
	v, err := p.loadVendor()
	if err != nil {
		return err
	}

	scssIgnore, err := regexp.Compile(p.cfg.Wiredep.SCSSIgnorePath)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrInvalidConfig.Error()), "field", "wiredep.scssIgnorePath")
	}
	htmlIgnore, err := regexp.Compile(p.cfg.Wiredep.HTMLIgnorePath)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrInvalidConfig.Error()), "field", "wiredep.htmlIgnorePath")
	}

	scss := injector{block: scssBowerBlock, ignorePath: scssIgnore, tag: scssTag}
	html := injector{block: htmlBowerBlock, ignorePath: htmlIgnore, exclude: p.cfg.Wiredep.HTMLExclude, tag: htmlTag}

	if err := p.inject(w, v, scss, p.cfg.Paths.Styles(), "*.scss"); err != nil {
		return err
	}
	return p.inject(w, v, html, p.cfg.Paths.Templates(), "**/*.html")
}

func (p *Pipeline) inject(w io.Writer, v *vendor, inj injector, dir, pattern string) error {
	absDir := p.cfg.Abs(dir)
	files, err := fs.Glob(absDir, pattern)
	if err != nil {
		return err
	}

	for _, f := range files {
		file := filepath.Join(absDir, filepath.FromSlash(f))
		src, err := os.ReadFile(file)
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", file)
		}

		out := inj.rewrite(src, func(blockType string) []string {
			return p.vendorRefs(v, inj, blockType, filepath.Dir(file))
		})
		if bytes.Equal(out, src) {
			continue
		}
		if err := fs.WriteFile(file, out); err != nil {
			return err
		}
		fmt.Fprintf(w, "wiredep: %s\n", p.rel(file))
	}
	return nil
}

// vendorRefs returns the references for blockType as seen from fromDir.
func (p *Pipeline) vendorRefs(v *vendor, inj injector, blockType, fromDir string) []string {
	vendorDir := p.cfg.Paths.Vendor
	files := v.files(vendorDir, func(pkg domain.VendorPackage, file string) bool {
		if strings.TrimPrefix(path.Ext(file), ".") != blockType {
			return false
		}
		return !slices.ContainsFunc(inj.exclude, func(ex string) bool {
			return ex == pkg.Name || fs.Match(ex, file)
		})
	})

	refs := make([]string, 0, len(files))
	for _, f := range files {
		r, err := filepath.Rel(fromDir, p.cfg.Abs(filepath.FromSlash(f)))
		if err != nil {
			continue
		}
		ref := filepath.ToSlash(r)
		if loc := inj.ignorePath.FindStringIndex(ref); loc != nil {
			ref = ref[:loc[0]] + ref[loc[1]:]
		}
		refs = append(refs, ref)
	}
	return refs
}

// rewrite replaces the contents of every bower block in src.
func (inj injector) rewrite(src []byte, refs func(blockType string) []string) []byte {
	return inj.block.ReplaceAllFunc(src, func(match []byte) []byte {
		m := inj.block.FindSubmatch(match)
		indent, start, blockType, end := string(m[1]), string(m[2]), string(m[3]), string(m[5])

		var b strings.Builder
		b.WriteString(indent)
		b.WriteString(start)
		b.WriteByte('\n')
		for _, ref := range refs(blockType) {
			if tag, ok := inj.tag(blockType, ref); ok {
				b.WriteString(indent)
				b.WriteString(tag)
				b.WriteByte('\n')
			}
		}
		b.WriteString(indent)
		b.WriteString(end)
		return []byte(b.String())
	})
}

func htmlTag(blockType, ref string) (string, bool) {
	switch blockType {
	case "js":
		return `<script src="` + ref + `"></script>`, true
	case "css":
		return `<link rel="stylesheet" href="` + ref + `" />`, true
	default:
		return "", false
	}
}

func scssTag(blockType, ref string) (string, bool) {
	switch blockType {
	case "scss", "css":
		return `@import "` + ref + `";`, true
	default:
		return "", false
	}
}
