package pipeline

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/flaskblog/assetflow/internal/adapters/fs"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"golang.org/x/net/html"
)

var versionPlaceholder = regexp.MustCompile(`\$\{\s*version\s*\}`)

// cdnizer rewrites vendored script and stylesheet references to CDN URLs.
type cdnizer struct {
	rules    []domain.CDNRule
	versions map[string]string
}

func newCDNizer(rules []domain.CDNRule, v *vendor) cdnizer {
	versions := make(map[string]string, len(v.installed))
	for name, pkg := range v.installed {
		if pkg.Version != "" {
			versions[name] = pkg.Version
		}
	}
	return cdnizer{rules: rules, versions: versions}
}

// lookup returns the CDN URL for ref, if an installed package's rule matches.
func (c cdnizer) lookup(ref string) (string, bool) {
	clean := ref
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	clean = strings.TrimLeft(clean, "/")
	for _, rule := range c.rules {
		if !fs.Match(rule.File, clean) {
			continue
		}
		version, ok := c.versions[rule.Package]
		if !ok {
			continue
		}
		return versionPlaceholder.ReplaceAllLiteralString(rule.CDN, version), true
	}
	return "", false
}

// rewrite returns src with every matching reference replaced.
func (c cdnizer) rewrite(src []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(src))

	z := html.NewTokenizer(bytes.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if !errors.Is(z.Err(), io.EOF) {
				// Keep what the tokenizer could not read.
				out.Write(z.Raw())
			}
			break
		}
		// TagName and TagAttr lowercase the token buffer in place.
		raw := bytes.Clone(z.Raw())
		if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
			if ref, ok := assetRef(z); ok {
				if url, ok := c.lookup(ref); ok {
					out.Write(bytes.Replace(raw, []byte(ref), []byte(url), 1))
					continue
				}
			}
		}
		out.Write(raw)
	}
	return out.Bytes()
}
