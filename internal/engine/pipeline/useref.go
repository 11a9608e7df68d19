package pipeline

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/flaskblog/assetflow/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/net/html"
)

var (
	buildStart = regexp.MustCompile(`^\s*build:(\w+)(?:\(([^)]*)\))?\s+(\S+)\s*$`)
	buildEnd   = regexp.MustCompile(`^\s*endbuild\s*$`)
)

// bundle is one <!-- build:... --> block of a template.
type bundle struct {
	kind   string
	alt    []string
	target string
	refs   []string
}

// tag returns the single reference that replaces the block.
func (b bundle) tag() string {
	if b.kind == "css" {
		return `<link rel="stylesheet" href="` + b.target + `">`
	}
	return `<script src="` + b.target + `"></script>`
}

// useref replaces every build block of src with a reference to its bundle and
// returns the bundles in document order. Everything outside the blocks is
// copied byte for byte.
func useref(src []byte) ([]byte, []bundle, error) {
	var (
		out     bytes.Buffer
		bundles []bundle
		cur     *bundle
	)
	out.Grow(len(src))

	z := html.NewTokenizer(bytes.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				break
			}
			return nil, nil, zerr.Wrap(z.Err(), domain.ErrMalformedBuildBlock.Error())
		}
		raw := z.Raw()

		switch {
		case tt == html.CommentToken && cur == nil:
			text := string(z.Text())
			if m := buildStart.FindStringSubmatch(text); m != nil {
				cur = &bundle{kind: m[1], alt: splitAlt(m[2]), target: m[3]}
				continue
			}
			if buildEnd.MatchString(text) {
				return nil, nil, zerr.With(domain.ErrMalformedBuildBlock, "reason", "endbuild without build")
			}
			out.Write(raw)

		case tt == html.CommentToken && buildEnd.MatchString(string(z.Text())):
			out.WriteString(cur.tag())
			bundles = append(bundles, *cur)
			cur = nil

		case cur != nil:
			if tt == html.StartTagToken || tt == html.SelfClosingTagToken {
				if ref, ok := assetRef(z); ok {
					cur.refs = append(cur.refs, ref)
				}
			}

		default:
			out.Write(raw)
		}
	}

	if cur != nil {
		return nil, nil, zerr.With(domain.ErrMalformedBuildBlock, "target", cur.target)
	}
	return out.Bytes(), bundles, nil
}

// assetRef returns the src of a script or the href of a stylesheet link.
func assetRef(z *html.Tokenizer) (string, bool) {
	name, hasAttr := z.TagName()
	var want string
	switch string(name) {
	case "script":
		want = "src"
	case "link":
		want = "href"
	default:
		return "", false
	}
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if string(key) == want && len(val) > 0 {
			return string(val), true
		}
	}
	return "", false
}

func splitAlt(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
