// Package optimize minifies and prefixes text assets.
package optimize

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/svg"
	"go.trai.ch/zerr"
)

const (
	mediaCSS  = "text/css"
	mediaHTML = "text/html"
	mediaSVG  = "image/svg+xml"
)

// Minifier implements ports.Minifier. CSS, HTML and SVG go through tdewolff/minify,
// JavaScript through esbuild.
type Minifier struct {
	m *minify.M
}

// NewMinifier creates a Minifier configured for server-rendered templates.
func NewMinifier() *Minifier {
	m := minify.New()
	m.AddFunc(mediaCSS, css.Minify)
	m.Add(mediaHTML, &html.Minifier{
		KeepSpecialComments: true,
		KeepDefaultAttrVals: true,
		KeepDocumentTags:    true,
		KeepEndTags:         true,
		KeepQuotes:          true,
		TemplateDelims:      html.GoTemplateDelims,
	})
	m.AddFunc(mediaSVG, svg.Minify)
	return &Minifier{m: m}
}

// CSS minifies a stylesheet.
func (mn *Minifier) CSS(src []byte) ([]byte, error) {
	return mn.run(mediaCSS, src)
}

// HTML minifies markup, keeping conditional comments and Jinja syntax.
// Every {% %}, {{ }} and {# #} span is swapped for a {{@N}} token the
// minifier copies verbatim, then restored. When a token does not come back
// the original bytes are returned.
func (mn *Minifier) HTML(src []byte) ([]byte, error) {
	shielded, spans := shieldTemplates(src)
	out, err := mn.run(mediaHTML, shielded)
	if err != nil {
		return nil, err
	}
	restored, ok := restoreTemplates(out, spans)
	if !ok {
		return src, nil
	}
	return restored, nil
}

// SVG minifies an SVG document. When the result lost an element id the
// original bytes are returned.
func (mn *Minifier) SVG(src []byte) ([]byte, error) {
	out, err := mn.run(mediaSVG, src)
	if err != nil {
		return nil, err
	}
	if !sameIDs(src, out) {
		return src, nil
	}
	return out, nil
}

// JS minifies a script with esbuild.
func (mn *Minifier) JS(src []byte) ([]byte, error) {
	res := api.Transform(string(src), api.TransformOptions{
		Loader:            api.LoaderJS,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LegalComments:     api.LegalCommentsNone,
	})
	if len(res.Errors) > 0 {
		return nil, messagesError(res.Errors, "js")
	}
	return res.Code, nil
}

func (mn *Minifier) run(mediatype string, src []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(src))
	if err := mn.m.Minify(mediatype, &buf, bytes.NewReader(src)); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrMinifyFailed.Error()), "type", mediatype)
	}
	return buf.Bytes(), nil
}

var (
	templatePattern = regexp.MustCompile(`(?s)\{%.*?%\}|\{\{.*?\}\}|\{#.*?#\}`)
	tokenPattern    = regexp.MustCompile(`\{\{@(\d+)\}\}`)
)

func shieldTemplates(src []byte) ([]byte, [][]byte) {
	var spans [][]byte
	out := templatePattern.ReplaceAllFunc(src, func(span []byte) []byte {
		spans = append(spans, bytes.Clone(span))
		return []byte("{{@" + strconv.Itoa(len(spans)-1) + "}}")
	})
	return out, spans
}

func restoreTemplates(src []byte, spans [][]byte) ([]byte, bool) {
	seen := make([]bool, len(spans))
	out := tokenPattern.ReplaceAllFunc(src, func(tok []byte) []byte {
		i, err := strconv.Atoi(string(tokenPattern.FindSubmatch(tok)[1]))
		if err != nil || i >= len(spans) {
			return tok
		}
		seen[i] = true
		return spans[i]
	})
	for _, ok := range seen {
		if !ok {
			return nil, false
		}
	}
	return out, true
}

var idPattern = regexp.MustCompile(`\bid\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>/]+))`)

func collectIDs(doc []byte) map[string]int {
	ids := make(map[string]int)
	for _, m := range idPattern.FindAllSubmatch(doc, -1) {
		for _, g := range m[1:] {
			if g != nil {
				ids[string(g)]++
				break
			}
		}
	}
	return ids
}

func sameIDs(before, after []byte) bool {
	want := collectIDs(before)
	got := collectIDs(after)
	for id, n := range want {
		if got[id] < n {
			return false
		}
	}
	return true
}

func messagesError(msgs []api.Message, kind string) error {
	first := msgs[0]
	err := zerr.With(zerr.Wrap(errors.New(first.Text), domain.ErrMinifyFailed.Error()), "type", kind)
	if first.Location != nil {
		err = zerr.With(err, "line", first.Location.Line)
	}
	return err
}
