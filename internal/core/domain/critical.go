package domain

import (
	"path/filepath"
	"regexp"
	"strings"

	"go.trai.ch/zerr"
)

// JobDescriptor asks for the critical CSS of one page.
type JobDescriptor struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// JobList is the body returned by the companion's job list endpoint.
type JobList struct {
	List []JobDescriptor `json:"list"`
}

// Validate rejects descriptors that would write outside the artifact directory.
func (j JobDescriptor) Validate() error {
	if j.Filename == "" {
		return zerr.With(ErrInvalidJob, "reason", "empty filename")
	}
	if filepath.Base(j.Filename) != j.Filename || j.Filename == "." || j.Filename == ".." {
		return zerr.With(zerr.With(ErrInvalidJob, "reason", "filename must not contain a path"), "filename", j.Filename)
	}
	return nil
}

// PageURL joins the job URL to the companion base URL.
func (j JobDescriptor) PageURL(base string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(j.URL, "/")
}

// RenderRequest is the input of a critical-CSS renderer.
type RenderRequest struct {
	URL        string
	Stylesheet string
	Width      int
	Height     int
}

// placeholderPattern matches {# inject_critical:<name>: #}. The surrounding
// spaces are optional.
var placeholderPattern = regexp.MustCompile(`\{# *inject_critical:([^:]*): *#\}`)

// FindPlaceholder returns the artifact name and byte span of the first
// placeholder in text. ok is false when text has none.
func FindPlaceholder(text string) (name string, start, end int, ok bool) {
	loc := placeholderPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", 0, 0, false
	}
	return text[loc[2]:loc[3]], loc[0], loc[1], true
}

// InjectCritical replaces the first placeholder in text with an inline style
// block built from lookup. Later placeholders are left untouched.
func InjectCritical(text string, lookup func(name string) (string, error)) (string, bool, error) {
	name, start, end, ok := FindPlaceholder(text)
	if !ok {
		return text, false, nil
	}
	css, err := lookup(name)
	if err != nil {
		return text, false, err
	}
	var b strings.Builder
	b.Grow(len(text) + len(css))
	b.WriteString(text[:start])
	b.WriteString("<style>")
	b.WriteString(css)
	b.WriteString("</style>")
	b.WriteString(text[end:])
	return b.String(), true, nil
}
