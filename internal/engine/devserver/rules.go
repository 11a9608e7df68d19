package devserver

import (
	"path/filepath"
	"slices"

	"github.com/flaskblog/assetflow/internal/adapters/fs"
	"github.com/flaskblog/assetflow/internal/core/domain"
)

// Rule maps changed files to the work they trigger.
type Rule struct {
	// Patterns are doublestar globs over root-relative, slash-separated paths.
	Patterns []string
	// Tasks run, in order, when a matching file changes.
	Tasks []string
	// Reload asks connected browsers to reload the page.
	Reload bool
}

// matches reports whether rel matches one of the rule's patterns.
func (r Rule) matches(rel string) bool {
	return slices.ContainsFunc(r.Patterns, func(p string) bool {
		return fs.Match(p, rel)
	})
}

// DevRules returns the watch rules of the development server.
func DevRules(cfg *domain.Config) []Rule {
	p := cfg.Paths
	return []Rule{
		{
			Patterns: []string{
				slash(p.Templates(), "**/*.html"),
				slash(p.Scripts(), "**/*.js"),
				slash(p.Images(), "**/*"),
				slash(p.GeneratedFonts(), "**/*"),
			},
			Reload: true,
		},
		{Patterns: []string{slash(p.Styles(), "**/*.scss")}, Tasks: []string{"styles"}},
		{Patterns: []string{slash(p.Fonts(), "**/*")}, Tasks: []string{"fonts"}},
		{Patterns: []string{filepath.ToSlash(p.Bower)}, Tasks: []string{"wiredep", "fonts"}},
		{Patterns: []string{slash(p.App, "**/*.py")}, Tasks: []string{"flask-restart"}},
	}
}

// TestRules returns the watch rules of the browser test server.
func TestRules(cfg *domain.Config) []Rule {
	return []Rule{
		{Patterns: []string{slash(cfg.Paths.Test, "spec/**/*.js")}, Tasks: []string{"lint:test"}, Reload: true},
	}
}

func slash(dir, pattern string) string {
	return filepath.ToSlash(dir) + "/" + pattern
}

// plan is the work triggered by one batch of changes.
type plan struct {
	tasks  []string
	reload string
}

// planFor collects the tasks and the reload triggered by paths. Tasks keep
// rule order and run once each.
func planFor(rules []Rule, paths []string) plan {
	var pl plan
	for _, rule := range rules {
		for _, rel := range paths {
			if !rule.matches(rel) {
				continue
			}
			for _, t := range rule.Tasks {
				if !slices.Contains(pl.tasks, t) {
					pl.tasks = append(pl.tasks, t)
				}
			}
			if rule.Reload && pl.reload == "" {
				pl.reload = rel
			}
		}
	}
	return pl
}
