package app

import (
	"context"
	"io"
	"slices"

	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/flaskblog/assetflow/internal/engine/devserver"
	"go.trai.ch/zerr"
)

// DefaultTask runs when no target is given on the command line.
const DefaultTask = "default"

// Action is the work behind a task. Progress goes to w.
type Action func(ctx context.Context, w io.Writer) error

type entry struct {
	task   domain.Task
	action Action
}

func task(name, description string, deps ...string) domain.Task {
	return domain.Task{Name: name, Description: description, Dependencies: deps}
}

// entries returns the task table.
func (s *session) entries() []entry {
	p, c := s.pipeline, s.critical
	table := []entry{
		{task("clean", "Remove the temp and dist directories"), writerOnly(p.Clean)},
		{task("styles", "Compile and prefix the SCSS entry points"), p.Styles},
		{task("lint", "Lint the application scripts"), p.Lint},
		{task("lint:test", "Lint the test specs"), p.LintTest},
		{task("wiredep", "Inject vendored packages into styles and templates"), writerOnly(p.Wiredep)},
		{task("html", "Bundle, minify and CDN-rewrite the templates", "styles"), p.HTML},
		{task("images", "Optimize images into dist"), p.Images},
		{task("fonts", "Collect vendored and local fonts"), writerOnly(p.Fonts)},
		{task("extras", "Copy non-template files into dist"), writerOnly(p.Extras)},
		{task("penthouse", "Extract critical CSS for every page", "styles"), c.Extract},
		{
			task("above-the-fold-css-minify", "Minify the critical CSS", "html", "penthouse"),
			writerOnly(c.Minify),
		},
		{
			task("above-the-fold-css", "Inline critical CSS into the dist templates", "above-the-fold-css-minify"),
			writerOnly(c.Inject),
		},
		{
			task("build", "Build the production site", "lint", "html", "images", "fonts", "extras", "above-the-fold-css"),
			writerOnly(p.ReportDist),
		},
		{task(DefaultTask, "Clean, then build", "clean"), s.runBuild},
		{
			task("serve", "Serve the site with live reload", "flask-restart", "styles", "fonts"),
			s.serve(devserver.DevVariant),
		},
		{
			task("serve:dist", "Serve the production build", "build", "flask-restart:dist"),
			s.serve(devserver.DistVariant),
		},
		{task("serve:test", "Serve the browser test suite"), s.serve(devserver.TestVariant)},
	}
	return append(table, s.profileEntries()...)
}

// profileEntries adds start, stop and restart tasks for every profile. The
// debug profile owns the unsuffixed names.
func (s *session) profileEntries() []entry {
	names := make([]string, 0, len(s.cfg.Profiles))
	for name := range s.cfg.Profiles {
		names = append(names, name)
	}
	slices.Sort(names)

	var out []entry
	for _, name := range names {
		profile := s.cfg.Profiles[name]
		suffix := ":" + name
		if name == domain.ProfileDebug {
			suffix = ""
		}
		out = append(out,
			entry{task("flask"+suffix, "Start the "+name+" companion"), func(ctx context.Context, _ io.Writer) error {
				if err := s.process.Start(ctx, profile); err != nil {
					return err
				}
				return s.process.WaitReady(ctx, profile)
			}},
			entry{task("flask-stop"+suffix, "Stop the "+name+" companion"), func(ctx context.Context, _ io.Writer) error {
				return s.process.Stop(ctx, profile)
			}},
			entry{task("flask-restart"+suffix, "Restart the "+name+" companion"), func(ctx context.Context, _ io.Writer) error {
				if err := s.process.Restart(ctx, profile); err != nil {
					return err
				}
				return s.process.WaitReady(ctx, profile)
			}},
		)
	}
	return out
}

func writerOnly(fn func(io.Writer) error) Action {
	return func(_ context.Context, w io.Writer) error {
		return fn(w)
	}
}

func (s *session) runBuild(ctx context.Context, _ io.Writer) error {
	return s.RunTasks(ctx, []string{"build"})
}

func (s *session) serve(variant func(*domain.Config) devserver.Variant) Action {
	return func(ctx context.Context, _ io.Writer) error {
		return s.server.Run(ctx, variant(s.cfg))
	}
}

// Execute implements ports.Executor over the task table.
func (s *session) Execute(ctx context.Context, t *domain.Task, stdout, _ io.Writer) error {
	action, ok := s.actions[t.Name]
	if !ok {
		return zerr.With(domain.ErrNoAction, "task", t.Name)
	}
	return action(ctx, stdout)
}

// RunTasks runs names and their prerequisites. It serves nested runs started
// by the default task and by the dev server's watch rules.
func (s *session) RunTasks(ctx context.Context, names []string) error {
	return s.sched.Run(ctx, s.graph, names, s.parallelism)
}
