// Package devserver serves the blog during development with live reload.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/flaskblog/assetflow/internal/adapters/watcher"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/flaskblog/assetflow/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// TaskRunner runs named tasks with their prerequisites.
type TaskRunner interface {
	RunTasks(ctx context.Context, names []string) error
}

// LiveReload is the browser notification hub the server mounts.
type LiveReload interface {
	ports.Reloader
	SetActive(active bool)
	Register(mux *http.ServeMux)
}

// Variant describes one way of serving the site.
type Variant struct {
	Name string
	Port int
	// Upstream is the companion URL requests are proxied to. When empty the
	// variant serves StaticRoot instead.
	Upstream string
	// StaticRoot is a project-relative directory served at "/".
	StaticRoot string
	// Mounts maps URL prefixes to project-relative directories.
	Mounts map[string]string
	Rules  []Rule
}

// DevVariant proxies to the debug companion and watches the sources.
func DevVariant(cfg *domain.Config) Variant {
	return Variant{
		Name:     "serve",
		Port:     cfg.Serve.Port,
		Upstream: cfg.Profiles[domain.ProfileDebug].BaseURL(),
		Rules:    DevRules(cfg),
	}
}

// DistVariant proxies to the dist companion without watching.
func DistVariant(cfg *domain.Config) Variant {
	return Variant{
		Name:     "serve:dist",
		Port:     cfg.Serve.DistPort,
		Upstream: cfg.Profiles[domain.ProfileDist].BaseURL(),
	}
}

// TestVariant serves the browser test suite.
func TestVariant(cfg *domain.Config) Variant {
	return Variant{
		Name:       "serve:test",
		Port:       cfg.Serve.TestPort,
		StaticRoot: cfg.Paths.Test,
		Mounts:     map[string]string{"/bower_components": cfg.Paths.Vendor},
		Rules:      TestRules(cfg),
	}
}

// Server runs a Variant until its context is cancelled.
type Server struct {
	cfg     *domain.Config
	hub     LiveReload
	watcher ports.Watcher
	tasks   TaskRunner
	logger  ports.Logger
}

// New creates a Server.
func New(cfg *domain.Config, hub LiveReload, w ports.Watcher, tasks TaskRunner, logger ports.Logger) *Server {
	return &Server{cfg: cfg, hub: hub, watcher: w, tasks: tasks, logger: logger}
}

// Handler builds the HTTP handler of v.
func (s *Server) Handler(v Variant) (http.Handler, error) {
	mux := http.NewServeMux()
	s.hub.Register(mux)

	for prefix, dir := range v.Mounts {
		mux.Handle(prefix+"/", http.StripPrefix(prefix, staticHandler(s.cfg.Abs(dir))))
	}

	switch {
	case v.Upstream != "":
		target, err := url.Parse(v.Upstream)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrInvalidConfig.Error()), "upstream", v.Upstream)
		}
		mux.Handle("/", newProxy(target, s.logger))
	case v.StaticRoot != "":
		mux.Handle("/", staticHandler(s.cfg.Abs(v.StaticRoot)))
	default:
		return nil, zerr.With(domain.ErrInvalidConfig, "variant", v.Name)
	}
	return mux, nil
}

// Run serves v and applies its watch rules until ctx is cancelled.
// Live reload is marked active for the lifetime of the call.
func (s *Server) Run(ctx context.Context, v Variant) error {
	handler, err := s.Handler(v)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(v.Port)))
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrServerFailed.Error()), "port", v.Port)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.hub.SetActive(true)
	defer s.hub.SetActive(false)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return zerr.With(zerr.Wrap(err, domain.ErrServerFailed.Error()), "variant", v.Name)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if len(v.Rules) > 0 {
		g.Go(func() error {
			return s.watch(ctx, v.Rules)
		})
	}

	s.logger.Info(fmt.Sprintf("%s listening on http://localhost:%d", v.Name, ln.Addr().(*net.TCPAddr).Port))
	return g.Wait()
}

// watch applies rules to debounced batches of changes until ctx ends.
func (s *Server) watch(ctx context.Context, rules []Rule) error {
	if err := s.watcher.Start(ctx, s.cfg.Root); err != nil {
		return err
	}
	defer func() { _ = s.watcher.Stop() }()

	batches := make(chan []string)
	deb := watcher.NewDebouncer(s.cfg.Serve.Debounce, func(paths []string) {
		select {
		case batches <- paths:
		case <-ctx.Done():
		}
	})
	defer deb.Stop()

	go func() {
		for event := range s.watcher.Events() {
			rel, err := filepath.Rel(s.cfg.Root, event.Path)
			if err != nil {
				continue
			}
			deb.Add(filepath.ToSlash(rel))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-batches:
			s.apply(ctx, planFor(rules, paths))
		}
	}
}

// apply runs the tasks of pl, then reloads the browsers. Task failures are
// logged; the server keeps running.
func (s *Server) apply(ctx context.Context, pl plan) {
	if len(pl.tasks) > 0 {
		if err := s.tasks.RunTasks(ctx, pl.tasks); err != nil && ctx.Err() == nil {
			s.logger.Error(err)
		}
	}
	if pl.reload != "" {
		s.hub.Reload(pl.reload)
	}
}
