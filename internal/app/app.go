// Package app implements the application layer for assetflow.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"

	"github.com/flaskblog/assetflow/internal/adapters/cas"
	"github.com/flaskblog/assetflow/internal/adapters/chrome"
	"github.com/flaskblog/assetflow/internal/adapters/linear"
	"github.com/flaskblog/assetflow/internal/adapters/livereload"
	"github.com/flaskblog/assetflow/internal/adapters/optimize"
	"github.com/flaskblog/assetflow/internal/adapters/process"
	"github.com/flaskblog/assetflow/internal/adapters/sass"
	"github.com/flaskblog/assetflow/internal/adapters/telemetry"
	"github.com/flaskblog/assetflow/internal/adapters/tui"
	"github.com/flaskblog/assetflow/internal/core/domain"
	"github.com/flaskblog/assetflow/internal/core/ports"
	"github.com/flaskblog/assetflow/internal/engine/critical"
	"github.com/flaskblog/assetflow/internal/engine/devserver"
	"github.com/flaskblog/assetflow/internal/engine/pipeline"
	"github.com/flaskblog/assetflow/internal/engine/scheduler"
	"github.com/flaskblog/assetflow/internal/ui/output"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	runner       ports.CommandRunner
	hub          *livereload.Hub
	watcher      ports.Watcher
	logger       ports.Logger

	stdout io.Writer
	stderr io.Writer

	newProcess  func(*domain.Config, ports.Logger) ports.ProcessController
	newRenderer func() criticalRenderer
}

// criticalRenderer is a ports.CriticalRenderer holding a browser.
type criticalRenderer interface {
	ports.CriticalRenderer
	Close() error
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	runner ports.CommandRunner,
	hub *livereload.Hub,
	watcher ports.Watcher,
	log ports.Logger,
) *App {
	return &App{
		configLoader: loader,
		runner:       runner,
		hub:          hub,
		watcher:      watcher,
		logger:       log,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		newProcess: func(cfg *domain.Config, log ports.Logger) ports.ProcessController {
			return process.NewController(cfg, log)
		},
		newRenderer: func() criticalRenderer { return chrome.NewRenderer() },
	}
}

// WithOutput redirects task output and progress lines.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithProcessController replaces the companion process controller.
// This is primarily used for testing.
func (a *App) WithProcessController(pc ports.ProcessController) *App {
	a.newProcess = func(*domain.Config, ports.Logger) ports.ProcessController { return pc }
	return a
}

// Output modes for RunOptions.Output.
const (
	OutputAuto   = "auto"
	OutputTUI    = "tui"
	OutputLinear = "linear"
)

// RunOptions configuration for the Run method.
type RunOptions struct {
	// Dir is the directory the project configuration is searched from.
	Dir string
	// Parallelism bounds concurrently running tasks; zero means one per CPU.
	Parallelism int
	// Output selects the progress renderer. Empty means OutputAuto, which
	// picks the dashboard on an interactive terminal outside CI.
	Output string
}

// Run executes the named tasks and their prerequisites.
func (a *App) Run(ctx context.Context, targetNames []string, opts RunOptions) error {
	// 1. Load the configuration
	cfg, err := a.load(opts.Dir)
	if err != nil {
		return err
	}

	// 2. Validate targets
	if len(targetNames) == 0 {
		return domain.ErrNoTargetsSpecified
	}

	// 3. Initialize renderer and telemetry
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	renderer, err := a.renderer(opts.Output, cancel)
	if err != nil {
		return err
	}
	shutdown := telemetry.Install(renderer)
	defer func() {
		_ = shutdown(context.WithoutCancel(ctx))
	}()
	tracer := telemetry.NewOTelTracer("assetflow").WithRenderer(renderer)

	// 4. Assemble the task session
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	s, err := a.newSession(cfg, tracer, parallelism)
	if err != nil {
		return err
	}
	defer s.close(a.logger)

	// 5. Run renderer and scheduler concurrently
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return renderer.Start(ctx)
	})
	g.Go(func() error {
		defer func() {
			_ = renderer.Stop()
		}()
		if err := s.RunTasks(ctx, targetNames); err != nil {
			return errors.Join(domain.ErrBuildExecutionFailed, err)
		}
		return nil
	})
	return g.Wait()
}

func (a *App) renderer(mode string, interrupt func()) (ports.Renderer, error) {
	switch mode {
	case "", OutputAuto:
		if output.IsTerminal(a.stderr) && !output.IsCI() {
			return tui.NewRenderer(a.stderr, interrupt), nil
		}
		return linear.NewRenderer(a.stdout, a.stderr), nil
	case OutputTUI:
		return tui.NewRenderer(a.stderr, interrupt), nil
	case OutputLinear:
		return linear.NewRenderer(a.stdout, a.stderr), nil
	default:
		return nil, zerr.With(domain.ErrInvalidConfig, "output", mode)
	}
}

// Tasks returns the task table sorted by name.
func (a *App) Tasks(dir string) ([]domain.Task, error) {
	cfg, err := a.load(dir)
	if err != nil {
		return nil, err
	}
	s, err := a.newSession(cfg, nil, 1)
	if err != nil {
		return nil, err
	}
	defer s.close(a.logger)

	tasks := make([]domain.Task, 0, s.graph.TaskCount())
	for _, name := range s.graph.Names() {
		t, _ := s.graph.GetTask(name)
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (a *App) load(dir string) (*domain.Config, error) {
	if dir == "" {
		dir = "."
	}
	cfg, err := a.configLoader.Load(dir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session holds the components of one invocation.
type session struct {
	cfg         *domain.Config
	graph       *domain.Graph
	actions     map[string]Action
	sched       *scheduler.Scheduler
	parallelism int

	pipeline *pipeline.Pipeline
	critical *critical.Extractor
	server   *devserver.Server
	process  ports.ProcessController

	closers []func() error
}

func (a *App) newSession(cfg *domain.Config, tracer ports.Tracer, parallelism int) (*session, error) {
	compiler := sass.NewCompiler(cfg.Styles.DartSass, cfg.Styles.SourceMaps, a.logger)
	minifier := optimize.NewMinifier()
	store := cas.NewStore(cfg.Abs(cfg.Paths.Cache()))
	pc := a.newProcess(cfg, a.logger)
	renderer := a.newRenderer()

	s := &session{
		cfg:         cfg,
		graph:       domain.NewGraph(),
		actions:     make(map[string]Action),
		parallelism: parallelism,
		pipeline:    pipeline.New(cfg, a.runner, compiler, optimize.NewPrefixer(), minifier, store, a.hub, a.logger),
		critical:    critical.New(cfg, pc, renderer, minifier, a.logger),
		process:     pc,
		closers:     []func() error{compiler.Close, renderer.Close},
	}
	s.server = devserver.New(cfg, a.hub, a.watcher, s, a.logger)
	s.sched = scheduler.NewScheduler(s, tracer)

	for _, e := range s.entries() {
		if err := s.graph.AddTask(&e.task); err != nil {
			return nil, err
		}
		s.actions[e.task.Name] = e.action
	}
	if err := s.graph.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) close(log ports.Logger) {
	for _, c := range slices.Backward(s.closers) {
		if err := c(); err != nil {
			log.Warn(fmt.Sprintf("shutdown: %v", err))
		}
	}
}
