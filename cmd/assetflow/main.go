// Package main is the entry point for the assetflow tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/flaskblog/assetflow/cmd/assetflow/commands"
	"github.com/flaskblog/assetflow/internal/app"
	"github.com/flaskblog/assetflow/internal/core/domain"
	_ "github.com/flaskblog/assetflow/internal/wiring"
	"github.com/grindlemire/graft"
)

// exitInterrupted is the conventional status for a run stopped by SIGINT.
const exitInterrupted = 130

// ComponentProvider is a function that returns the application components.
type ComponentProvider func(context.Context) (*app.Components, func(), error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr, func(ctx context.Context) (*app.Components, func(), error) {
		c, _, err := graft.ExecuteFor[*app.Components](ctx)
		return c, func() {}, err
	}))
}

func run(
	ctx context.Context,
	args []string,
	stderr io.Writer,
	provider ComponentProvider,
	opts ...func(*app.App),
) int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Initialize application components
	components, cleanup, err := provider(ctx)
	if err != nil {
		// Logger is not available yet if initialization failed
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}
	defer cleanup()

	for _, opt := range opts {
		opt(components.App)
	}

	// 2. Interface - CLI
	cli := commands.New(components.App)
	if components.Console != nil {
		cli.SetConsole(components.Console)
	}
	cli.SetArgs(args)
	cli.SetOutput(os.Stdout, stderr)

	// 3. Execution
	if err := cli.Execute(ctx); err != nil {
		switch {
		case ctx.Err() != nil && errors.Is(err, context.Canceled):
			return exitInterrupted
		case errors.Is(err, domain.ErrBuildExecutionFailed):
			// The renderer already reported the failing task.
			return 1
		}
		components.Logger.Error(err)
		return 1
	}
	return 0
}
