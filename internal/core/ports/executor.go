// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"

	"github.com/flaskblog/assetflow/internal/core/domain"
)

// Executor runs the action registered for a task.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the task's action. Progress output goes to stdout and stderr.
	// It returns an error if the action fails.
	Execute(ctx context.Context, task *domain.Task, stdout, stderr io.Writer) error
}

// CommandRunner runs external tools such as the script linter or image optimizers.
type CommandRunner interface {
	// Run starts the command and waits for it to exit.
	Run(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error
	// Available reports whether the named executable can be found.
	Available(name string) bool
}
