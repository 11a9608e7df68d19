package ports

import (
	"context"

	"github.com/flaskblog/assetflow/internal/core/domain"
)

// ProcessController manages the companion application process.
//
//go:generate mockgen -source=process.go -destination=mocks/mock_process.go -package=mocks
type ProcessController interface {
	// Start launches the companion under the profile unless its PID file names a live process.
	Start(ctx context.Context, profile domain.Profile) error
	// Stop terminates the process named by the profile's PID file. A missing
	// PID file or process is not an error.
	Stop(ctx context.Context, profile domain.Profile) error
	// Restart stops then starts the profile.
	Restart(ctx context.Context, profile domain.Profile) error
	// WaitReady blocks until the profile answers HTTP requests or the probe budget runs out.
	WaitReady(ctx context.Context, profile domain.Profile) error
}
