package app

import (
	"github.com/flaskblog/assetflow/internal/adapters/logger"
	"github.com/flaskblog/assetflow/internal/core/ports"
)

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App    *App
	Logger ports.Logger
	// Console is the concrete logger, exposed so the CLI can switch JSON and
	// verbose output.
	Console *logger.Logger
}
