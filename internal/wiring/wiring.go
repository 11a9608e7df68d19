// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "github.com/flaskblog/assetflow/internal/adapters/config"
	_ "github.com/flaskblog/assetflow/internal/adapters/livereload"
	_ "github.com/flaskblog/assetflow/internal/adapters/logger"
	_ "github.com/flaskblog/assetflow/internal/adapters/shell"
	_ "github.com/flaskblog/assetflow/internal/adapters/watcher"
	// Register app nodes.
	_ "github.com/flaskblog/assetflow/internal/app"
)
