package ports

import "github.com/flaskblog/assetflow/internal/core/domain"

// ConfigLoader defines the interface for loading the pipeline configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration for the project rooted at cwd.
	// A missing configuration file yields the defaults.
	Load(cwd string) (*domain.Config, error)
}
