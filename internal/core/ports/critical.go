package ports

import (
	"context"

	"github.com/flaskblog/assetflow/internal/core/domain"
)

// CriticalRenderer extracts the above-the-fold CSS of a rendered page.
//
//go:generate mockgen -source=critical.go -destination=mocks/mock_critical.go -package=mocks
type CriticalRenderer interface {
	Render(ctx context.Context, req domain.RenderRequest) (string, error)
}
