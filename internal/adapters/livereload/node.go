package livereload

import (
	"context"

	"github.com/flaskblog/assetflow/internal/adapters/logger"
	"github.com/flaskblog/assetflow/internal/core/ports"
	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the live-reload hub Graft node.
const NodeID graft.ID = "adapter.livereload"

func init() {
	graft.Register(graft.Node[*Hub]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (*Hub, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewHub(log), nil
		},
	})
}
