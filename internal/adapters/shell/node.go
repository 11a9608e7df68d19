package shell

import (
	"context"

	"github.com/flaskblog/assetflow/internal/core/ports"
	"github.com/grindlemire/graft"
)

// NodeID is the unique identifier for the command runner Graft node.
const NodeID graft.ID = "adapter.shell"

func init() {
	graft.Register(graft.Node[ports.CommandRunner]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.CommandRunner, error) {
			// Tool output reaches the user through the task span.
			return NewRunner(nil), nil
		},
	})
}
