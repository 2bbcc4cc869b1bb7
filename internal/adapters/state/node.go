package state

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/weft/internal/core/ports"
)

// NodeID is the unique identifier for the record store adapter node.
const NodeID graft.ID = "adapter.record_store"

func init() {
	graft.Register(graft.Node[ports.RecordStore]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.RecordStore, error) {
			return NewStore(DefaultPath)
		},
	})
}
