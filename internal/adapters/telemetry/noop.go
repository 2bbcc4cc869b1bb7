// Package telemetry provides the no-op telemetry adapter, used when no
// progress UI is attached.
package telemetry

import (
	"context"
	"io"

	"go.trai.ch/weft/internal/core/ports"
)

// NoOp implements ports.Telemetry without recording anything.
type NoOp struct{}

// NewNoOp creates a NoOp telemetry.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Record returns a vertex that discards everything.
func (t *NoOp) Record(ctx context.Context, _ string, _ ...ports.VertexOption) (context.Context, ports.Vertex) {
	v := &noOpVertex{}
	return ports.ContextWithVertex(ctx, v), v
}

// Close does nothing.
func (t *NoOp) Close() error { return nil }

type noOpVertex struct{}

func (v *noOpVertex) Stdout() io.Writer { return io.Discard }
func (v *noOpVertex) Stderr() io.Writer { return io.Discard }
func (v *noOpVertex) Cached()           {}
func (v *noOpVertex) Complete(error)    {}
