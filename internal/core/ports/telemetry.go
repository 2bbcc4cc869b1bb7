package ports

import (
	"context"
	"io"
)

// Telemetry records per-step progress as vertices.
//
//go:generate go run go.uber.org/mock/mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks
type Telemetry interface {
	// Record starts recording a vertex for the named step and attaches it to
	// the returned context.
	Record(ctx context.Context, name string, opts ...VertexOption) (context.Context, Vertex)

	// Close flushes and closes the recording session.
	Close() error
}

// Vertex represents one step's recorded execution.
type Vertex interface {
	// Stdout returns a writer capturing the step's standard output.
	Stdout() io.Writer
	// Stderr returns a writer capturing the step's error output.
	Stderr() io.Writer
	// Cached marks the vertex as skipped-as-fresh.
	Cached()
	// Complete marks the vertex as finished, successfully or with an error.
	Complete(err error)
}

// VertexConfig holds configuration for a starting vertex.
type VertexConfig struct{}

// VertexOption is a functional option for configuring a vertex.
type VertexOption func(*VertexConfig)

type vertexContextKey struct{}

// ContextWithVertex attaches a vertex to the context.
func ContextWithVertex(ctx context.Context, v Vertex) context.Context {
	return context.WithValue(ctx, vertexContextKey{}, v)
}

// VertexFromContext returns the vertex attached to the context, if any.
func VertexFromContext(ctx context.Context) (Vertex, bool) {
	v, ok := ctx.Value(vertexContextKey{}).(Vertex)
	return v, ok
}
