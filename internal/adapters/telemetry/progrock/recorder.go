// Package progrock provides the Progrock implementation of the telemetry adapter.
package progrock

import (
	"context"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/weft/internal/core/ports"
)

// Recorder implements the ports.Telemetry interface using the vito/progrock library.
type Recorder struct {
	w      progrock.Writer
	rec    *progrock.Recorder
	logger ports.Logger
}

// New creates a new Recorder with a default tape. Vertex output is teed to
// the logger so command output reaches the terminal.
func New(logger ports.Logger) ports.Telemetry {
	tape := progrock.NewTape()
	return NewRecorder(tape, logger)
}

// NewRecorder creates a new Recorder with the given writer.
func NewRecorder(w progrock.Writer, logger ports.Logger) *Recorder {
	rec := progrock.NewRecorder(w)
	return &Recorder{
		w:      w,
		rec:    rec,
		logger: logger,
	}
}

// Record starts recording a new vertex.
func (r *Recorder) Record(ctx context.Context, name string, _ ...ports.VertexOption) (context.Context, ports.Vertex) {
	d := digest.FromString(name)
	v := r.rec.Vertex(d, name)
	vertex := &Vertex{
		vertex:    v,
		stdoutLog: &logWriter{logger: r.logger, name: name},
		stderrLog: &logWriter{logger: r.logger, name: name, stderr: true},
	}
	return ports.ContextWithVertex(ctx, vertex), vertex
}

// Close flushes and closes the recording session.
func (r *Recorder) Close() error {
	// If the writer implements Close, call it.
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
