package progrock

import (
	"io"

	"github.com/vito/progrock"
)

// Vertex implements ports.Vertex wrapping *progrock.VertexRecorder. Output
// written to the vertex lands in the tape for progress consumers and is teed
// line-by-line to the logger so it reaches the terminal.
type Vertex struct {
	vertex    *progrock.VertexRecorder
	stdoutLog *logWriter
	stderrLog *logWriter
}

// Stdout returns a writer to capture standard output stream.
func (v *Vertex) Stdout() io.Writer {
	return io.MultiWriter(v.vertex.Stdout(), v.stdoutLog)
}

// Stderr returns a writer to capture error output stream.
func (v *Vertex) Stderr() io.Writer {
	return io.MultiWriter(v.vertex.Stderr(), v.stderrLog)
}

// Complete marks the vertex as finished (successfully or with an error).
func (v *Vertex) Complete(err error) {
	v.stdoutLog.Flush()
	v.stderrLog.Flush()
	v.vertex.Done(err)
}

// Cached marks the vertex as a cache hit.
func (v *Vertex) Cached() {
	v.vertex.Cached()
}
