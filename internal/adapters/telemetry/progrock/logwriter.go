package progrock

import (
	"bytes"
	"strings"

	"go.trai.ch/weft/internal/core/ports"
	"go.trai.ch/zerr"
)

// logWriter splits a vertex output stream into lines and forwards each one
// to the logger, prefixed with the step name so interleaved output from
// parallel steps stays attributable.
type logWriter struct {
	logger ports.Logger
	name   string
	stderr bool
	buf    []byte
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.buf = append(w.buf, p...)

	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}

	return len(p), nil
}

// Flush logs whatever remains after the final newline.
func (w *logWriter) Flush() {
	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
}

func (w *logWriter) logLine(line []byte) {
	msg := strings.TrimSuffix(string(line), "\r")
	msg = w.name + ": " + msg
	if w.stderr {
		w.logger.Error(zerr.New(msg))
		return
	}
	w.logger.Info(msg)
}
