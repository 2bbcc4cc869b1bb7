// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"
)

// Executor defines the interface for executing assembled step commands.
//
// The command is an opaque shell string: chained statements are a single
// invocation with one pass/fail outcome.
//
//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute hands the command to the shell and waits for it. Stdout and
	// stderr stream to the given writers. A non-zero exit is an error.
	Execute(ctx context.Context, command string, stdout, stderr io.Writer) error
}
