// Package output provides utilities for creating termenv.Output with
// consistent color profile and TTY handling across the CLI.
package output

import (
	"io"
	"os"

	"github.com/muesli/termenv"

	"go.trai.ch/weft/internal/core/domain"
)

// ColorProfile returns the color profile for the current environment,
// honoring NO_COLOR.
func ColorProfile() termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

// New creates a termenv.Output on the given writer with the detected profile.
func New(w io.Writer, opts ...termenv.OutputOption) *termenv.Output {
	if w == nil {
		w = os.Stderr
	}

	opts = append(opts,
		termenv.WithProfile(ColorProfile()),
		termenv.WithTTY(true),
	)

	return termenv.NewOutput(w, opts...)
}

// Status renders a step status with the conventional color: green for
// success, red for failures, faint for skips.
func Status(out *termenv.Output, status domain.StepStatus) string {
	s := out.String(string(status))
	switch status {
	case domain.StatusSucceeded:
		return s.Foreground(out.Color("2")).String()
	case domain.StatusFailed:
		return s.Foreground(out.Color("1")).Bold().String()
	case domain.StatusSkippedFailed:
		return s.Foreground(out.Color("1")).Faint().String()
	case domain.StatusSkippedFresh:
		return s.Faint().String()
	case domain.StatusRunning:
		return s.Foreground(out.Color("3")).String()
	default:
		return s.String()
	}
}
