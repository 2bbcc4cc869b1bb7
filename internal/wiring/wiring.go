// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/weft/internal/adapters/config"
	_ "go.trai.ch/weft/internal/adapters/fs"
	_ "go.trai.ch/weft/internal/adapters/logger"
	_ "go.trai.ch/weft/internal/adapters/shell"
	_ "go.trai.ch/weft/internal/adapters/state"
	_ "go.trai.ch/weft/internal/adapters/telemetry/progrock"
	// Register app nodes.
	_ "go.trai.ch/weft/internal/app"
)
