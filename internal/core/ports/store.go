package ports

import "go.trai.ch/weft/internal/core/domain"

// RecordStore defines the interface for the persisted staleness records.
// Writes are atomic per record; concurrent writes to different (step,
// profile) keys need no external coordination.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type RecordStore interface {
	// Get retrieves the record for a (step, profile) pair.
	// Returns nil, nil if not found.
	Get(step, profile string) (*domain.Record, error)

	// Put stores the record, replacing any previous one for the same pair.
	Put(record domain.Record) error

	// Reset removes all records.
	Reset() error
}
