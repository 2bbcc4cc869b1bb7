package ports

import "go.trai.ch/weft/internal/core/domain"

// Hasher defines the interface for computing staleness fingerprints and
// output signatures.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// Fingerprint combines the step's command template, canonical merged
	// parameters, and the identity of each resolved input file into one hash.
	// Missing inputs hash as a distinct marker rather than failing, so the
	// decision to run (and surface the real error) stays with the scheduler.
	Fingerprint(step *domain.ResolvedStep) (string, error)

	// OutputSignature returns the content signature of an output file, or an
	// error if the file does not exist.
	OutputSignature(path string) (string, error)
}
