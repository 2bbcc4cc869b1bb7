package domain

import "time"

// Record is the persisted staleness record for one (step, profile) pair. A
// build replaces it atomically after the step succeeds; consumers such as the
// describe report may read it but never write it.
type Record struct {
	Step            string    `json:"step"`
	Profile         string    `json:"profile,omitzero"`
	Fingerprint     string    `json:"fingerprint"`
	OutputSignature string    `json:"output_signature,omitzero"`
	Timestamp       time.Time `json:"timestamp"`
}

// RecordKey addresses a record in the store.
func RecordKey(step, profile string) string {
	if profile == "" {
		return step
	}
	return step + "@" + profile
}
