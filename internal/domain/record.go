package domain

import "time"

// PackageRecord tracks a stored workload package: where its blob lives and
// the metadata it was sealed under. Names are single-use; the repository
// layer enforces uniqueness, which is the storage-side stand-in for replay
// protection.
type PackageRecord struct {
	ID           string
	Name         string
	CloudRegion  string
	WorkloadType string
	Location     string
	Timestamp    float64
	CreatedAt    time.Time
}
