package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
// These represent factual states about stored records, not validation
// failures:
// - ErrNotFound: record does not exist in the store
// - ErrAlreadyUsed: a uniqueness guarantee (name, fingerprint) is taken
// - ErrInvalidState: record in wrong state for the requested operation
// - ErrVersionConflict: optimistic concurrency check failed
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyUsed     = errors.New("already used")
	ErrInvalidState    = errors.New("invalid state")
	ErrVersionConflict = errors.New("version conflict")
	ErrUnavailable     = errors.New("unavailable")
)
