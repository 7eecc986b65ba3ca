// Package auditchain maintains the hash-linked history of a partner's
// territory state. Hash computation and chain verification are pure
// functions; persistence hides behind the Store interface so both are
// unit-testable without a database.
package auditchain

import (
	"encoding/json"
	"time"

	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
)

// Reason records why a snapshot was captured.
type Reason string

const (
	ReasonCreation     Reason = "creation"
	ReasonModification Reason = "modification"
	ReasonSale         Reason = "sale"
	ReasonAudit        Reason = "audit"
	ReasonDispute      Reason = "dispute"
)

var validReasons = map[Reason]bool{
	ReasonCreation:     true,
	ReasonModification: true,
	ReasonSale:         true,
	ReasonAudit:        true,
	ReasonDispute:      true,
}

// ParseReason constructs a Reason from external input.
func ParseReason(s string) (Reason, error) {
	r := Reason(s)
	if !validReasons[r] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid snapshot reason %q", s)
	}
	return r, nil
}

// Snapshot is one entry in a partner's chain.
//
// Invariants:
//   - Entry i's PreviousSnapshotHash equals entry i-1's SnapshotHash.
//   - Entry 0's PreviousSnapshotHash is nil.
//   - Seq is 1 + the predecessor's Seq (1 for a first entry); the chain
//     walk orders on it, never on timestamps, which can collide.
//   - State and SnapshotHash never change after insertion.
type Snapshot struct {
	ID          domain.SnapshotID  `json:"id"`
	PartnerID   domain.PartnerID   `json:"partner_id"`
	TerritoryID domain.TerritoryID `json:"territory_id"`
	Seq         int64              `json:"seq"`

	// State is the canonical serialization of the full territory state at
	// capture time.
	State        json.RawMessage `json:"state"`
	SnapshotHash string          `json:"snapshot_hash"`

	Reason Reason `json:"reason"`

	PreviousSnapshotID   *domain.SnapshotID `json:"previous_snapshot_id,omitempty"`
	PreviousSnapshotHash *string            `json:"previous_snapshot_hash,omitempty"`

	// ChainValidated records whether the previous entry's hash still checked
	// out at the moment this entry was written.
	ChainValidated bool `json:"chain_validated"`

	CreatedAt time.Time `json:"created_at"`
}
