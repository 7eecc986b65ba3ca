// Package domain holds shared identifier and value types used across the
// engine's bounded contexts.
//
// IDs are distinct named types over uuid.UUID so the compiler rejects
// cross-type assignment (a PartnerID can never be passed where a TerritoryID
// is expected). Construct from external input via the Parse helpers; direct
// casting bypasses validation and is reserved for trusted code paths.
package domain

import (
	"github.com/google/uuid"

	dErrors "demarc/pkg/domain-errors"
)

type (
	// TerritoryID identifies a territory definition.
	TerritoryID uuid.UUID
	// PartnerID identifies a territorial partner account.
	PartnerID uuid.UUID
	// LinkID identifies a regional link (one downstream sale/placement).
	LinkID uuid.UUID
	// SnapshotID identifies one entry in a partner's audit chain.
	SnapshotID uuid.UUID
	// TargetID identifies a performance target period.
	TargetID uuid.UUID
	// FraudEventID identifies a detected fraud anomaly.
	FraudEventID uuid.UUID
)

// EntityID identifies a downstream operating entity (a sold or placed unit).
// Entities live in the sales collaborator's system, so the ID is an opaque
// external key rather than a UUID.
type EntityID string

func (e EntityID) IsZero() bool   { return e == "" }
func (e EntityID) String() string { return string(e) }

func (id TerritoryID) String() string { return uuid.UUID(id).String() }
func (id TerritoryID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id PartnerID) String() string { return uuid.UUID(id).String() }
func (id PartnerID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id LinkID) String() string { return uuid.UUID(id).String() }
func (id LinkID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id SnapshotID) String() string { return uuid.UUID(id).String() }
func (id SnapshotID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id TargetID) String() string { return uuid.UUID(id).String() }
func (id TargetID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id FraudEventID) String() string { return uuid.UUID(id).String() }
func (id FraudEventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s string, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id cannot be empty", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s id", kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s id cannot be nil", kind)
	}
	return u, nil
}

// ParseTerritoryID constructs a TerritoryID from external input.
func ParseTerritoryID(s string) (TerritoryID, error) {
	u, err := parseUUID(s, "territory")
	return TerritoryID(u), err
}

// ParsePartnerID constructs a PartnerID from external input.
func ParsePartnerID(s string) (PartnerID, error) {
	u, err := parseUUID(s, "partner")
	return PartnerID(u), err
}

// ParseLinkID constructs a LinkID from external input.
func ParseLinkID(s string) (LinkID, error) {
	u, err := parseUUID(s, "link")
	return LinkID(u), err
}

// ParseSnapshotID constructs a SnapshotID from external input.
func ParseSnapshotID(s string) (SnapshotID, error) {
	u, err := parseUUID(s, "snapshot")
	return SnapshotID(u), err
}

// ParseTargetID constructs a TargetID from external input.
func ParseTargetID(s string) (TargetID, error) {
	u, err := parseUUID(s, "target")
	return TargetID(u), err
}

// ParseFraudEventID constructs a FraudEventID from external input.
func ParseFraudEventID(s string) (FraudEventID, error) {
	u, err := parseUUID(s, "fraud event")
	return FraudEventID(u), err
}
