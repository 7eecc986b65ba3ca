package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"demarc/internal/territory/locate"
	"demarc/pkg/domain"
)

// Status is the lifecycle state of a regional link.
type Status string

const (
	StatusActive     Status = "active"
	StatusTerminated Status = "terminated"
)

// RegionalLink binds one downstream sale or placement to a partner and to
// the territory rules in force at that moment.
//
// Invariants:
//   - TerritorySnapshot and SnapshotHash never change after creation, even
//     if the parent territory is later deactivated. The snapshot is what
//     settles future "the rules changed" disputes.
//   - PlacedEntityID is never the partner's own operating entity; the link
//     manager enforces this before insertion.
type RegionalLink struct {
	ID             domain.LinkID    `json:"id"`
	PartnerID      domain.PartnerID `json:"partner_id"`
	PlacedEntityID domain.EntityID  `json:"placed_entity_id"`

	Location locate.Location `json:"location"`

	TerritoryID domain.TerritoryID `json:"territory_id"`
	// TerritorySnapshot is the canonical encoded territory state at link
	// time; SnapshotHash fingerprints it.
	TerritorySnapshot json.RawMessage `json:"territory_snapshot"`
	SnapshotHash      string          `json:"snapshot_hash"`

	FeesEarned      decimal.Decimal `json:"fees_earned"`
	RoyaltiesEarned decimal.Decimal `json:"royalties_earned"`

	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalEarned is the link's cumulative fee and royalty volume.
func (l *RegionalLink) TotalEarned() decimal.Decimal {
	return l.FeesEarned.Add(l.RoyaltiesEarned)
}

func (l *RegionalLink) IsActive() bool {
	return l.Status == StatusActive
}
