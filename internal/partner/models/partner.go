package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
)

// PartnerAccount is the aggregate root for a territorial master partner.
//
// Invariants:
//   - LegalName, TaxID and CountryCode are non-empty
//   - FeeSplitPct and RoyaltySplitPct are in [0, 100]
//   - Status transitions follow the machine in status.go; terminated is
//     terminal
//   - ExclusivityStatus moves independently of Status (revoking exclusivity
//     never suspends the account, and vice versa)
//   - A suspension always carries a reason
//
// Money fields are fixed-point decimal. Counters are updated only through
// the Record* helpers so a store Execute callback can apply them under lock.
type PartnerAccount struct {
	ID          domain.PartnerID `json:"id"`
	LegalName   string           `json:"legal_name"`
	TaxID       string           `json:"tax_id"`
	TaxIDType   string           `json:"tax_id_type"`
	CountryCode string           `json:"country_code"`
	Address     string           `json:"address"`

	TerritoryID domain.TerritoryID `json:"territory_id"`

	// SelfOperatedEntityID links the partner's own trading sub-entity.
	// Empty when the partner does not operate one. This is the field every
	// self-dealing check pivots on; see IsSelfEntity.
	SelfOperatedEntityID domain.EntityID `json:"self_operated_entity_id,omitempty"`

	FeeSplitPct     decimal.Decimal `json:"fee_split_pct"`
	RoyaltySplitPct decimal.Decimal `json:"royalty_split_pct"`
	ContractStart   time.Time       `json:"contract_start"`
	ContractEnd     *time.Time      `json:"contract_end,omitempty"`

	Status            Status            `json:"status"`
	ExclusivityStatus ExclusivityStatus `json:"exclusivity_status"`

	ApprovedBy        string     `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	SuspensionReason  string     `json:"suspension_reason,omitempty"`
	SuspendedAt       *time.Time `json:"suspended_at,omitempty"`
	TerminatedAt      *time.Time `json:"terminated_at,omitempty"`
	ExclusivityReason string     `json:"exclusivity_reason,omitempty"`
	ExclusivityLostAt *time.Time `json:"exclusivity_lost_at,omitempty"`

	TotalSold    int             `json:"total_sold"`
	TotalActive  int             `json:"total_active"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`

	FraudFlagCount  int        `json:"fraud_flag_count"`
	LastFraudFlagAt *time.Time `json:"last_fraud_flag_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var hundred = decimal.NewFromInt(100)

// NewPartnerAccount constructs a partner in pending_approval. Territory
// admission (exclusive holder, quota) is a service concern; the constructor
// validates only the account's own invariants.
func NewPartnerAccount(id domain.PartnerID, legalName, taxID, taxIDType, country, address string, territoryID domain.TerritoryID, selfEntity domain.EntityID, feePct, royaltyPct decimal.Decimal, contractStart time.Time, contractEnd *time.Time, now time.Time) (*PartnerAccount, error) {
	legalName = strings.TrimSpace(legalName)
	taxID = strings.TrimSpace(taxID)
	country = strings.ToUpper(strings.TrimSpace(country))

	if legalName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "partner legal name cannot be empty")
	}
	if len(legalName) > 256 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "partner legal name must be 256 characters or less")
	}
	if taxID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "partner tax id cannot be empty")
	}
	if country == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "partner country code cannot be empty")
	}
	if territoryID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "partner must be bound to a territory")
	}
	if err := validPct(feePct, "fee"); err != nil {
		return nil, err
	}
	if err := validPct(royaltyPct, "royalty"); err != nil {
		return nil, err
	}
	if contractEnd != nil && !contractEnd.After(contractStart) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contract end must be after contract start")
	}

	return &PartnerAccount{
		ID:                   id,
		LegalName:            legalName,
		TaxID:                taxID,
		TaxIDType:            strings.TrimSpace(taxIDType),
		CountryCode:          country,
		Address:              strings.TrimSpace(address),
		TerritoryID:          territoryID,
		SelfOperatedEntityID: selfEntity,
		FeeSplitPct:          feePct,
		RoyaltySplitPct:      royaltyPct,
		ContractStart:        contractStart,
		ContractEnd:          contractEnd,
		Status:               StatusPendingApproval,
		ExclusivityStatus:    ExclusivityActive,
		TotalRevenue:         decimal.Zero,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

func validPct(pct decimal.Decimal, kind string) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "%s split percentage must be between 0 and 100", kind)
	}
	return nil
}

func (p *PartnerAccount) IsActive() bool {
	return p.Status == StatusActive
}

// IsSelfEntity is the single self-dealing predicate shared by the split
// calculator and the link manager. An unset SelfOperatedEntityID never
// matches anything.
func (p *PartnerAccount) IsSelfEntity(entityID domain.EntityID) bool {
	return !p.SelfOperatedEntityID.IsZero() && p.SelfOperatedEntityID == entityID
}

// CanApprove checks the pending_approval → active transition.
// Use with ApplyApproval in Execute callbacks.
func (p *PartnerAccount) CanApprove() error {
	if p.Status != StatusPendingApproval {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "partner in status %q cannot be approved", p.Status)
	}
	return nil
}

// ApplyApproval activates the partner and records the approver.
func (p *PartnerAccount) ApplyApproval(approver string, now time.Time) {
	p.Status = StatusActive
	p.ExclusivityStatus = ExclusivityActive
	p.ApprovedBy = approver
	p.ApprovedAt = &now
	p.UpdatedAt = now
}

// CanSuspend checks that the partner is not terminated. Suspension is
// allowed from any other status, including pending_approval.
func (p *PartnerAccount) CanSuspend() error {
	if !p.Status.CanTransitionTo(StatusSuspended) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "partner in status %q cannot be suspended", p.Status)
	}
	return nil
}

// ApplySuspension suspends the partner with a mandatory cause.
func (p *PartnerAccount) ApplySuspension(reason string, now time.Time) {
	p.Status = StatusSuspended
	p.SuspensionReason = reason
	p.SuspendedAt = &now
	p.UpdatedAt = now
}

// CanReactivate checks the suspended → active transition.
func (p *PartnerAccount) CanReactivate() error {
	if p.Status != StatusSuspended {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "partner in status %q cannot be reactivated", p.Status)
	}
	return nil
}

// ApplyReactivation clears suspension metadata and records the approver.
func (p *PartnerAccount) ApplyReactivation(approver string, now time.Time) {
	p.Status = StatusActive
	p.SuspensionReason = ""
	p.SuspendedAt = nil
	p.ApprovedBy = approver
	p.UpdatedAt = now
}

// CanTerminate checks the transition into the terminal state.
func (p *PartnerAccount) CanTerminate() error {
	if !p.Status.CanTransitionTo(StatusTerminated) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "partner in status %q cannot be terminated", p.Status)
	}
	return nil
}

// ApplyTermination ends the account permanently.
func (p *PartnerAccount) ApplyTermination(now time.Time) {
	p.Status = StatusTerminated
	p.TerminatedAt = &now
	p.UpdatedAt = now
}

// ApplyExclusivityImpact degrades the partner's exclusivity standing.
//
// warning and partial_loss both land on ExclusivityWarning with the given
// reason; whether partial_loss should additionally open the territory to
// more partners is a quota-admission concern outside this aggregate.
// full_revocation is permanent and timestamped. none is a no-op.
func (p *PartnerAccount) ApplyExclusivityImpact(impact ExclusivityImpact, reason string, now time.Time) error {
	switch impact {
	case ImpactNone:
		return nil
	case ImpactWarning, ImpactPartialLoss:
		if !p.ExclusivityStatus.CanTransitionTo(ExclusivityWarning) {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "exclusivity status %q cannot receive a warning", p.ExclusivityStatus)
		}
		p.ExclusivityStatus = ExclusivityWarning
		p.ExclusivityReason = reason
	case ImpactFullRevocation:
		if !p.ExclusivityStatus.CanTransitionTo(ExclusivityRevoked) {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "exclusivity status %q cannot be revoked", p.ExclusivityStatus)
		}
		p.ExclusivityStatus = ExclusivityRevoked
		p.ExclusivityReason = reason
		p.ExclusivityLostAt = &now
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown exclusivity impact %q", impact)
	}
	p.UpdatedAt = now
	return nil
}

// RecordSale applies the counter increments for one new regional link.
func (p *PartnerAccount) RecordSale(fee decimal.Decimal, now time.Time) {
	p.TotalSold++
	p.TotalActive++
	p.TotalRevenue = p.TotalRevenue.Add(fee)
	p.UpdatedAt = now
}

// RecordRevenue accumulates royalty or fee revenue without changing the
// sold/active counts.
func (p *PartnerAccount) RecordRevenue(amount decimal.Decimal, now time.Time) {
	p.TotalRevenue = p.TotalRevenue.Add(amount)
	p.UpdatedAt = now
}

// RecordFraudFlag bumps the fraud counters when the fraud engine acts
// against this partner.
func (p *PartnerAccount) RecordFraudFlag(now time.Time) {
	p.FraudFlagCount++
	p.LastFraudFlagAt = &now
	p.UpdatedAt = now
}
