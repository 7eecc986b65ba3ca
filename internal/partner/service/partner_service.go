package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"demarc/internal/auditchain"
	"demarc/internal/partner/models"
	territorymodels "demarc/internal/territory/models"
	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
	"demarc/pkg/platform/sentinel"
	"demarc/pkg/requestcontext"
)

// CreatePartnerRequest carries onboarding data for a new partner account.
type CreatePartnerRequest struct {
	LegalName            string             `json:"legal_name"`
	TaxID                string             `json:"tax_id"`
	TaxIDType            string             `json:"tax_id_type"`
	CountryCode          string             `json:"country_code"`
	Address              string             `json:"address"`
	TerritoryID          domain.TerritoryID `json:"territory_id"`
	SelfOperatedEntityID domain.EntityID    `json:"self_operated_entity_id"`
	FeeSplitPct          decimal.Decimal    `json:"fee_split_pct"`
	RoyaltySplitPct      decimal.Decimal    `json:"royalty_split_pct"`
	ContractStart        time.Time          `json:"contract_start"`
	ContractEnd          *time.Time         `json:"contract_end"`
}

// CreatePartner admits a partner into a territory and records the first
// entry of its audit chain.
//
// Admission is the territory-side invariant: an exclusive territory holds
// at most one non-terminated partner, a semi-exclusive one holds up to its
// quota. The count-then-create sequence is guarded by a territory-scoped
// advisory lock so two concurrent applications cannot both pass the check.
func (s *Service) CreatePartner(ctx context.Context, req CreatePartnerRequest) (*models.PartnerAccount, error) {
	start := time.Now()

	territory, err := s.territories.FindByID(ctx, req.TerritoryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "territory not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load territory")
	}
	if !territory.Active {
		return nil, dErrors.New(dErrors.CodeConflict, "territory is not active")
	}

	partner, err := models.NewPartnerAccount(
		domain.PartnerID(uuid.New()),
		req.LegalName, req.TaxID, req.TaxIDType, req.CountryCode, req.Address,
		req.TerritoryID, req.SelfOperatedEntityID,
		req.FeeSplitPct, req.RoyaltySplitPct,
		req.ContractStart, req.ContractEnd,
		requestcontext.Now(ctx),
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, err.Error())
		}
		return nil, err
	}

	unlock, err := s.locks.Acquire(ctx, "partner-admission:"+req.TerritoryID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeConflict, "territory admission is busy, retry")
	}
	defer unlock()

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.checkAdmission(txCtx, territory); err != nil {
			return err
		}
		if err := s.partners.Create(txCtx, partner); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create partner")
		}
		if _, err := s.audit.Append(txCtx, partner.ID, territory, auditchain.ReasonCreation); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "partner created",
		slog.String("partner_id", partner.ID.String()),
		slog.String("territory_id", req.TerritoryID.String()))
	if s.metrics != nil {
		s.metrics.PartnersCreated.Inc()
		s.metrics.ObserveCreate(start)
	}
	return partner, nil
}

func (s *Service) checkAdmission(ctx context.Context, territory *territorymodels.TerritoryDefinition) error {
	count, err := s.partners.CountActiveByTerritory(ctx, territory.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count territory partners")
	}

	switch territory.ExclusivityType {
	case territorymodels.ExclusivityExclusive:
		if count >= 1 {
			return dErrors.New(dErrors.CodeConflict, "exclusive territory already has a partner")
		}
	case territorymodels.ExclusivitySemiExclusive:
		if count >= territory.MaxPartnerQuota {
			return dErrors.Newf(dErrors.CodeConflict, "territory partner quota of %d reached", territory.MaxPartnerQuota)
		}
	case territorymodels.ExclusivityNonExclusive:
		// Unlimited.
	}
	return nil
}

func (s *Service) GetPartner(ctx context.Context, id domain.PartnerID) (*models.PartnerAccount, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "partner id is required")
	}
	p, err := s.partners.FindByID(ctx, id)
	if err != nil {
		return nil, wrapPartnerErr(err)
	}
	return p, nil
}

// ApprovePartner transitions pending_approval → active and records the
// approver.
func (s *Service) ApprovePartner(ctx context.Context, id domain.PartnerID, approver string) (*models.PartnerAccount, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "partner id is required")
	}
	if approver == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "approver is required")
	}

	now := requestcontext.Now(ctx)
	partner, err := s.partners.Execute(ctx, id,
		func(p *models.PartnerAccount) error { return p.CanApprove() },
		func(p *models.PartnerAccount) { p.ApplyApproval(approver, now) },
	)
	if err != nil {
		return nil, wrapPartnerErr(err)
	}

	if s.metrics != nil {
		s.metrics.PartnersApproved.Inc()
	}
	return partner, nil
}

// SuspendPartner suspends from any non-terminated status. The cause is
// mandatory and a snapshot with reason audit is always appended.
// fraudTriggered marks suspensions originating from the fraud engine and
// bumps the partner's fraud counters.
func (s *Service) SuspendPartner(ctx context.Context, id domain.PartnerID, reason string, fraudTriggered bool) (*models.PartnerAccount, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "partner id is required")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "suspension reason is required")
	}

	now := requestcontext.Now(ctx)
	var partner *models.PartnerAccount
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.partners.Execute(txCtx, id,
			func(p *models.PartnerAccount) error { return p.CanSuspend() },
			func(p *models.PartnerAccount) {
				p.ApplySuspension(reason, now)
				if fraudTriggered {
					p.RecordFraudFlag(now)
				}
			},
		)
		if err != nil {
			return wrapPartnerErr(err)
		}
		if err := s.appendSnapshot(txCtx, p, auditchain.ReasonAudit); err != nil {
			return err
		}
		partner = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "partner suspended",
		slog.String("partner_id", id.String()),
		slog.String("reason", reason),
		slog.Bool("fraud_triggered", fraudTriggered))
	if s.metrics != nil {
		s.metrics.PartnersSuspended.Inc()
	}
	return partner, nil
}

// ReactivatePartner transitions suspended → active. Requires an approver.
func (s *Service) ReactivatePartner(ctx context.Context, id domain.PartnerID, approver string) (*models.PartnerAccount, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "partner id is required")
	}
	if approver == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "approver is required")
	}

	now := requestcontext.Now(ctx)
	partner, err := s.partners.Execute(ctx, id,
		func(p *models.PartnerAccount) error { return p.CanReactivate() },
		func(p *models.PartnerAccount) { p.ApplyReactivation(approver, now) },
	)
	if err != nil {
		return nil, wrapPartnerErr(err)
	}
	return partner, nil
}

// TerminatePartner ends the account permanently and appends a snapshot with
// reason modification.
func (s *Service) TerminatePartner(ctx context.Context, id domain.PartnerID) (*models.PartnerAccount, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "partner id is required")
	}

	now := requestcontext.Now(ctx)
	var partner *models.PartnerAccount
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.partners.Execute(txCtx, id,
			func(p *models.PartnerAccount) error { return p.CanTerminate() },
			func(p *models.PartnerAccount) { p.ApplyTermination(now) },
		)
		if err != nil {
			return wrapPartnerErr(err)
		}
		if err := s.appendSnapshot(txCtx, p, auditchain.ReasonModification); err != nil {
			return err
		}
		partner = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return partner, nil
}

// ApplyExclusivityImpact degrades the partner's exclusivity standing as
// directed by the performance evaluator or the fraud engine.
func (s *Service) ApplyExclusivityImpact(ctx context.Context, id domain.PartnerID, impact models.ExclusivityImpact, reason string) (*models.PartnerAccount, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "partner id is required")
	}

	now := requestcontext.Now(ctx)
	partner, err := s.partners.Execute(ctx, id,
		func(p *models.PartnerAccount) error {
			cp := *p
			return cp.ApplyExclusivityImpact(impact, reason, now)
		},
		func(p *models.PartnerAccount) {
			_ = p.ApplyExclusivityImpact(impact, reason, now)
		},
	)
	if err != nil {
		return nil, wrapPartnerErr(err)
	}

	if s.metrics != nil && impact != models.ImpactNone {
		s.metrics.ExclusivityImpacts.WithLabelValues(string(impact)).Inc()
	}
	return partner, nil
}

// RecordSale applies the counter increments for a new regional link under
// the partner row lock. Called by the link manager inside its transaction.
func (s *Service) RecordSale(ctx context.Context, id domain.PartnerID, fee decimal.Decimal) (*models.PartnerAccount, error) {
	now := requestcontext.Now(ctx)
	partner, err := s.partners.Execute(ctx, id,
		func(*models.PartnerAccount) error { return nil },
		func(p *models.PartnerAccount) { p.RecordSale(fee, now) },
	)
	if err != nil {
		return nil, wrapPartnerErr(err)
	}
	return partner, nil
}

// RecordRevenue accumulates royalty or fee revenue on the partner.
func (s *Service) RecordRevenue(ctx context.Context, id domain.PartnerID, amount decimal.Decimal) (*models.PartnerAccount, error) {
	now := requestcontext.Now(ctx)
	partner, err := s.partners.Execute(ctx, id,
		func(*models.PartnerAccount) error { return nil },
		func(p *models.PartnerAccount) { p.RecordRevenue(amount, now) },
	)
	if err != nil {
		return nil, wrapPartnerErr(err)
	}
	return partner, nil
}

func (s *Service) appendSnapshot(ctx context.Context, p *models.PartnerAccount, reason auditchain.Reason) error {
	territory, err := s.territories.FindByID(ctx, p.TerritoryID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load territory for snapshot")
	}
	if _, err := s.audit.Append(ctx, p.ID, territory, reason); err != nil {
		return err
	}
	return nil
}

func wrapPartnerErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "partner not found")
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation),
		dErrors.HasCode(err, dErrors.CodeConflict),
		dErrors.HasCode(err, dErrors.CodeInvalidInput),
		dErrors.HasCode(err, dErrors.CodeNotFound):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "partner store failure")
	}
}
