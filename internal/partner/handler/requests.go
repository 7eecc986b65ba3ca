package handler

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"demarc/internal/partner/service"
	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
)

// CreatePartnerRequest is the HTTP request body for POST /partners.
type CreatePartnerRequest struct {
	LegalName            string     `json:"legal_name"`
	TaxID                string     `json:"tax_id"`
	TaxIDType            string     `json:"tax_id_type"`
	CountryCode          string     `json:"country_code"`
	Address              string     `json:"address,omitempty"`
	TerritoryID          string     `json:"territory_id"`
	SelfOperatedEntityID string     `json:"self_operated_entity_id,omitempty"`
	FeeSplitPct          string     `json:"fee_split_pct"`
	RoyaltySplitPct      string     `json:"royalty_split_pct"`
	ContractStart        time.Time  `json:"contract_start"`
	ContractEnd          *time.Time `json:"contract_end,omitempty"`

	parsedTerritoryID domain.TerritoryID
	parsedFeePct      decimal.Decimal
	parsedRoyaltyPct  decimal.Decimal
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreatePartnerRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}

	r.LegalName = strings.TrimSpace(r.LegalName)
	if r.LegalName == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "legal_name is required")
	}

	territoryID, err := domain.ParseTerritoryID(r.TerritoryID)
	if err != nil {
		return err
	}
	r.parsedTerritoryID = territoryID

	if r.parsedFeePct, err = parsePct(r.FeeSplitPct, "fee_split_pct"); err != nil {
		return err
	}
	if r.parsedRoyaltyPct, err = parsePct(r.RoyaltySplitPct, "royalty_split_pct"); err != nil {
		return err
	}
	if r.ContractStart.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "contract_start is required")
	}
	return nil
}

// DomainRequest builds the service request from the validated body.
func (r *CreatePartnerRequest) DomainRequest() service.CreatePartnerRequest {
	return service.CreatePartnerRequest{
		LegalName:            r.LegalName,
		TaxID:                r.TaxID,
		TaxIDType:            r.TaxIDType,
		CountryCode:          r.CountryCode,
		Address:              r.Address,
		TerritoryID:          r.parsedTerritoryID,
		SelfOperatedEntityID: domain.EntityID(r.SelfOperatedEntityID),
		FeeSplitPct:          r.parsedFeePct,
		RoyaltySplitPct:      r.parsedRoyaltyPct,
		ContractStart:        r.ContractStart,
		ContractEnd:          r.ContractEnd,
	}
}

func parsePct(raw, field string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", field)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid decimal", field)
	}
	return d, nil
}

// SuspendPartnerRequest is the HTTP request body for
// POST /partners/{id}/suspend.
type SuspendPartnerRequest struct {
	Reason string `json:"reason"`
}

// Validate validates the suspension request.
func (r *SuspendPartnerRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "reason is required")
	}
	return nil
}
