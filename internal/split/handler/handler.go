// Package handler exposes the revenue split calculator as a pure
// computation endpoint: nothing is persisted, the caller gets the shares
// the calculator would produce.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	partnermodels "demarc/internal/partner/models"
	"demarc/internal/split"
	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
	"demarc/pkg/platform/httputil"
	"demarc/pkg/requestcontext"
)

// PartnerReader resolves the partner whose split percentages apply.
type PartnerReader interface {
	GetPartner(ctx context.Context, id domain.PartnerID) (*partnermodels.PartnerAccount, error)
}

// Handler wires the split computation endpoint.
type Handler struct {
	partners PartnerReader
	logger   *slog.Logger
}

// New constructs a split handler with its dependencies.
func New(partners PartnerReader, logger *slog.Logger) *Handler {
	return &Handler{partners: partners, logger: logger}
}

// Register mounts the split endpoint on the router.
func (h *Handler) Register(public chi.Router) {
	public.Post("/splits", h.HandleCompute)
}

// ComputeSplitRequest is the HTTP request body for POST /splits.
type ComputeSplitRequest struct {
	PartnerID    string `json:"partner_id"`
	Amount       string `json:"amount"`
	Counterparty string `json:"counterparty_entity_id"`
	Kind         string `json:"kind"`

	parsedPartnerID domain.PartnerID
	parsedAmount    decimal.Decimal
	parsedKind      split.Kind
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ComputeSplitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}

	partnerID, err := domain.ParsePartnerID(r.PartnerID)
	if err != nil {
		return err
	}
	r.parsedPartnerID = partnerID

	if strings.TrimSpace(r.Amount) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "amount is required")
	}
	if r.parsedAmount, err = decimal.NewFromString(r.Amount); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "amount is not a valid decimal")
	}
	if r.parsedAmount.IsNegative() {
		return dErrors.New(dErrors.CodeInvalidInput, "amount cannot be negative")
	}

	kind, ok := split.ParseKind(r.Kind)
	if !ok {
		return dErrors.Newf(dErrors.CodeInvalidInput, "invalid split kind %q", r.Kind)
	}
	r.parsedKind = kind
	return nil
}

// ComputeSplitResponse is the HTTP response for POST /splits.
type ComputeSplitResponse struct {
	PartnerShare   decimal.Decimal `json:"partner_share"`
	PrincipalShare decimal.Decimal `json:"principal_share"`
	IsSelfSale     bool            `json:"is_self_sale"`
}

// HandleCompute handles POST /splits requests.
func (h *Handler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ComputeSplitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	partner, err := h.partners.GetPartner(ctx, req.parsedPartnerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result := split.Calculate(partner, req.parsedAmount, domain.EntityID(req.Counterparty), req.parsedKind)
	httputil.WriteJSON(w, http.StatusOK, ComputeSplitResponse{
		PartnerShare:   result.PartnerShare,
		PrincipalShare: result.PrincipalShare,
		IsSelfSale:     result.IsSelfSale,
	})
}
