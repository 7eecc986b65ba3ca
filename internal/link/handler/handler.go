// Package handler wires regional link endpoints to the link service.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"demarc/internal/link"
	"demarc/internal/link/models"
	"demarc/internal/territory/locate"
	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
	"demarc/pkg/platform/httputil"
	"demarc/pkg/requestcontext"
)

// Service defines the interface for regional link operations.
type Service interface {
	CreateLink(ctx context.Context, req link.CreateLinkRequest) (*models.RegionalLink, error)
	GetLink(ctx context.Context, id domain.LinkID) (*models.RegionalLink, error)
	AddRoyalty(ctx context.Context, id domain.LinkID, amount decimal.Decimal, counterparty domain.EntityID) (*models.RegionalLink, error)
}

// Handler wires link endpoints to the link service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a link handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts link endpoints on the router.
func (h *Handler) Register(public chi.Router) {
	public.Post("/links", h.HandleCreate)
	public.Get("/links/{id}", h.HandleGet)
	public.Post("/links/{id}/royalties", h.HandleAddRoyalty)
}

// CreateLinkRequest is the HTTP request body for POST /links.
type CreateLinkRequest struct {
	PartnerID      string          `json:"partner_id"`
	PlacedEntityID string          `json:"placed_entity_id"`
	Location       locate.Location `json:"location"`
	Fee            string          `json:"fee"`

	parsedPartnerID domain.PartnerID
	parsedFee       decimal.Decimal
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateLinkRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}

	partnerID, err := domain.ParsePartnerID(r.PartnerID)
	if err != nil {
		return err
	}
	r.parsedPartnerID = partnerID

	r.PlacedEntityID = strings.TrimSpace(r.PlacedEntityID)
	if r.PlacedEntityID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "placed_entity_id is required")
	}

	if r.parsedFee, err = parseAmount(r.Fee, "fee"); err != nil {
		return err
	}
	return nil
}

// AddRoyaltyRequest is the HTTP request body for POST /links/{id}/royalties.
type AddRoyaltyRequest struct {
	Amount       string `json:"amount"`
	Counterparty string `json:"counterparty_entity_id"`

	parsedAmount decimal.Decimal
}

// Validate validates and parses the royalty posting.
func (r *AddRoyaltyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	var err error
	if r.parsedAmount, err = parseAmount(r.Amount, "amount"); err != nil {
		return err
	}
	r.Counterparty = strings.TrimSpace(r.Counterparty)
	if r.Counterparty == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "counterparty_entity_id is required")
	}
	return nil
}

func parseAmount(raw, field string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", field)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid decimal", field)
	}
	if d.IsNegative() {
		return decimal.Zero, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be negative", field)
	}
	return d, nil
}

// HandleCreate handles POST /links requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateLinkRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	created, err := h.service.CreateLink(ctx, link.CreateLinkRequest{
		PartnerID:      req.parsedPartnerID,
		PlacedEntityID: domain.EntityID(req.PlacedEntityID),
		Location:       req.Location,
		Fee:            req.parsedFee,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "link creation rejected",
			"request_id", requestID,
			"partner_id", req.PartnerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "link created",
		"request_id", requestID,
		"link_id", created.ID,
		"partner_id", created.PartnerID,
	)
	httputil.WriteJSON(w, http.StatusCreated, created)
}

// HandleGet handles GET /links/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseLinkID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	l, err := h.service.GetLink(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, l)
}

// HandleAddRoyalty handles POST /links/{id}/royalties requests.
func (h *Handler) HandleAddRoyalty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseLinkID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddRoyaltyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	updated, err := h.service.AddRoyalty(ctx, id, req.parsedAmount, domain.EntityID(req.Counterparty))
	if err != nil {
		h.logger.WarnContext(ctx, "royalty posting rejected",
			"request_id", requestID,
			"link_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, updated)
}
