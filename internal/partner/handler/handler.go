// Package handler wires partner lifecycle endpoints to the partner service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"demarc/internal/partner/models"
	"demarc/internal/partner/service"
	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
	"demarc/pkg/platform/httputil"
	"demarc/pkg/requestcontext"
)

// Service defines the interface for partner lifecycle operations.
type Service interface {
	CreatePartner(ctx context.Context, req service.CreatePartnerRequest) (*models.PartnerAccount, error)
	GetPartner(ctx context.Context, id domain.PartnerID) (*models.PartnerAccount, error)
	ApprovePartner(ctx context.Context, id domain.PartnerID, approver string) (*models.PartnerAccount, error)
	SuspendPartner(ctx context.Context, id domain.PartnerID, reason string, fraudTriggered bool) (*models.PartnerAccount, error)
	ReactivatePartner(ctx context.Context, id domain.PartnerID, approver string) (*models.PartnerAccount, error)
	TerminatePartner(ctx context.Context, id domain.PartnerID) (*models.PartnerAccount, error)
}

// Handler wires partner endpoints to the partner service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a partner handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts partner endpoints. Lifecycle transitions are admin-only.
func (h *Handler) Register(public, admin chi.Router) {
	public.Post("/partners", h.HandleCreate)
	public.Get("/partners/{id}", h.HandleGet)
	admin.Post("/partners/{id}/approve", h.HandleApprove)
	admin.Post("/partners/{id}/suspend", h.HandleSuspend)
	admin.Post("/partners/{id}/reactivate", h.HandleReactivate)
	admin.Post("/partners/{id}/terminate", h.HandleTerminate)
}

// HandleCreate handles POST /partners requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreatePartnerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	partner, err := h.service.CreatePartner(ctx, req.DomainRequest())
	if err != nil {
		h.logger.WarnContext(ctx, "partner creation rejected",
			"request_id", requestID,
			"legal_name", req.LegalName,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "partner created",
		"request_id", requestID,
		"partner_id", partner.ID,
		"territory_id", partner.TerritoryID,
	)
	httputil.WriteJSON(w, http.StatusCreated, partner)
}

// HandleGet handles GET /partners/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePartnerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	partner, err := h.service.GetPartner(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, partner)
}

// HandleApprove handles POST /partners/{id}/approve requests.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approved", func(ctx context.Context, id domain.PartnerID, actor string) (*models.PartnerAccount, error) {
		return h.service.ApprovePartner(ctx, id, actor)
	})
}

// HandleSuspend handles POST /partners/{id}/suspend requests.
func (h *Handler) HandleSuspend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParsePartnerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SuspendPartnerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	// Operator-initiated suspensions never carry the fraud flag; the fraud
	// engine suspends through its own path.
	partner, err := h.service.SuspendPartner(ctx, id, req.Reason, false)
	if err != nil {
		h.logger.WarnContext(ctx, "partner suspension failed",
			"request_id", requestID,
			"partner_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "partner suspended",
		"request_id", requestID,
		"partner_id", id,
		"actor", requestcontext.Actor(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, partner)
}

// HandleReactivate handles POST /partners/{id}/reactivate requests.
func (h *Handler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reactivated", func(ctx context.Context, id domain.PartnerID, actor string) (*models.PartnerAccount, error) {
		return h.service.ReactivatePartner(ctx, id, actor)
	})
}

// HandleTerminate handles POST /partners/{id}/terminate requests.
func (h *Handler) HandleTerminate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "terminated", func(ctx context.Context, id domain.PartnerID, _ string) (*models.PartnerAccount, error) {
		return h.service.TerminatePartner(ctx, id)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, verb string, apply func(context.Context, domain.PartnerID, string) (*models.PartnerAccount, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParsePartnerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	actor := requestcontext.Actor(ctx)
	if actor == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authenticated operator required"))
		return
	}

	partner, err := apply(ctx, id, actor)
	if err != nil {
		h.logger.WarnContext(ctx, "partner transition failed",
			"request_id", requestID,
			"partner_id", id,
			"transition", verb,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "partner "+verb,
		"request_id", requestID,
		"partner_id", id,
		"actor", actor,
	)
	httputil.WriteJSON(w, http.StatusOK, partner)
}
