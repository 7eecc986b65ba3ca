// Package handler exposes audit chain verification.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"demarc/internal/auditchain"
	"demarc/pkg/domain"
	"demarc/pkg/platform/httputil"
	"demarc/pkg/requestcontext"
)

// Service defines the interface for audit chain operations.
type Service interface {
	VerifyChain(ctx context.Context, partnerID domain.PartnerID) (auditchain.Report, error)
}

// Handler wires audit endpoints to the chain service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an audit handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts audit endpoints on the router.
func (h *Handler) Register(public chi.Router) {
	public.Get("/partners/{id}/audit/verify", h.HandleVerify)
}

// HandleVerify handles GET /partners/{id}/audit/verify requests. A broken
// chain is a 200 with Valid=false: verification succeeded, the chain did
// not.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParsePartnerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	report, err := h.service.VerifyChain(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if !report.Valid {
		h.logger.ErrorContext(ctx, "audit chain verification found breaks",
			"request_id", requestcontext.RequestID(ctx),
			"partner_id", id,
			"broken_links", len(report.BrokenLinks),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
