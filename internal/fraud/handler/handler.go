// Package handler exposes the fraud engine's inbound reporting endpoint
// and the per-partner event listing.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"demarc/internal/fraud/models"
	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
	"demarc/pkg/platform/httputil"
	"demarc/pkg/requestcontext"
)

// Service defines the interface for fraud reporting operations.
type Service interface {
	Record(ctx context.Context, partnerID domain.PartnerID, fraudType models.Type, severity models.Severity, evidence map[string]any) (*models.FraudEvent, bool, error)
	ListByPartner(ctx context.Context, partnerID domain.PartnerID) ([]*models.FraudEvent, error)
}

// Handler wires fraud endpoints to the fraud service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a fraud handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts fraud endpoints on the router.
func (h *Handler) Register(public chi.Router) {
	public.Post("/fraud/events", h.HandleRecord)
	public.Get("/partners/{id}/fraud/events", h.HandleList)
}

// RecordEventRequest is the HTTP request body for POST /fraud/events. Any
// subsystem observing suspicious behavior reports through this surface.
type RecordEventRequest struct {
	PartnerID string         `json:"partner_id"`
	Type      string         `json:"fraud_type"`
	Severity  string         `json:"severity"`
	Evidence  map[string]any `json:"evidence,omitempty"`

	parsedPartnerID domain.PartnerID
	parsedType      models.Type
	parsedSeverity  models.Severity
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *RecordEventRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}

	partnerID, err := domain.ParsePartnerID(r.PartnerID)
	if err != nil {
		return err
	}
	r.parsedPartnerID = partnerID

	t, ok := models.ParseType(r.Type)
	if !ok {
		return dErrors.Newf(dErrors.CodeInvalidInput, "invalid fraud type %q", r.Type)
	}
	r.parsedType = t

	sev, ok := models.ParseSeverity(r.Severity)
	if !ok {
		return dErrors.Newf(dErrors.CodeInvalidInput, "invalid severity %q", r.Severity)
	}
	r.parsedSeverity = sev
	return nil
}

// RecordEventResponse is the HTTP response for POST /fraud/events.
type RecordEventResponse struct {
	Event *models.FraudEvent `json:"event"`
	// Deduplicated is true when the report was suppressed by the dedupe
	// window and Event is the earlier record.
	Deduplicated bool          `json:"deduplicated"`
	AutoAction   models.Action `json:"auto_action"`
}

// HandleRecord handles POST /fraud/events requests.
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RecordEventRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	event, created, err := h.service.Record(ctx, req.parsedPartnerID, req.parsedType, req.parsedSeverity, req.Evidence)
	if err != nil {
		h.logger.WarnContext(ctx, "fraud report rejected",
			"request_id", requestID,
			"partner_id", req.PartnerID,
			"fraud_type", req.Type,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, RecordEventResponse{
		Event:        event,
		Deduplicated: !created,
		AutoAction:   event.ActionTaken,
	})
}

// HandleList handles GET /partners/{id}/fraud/events requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePartnerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.service.ListByPartner(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}
