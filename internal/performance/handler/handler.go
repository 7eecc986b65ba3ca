// Package handler wires performance target endpoints to the evaluator.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"demarc/internal/performance"
	"demarc/internal/performance/models"
	partnermodels "demarc/internal/partner/models"
	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
	"demarc/pkg/platform/httputil"
	"demarc/pkg/requestcontext"
)

// Service defines the interface for performance target operations.
type Service interface {
	CreateTarget(ctx context.Context, req performance.CreateTargetRequest) (*models.PerformanceTarget, error)
	GetTarget(ctx context.Context, id domain.TargetID) (*models.PerformanceTarget, error)
	ListTargets(ctx context.Context, partnerID domain.PartnerID) ([]*models.PerformanceTarget, error)
	RecordRetention(ctx context.Context, id domain.TargetID, actual decimal.Decimal) (*models.PerformanceTarget, error)
	Evaluate(ctx context.Context, id domain.TargetID) (*models.PerformanceTarget, error)
}

// Handler wires performance endpoints to the evaluator service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a performance handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts performance endpoints. Target creation and evaluation are
// admin operations; reads are public.
func (h *Handler) Register(public, admin chi.Router) {
	public.Get("/performance/targets/{id}", h.HandleGet)
	public.Get("/partners/{id}/performance/targets", h.HandleList)
	admin.Post("/performance/targets", h.HandleCreate)
	admin.Post("/performance/targets/{id}/retention", h.HandleRecordRetention)
	admin.Post("/performance/targets/{id}/evaluate", h.HandleEvaluate)
}

// CreateTargetRequest is the HTTP request body for POST /performance/targets.
type CreateTargetRequest struct {
	PartnerID         string    `json:"partner_id"`
	Period            string    `json:"period"`
	PeriodStart       time.Time `json:"period_start"`
	PeriodEnd         time.Time `json:"period_end"`
	SoldTarget        *string   `json:"sold_target,omitempty"`
	VolumeTarget      *string   `json:"volume_target,omitempty"`
	RetentionTarget   *string   `json:"retention_target,omitempty"`
	ActiveTarget      *string   `json:"active_target,omitempty"`
	ExclusivityImpact string    `json:"exclusivity_impact"`

	parsed performance.CreateTargetRequest
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateTargetRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}

	partnerID, err := domain.ParsePartnerID(r.PartnerID)
	if err != nil {
		return err
	}
	period, err := models.ParsePeriod(r.Period)
	if err != nil {
		return err
	}
	impact := partnermodels.ImpactNone
	if r.ExclusivityImpact != "" {
		parsed, ok := partnermodels.ParseExclusivityImpact(r.ExclusivityImpact)
		if !ok {
			return dErrors.Newf(dErrors.CodeInvalidInput, "invalid exclusivity impact %q", r.ExclusivityImpact)
		}
		impact = parsed
	}

	r.parsed = performance.CreateTargetRequest{
		PartnerID:         partnerID,
		Period:            period,
		PeriodStart:       r.PeriodStart,
		PeriodEnd:         r.PeriodEnd,
		ExclusivityImpact: impact,
	}
	if r.parsed.SoldTarget, err = parseTarget(r.SoldTarget, "sold_target"); err != nil {
		return err
	}
	if r.parsed.VolumeTarget, err = parseTarget(r.VolumeTarget, "volume_target"); err != nil {
		return err
	}
	if r.parsed.RetentionTarget, err = parseTarget(r.RetentionTarget, "retention_target"); err != nil {
		return err
	}
	if r.parsed.ActiveTarget, err = parseTarget(r.ActiveTarget, "active_target"); err != nil {
		return err
	}
	return nil
}

func parseTarget(raw *string, field string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid decimal", field)
	}
	if d.IsNegative() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s cannot be negative", field)
	}
	return &d, nil
}

// RecordRetentionRequest is the HTTP request body for
// POST /performance/targets/{id}/retention.
type RecordRetentionRequest struct {
	Actual string `json:"actual"`

	parsedActual decimal.Decimal
}

// Validate validates and parses the retention report.
func (r *RecordRetentionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	d, err := decimal.NewFromString(r.Actual)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "actual is not a valid decimal")
	}
	if d.IsNegative() {
		return dErrors.New(dErrors.CodeInvalidInput, "actual cannot be negative")
	}
	r.parsedActual = d
	return nil
}

// HandleCreate handles POST /performance/targets requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateTargetRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	target, err := h.service.CreateTarget(ctx, req.parsed)
	if err != nil {
		h.logger.WarnContext(ctx, "target creation rejected",
			"request_id", requestID,
			"partner_id", req.PartnerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, target)
}

// HandleGet handles GET /performance/targets/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseTargetID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	target, err := h.service.GetTarget(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, target)
}

// HandleList handles GET /partners/{id}/performance/targets requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePartnerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	targets, err := h.service.ListTargets(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"targets": targets})
}

// HandleRecordRetention handles POST /performance/targets/{id}/retention.
func (h *Handler) HandleRecordRetention(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseTargetID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RecordRetentionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	target, err := h.service.RecordRetention(ctx, id, req.parsedActual)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, target)
}

// HandleEvaluate handles POST /performance/targets/{id}/evaluate requests.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseTargetID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	target, err := h.service.Evaluate(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "target evaluation failed",
			"request_id", requestID,
			"target_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "target evaluated",
		"request_id", requestID,
		"target_id", id,
		"status", target.Status,
		"actor", requestcontext.Actor(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, target)
}
