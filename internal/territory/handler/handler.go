// Package handler wires territory endpoints to the territory service.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"demarc/internal/territory/models"
	"demarc/pkg/domain"
	"demarc/pkg/platform/httputil"
	"demarc/pkg/requestcontext"
)

// Service defines the interface for territory operations.
type Service interface {
	CreateTerritory(ctx context.Context, def *models.TerritoryDefinition) (*models.TerritoryDefinition, models.ValidationResult, error)
	GetTerritory(ctx context.Context, id domain.TerritoryID) (*models.TerritoryDefinition, error)
	DeactivateTerritory(ctx context.Context, id domain.TerritoryID) (*models.TerritoryDefinition, error)
}

// Handler wires territory endpoints to the territory service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a territory handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts territory endpoints on the router. The admin router guards
// creation and deactivation behind bearer auth.
func (h *Handler) Register(public, admin chi.Router) {
	public.Get("/territories/{id}", h.HandleGet)
	admin.Post("/territories", h.HandleCreate)
	admin.Post("/territories/{id}/deactivate", h.HandleDeactivate)
}

// HandleCreate handles POST /territories requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateTerritoryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	territory, result, err := h.service.CreateTerritory(ctx, req.Definition())
	if err != nil {
		h.logger.WarnContext(ctx, "territory creation rejected",
			"request_id", requestID,
			"name", req.Name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "territory created",
		"request_id", requestID,
		"territory_id", territory.ID,
		"country", territory.CountryCode,
	)
	httputil.WriteJSON(w, http.StatusCreated, CreateTerritoryResponse{
		Territory: territory,
		Warnings:  result.Warnings,
	})
}

// HandleGet handles GET /territories/{id} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseTerritoryID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	territory, err := h.service.GetTerritory(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, territory)
}

// HandleDeactivate handles POST /territories/{id}/deactivate requests.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseTerritoryID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	territory, err := h.service.DeactivateTerritory(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "territory deactivation failed",
			"request_id", requestID,
			"territory_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "territory deactivated",
		"request_id", requestID,
		"territory_id", id,
		"actor", requestcontext.Actor(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, territory)
}
