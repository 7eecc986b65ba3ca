package handler

import (
	"demarc/internal/territory/models"
)

// CreateTerritoryResponse is the HTTP response for POST /territories.
// Warnings are non-blocking validation issues surfaced to the operator.
type CreateTerritoryResponse struct {
	Territory *models.TerritoryDefinition `json:"territory"`
	Warnings  []models.Issue              `json:"warnings,omitempty"`
}
