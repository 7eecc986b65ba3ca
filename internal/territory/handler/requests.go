package handler

import (
	"strings"

	"demarc/internal/territory/models"
	dErrors "demarc/pkg/domain-errors"
)

// CreateTerritoryRequest is the HTTP request body for POST /territories.
type CreateTerritoryRequest struct {
	Name        string `json:"name"`
	CountryCode string `json:"country_code"`

	States                 []string `json:"states,omitempty"`
	ExcludedStates         []string `json:"excluded_states,omitempty"`
	Municipalities         []string `json:"municipalities,omitempty"`
	ExcludedMunicipalities []string `json:"excluded_municipalities,omitempty"`

	MicroRegions        []string `json:"micro_regions,omitempty"`
	MetroRegions        []string `json:"metro_regions,omitempty"`
	UrbanAgglomerations []string `json:"urban_agglomerations,omitempty"`

	ZipRanges     []ZipRangeRequest `json:"zip_ranges,omitempty"`
	ZipExclusions []string          `json:"zip_exclusions,omitempty"`

	CustomZoneRef string `json:"custom_zone_ref,omitempty"`

	ExclusivityType string `json:"exclusivity_type"`
	MaxPartnerQuota int    `json:"max_partner_quota,omitempty"`
	OverlapAllowed  bool   `json:"overlap_allowed"`

	parsedExclusivity models.ExclusivityType
}

// ZipRangeRequest is one inclusive postal code range.
type ZipRangeRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateTerritoryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}

	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}

	parsed, err := models.ParseExclusivityType(r.ExclusivityType)
	if err != nil {
		return err
	}
	r.parsedExclusivity = parsed

	// Structural checks (layer presence, quota, zip digits) belong to the
	// territory validator, which reports them as a structured issue list.
	return nil
}

// Definition builds the domain territory from the validated request.
func (r *CreateTerritoryRequest) Definition() *models.TerritoryDefinition {
	ranges := make([]models.ZipRange, 0, len(r.ZipRanges))
	for _, z := range r.ZipRanges {
		ranges = append(ranges, models.ZipRange{Start: z.Start, End: z.End})
	}
	return &models.TerritoryDefinition{
		Name:                   r.Name,
		CountryCode:            r.CountryCode,
		States:                 r.States,
		ExcludedStates:         r.ExcludedStates,
		Municipalities:         r.Municipalities,
		ExcludedMunicipalities: r.ExcludedMunicipalities,
		MicroRegions:           r.MicroRegions,
		MetroRegions:           r.MetroRegions,
		UrbanAgglomerations:    r.UrbanAgglomerations,
		ZipRanges:              ranges,
		ZipExclusions:          r.ZipExclusions,
		CustomZoneRef:          r.CustomZoneRef,
		ExclusivityType:        r.parsedExclusivity,
		MaxPartnerQuota:        r.MaxPartnerQuota,
		OverlapAllowed:         r.OverlapAllowed,
	}
}
