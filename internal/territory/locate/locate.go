// Package locate validates a resolved location against a territory
// definition. Pure functions only; the caller supplies already-resolved
// state/municipality/zip fields.
package locate

import (
	"strconv"
	"strings"

	"demarc/internal/territory/models"
	"demarc/internal/territory/overlap"
)

// ViolationType distinguishes the two ways a location can fall outside a
// territory. They drive different fraud severities downstream.
type ViolationType string

const (
	// ViolationUnauthorizedSale marks a location explicitly excluded by the
	// territory (the partner knew or should have known the carve-out).
	ViolationUnauthorizedSale ViolationType = "unauthorized-sale"
	// ViolationTerritoryOverreach marks a location no inclusion layer
	// covers.
	ViolationTerritoryOverreach ViolationType = "territory-overreach"
)

// Location carries the already-resolved geographic fields of a sale.
type Location struct {
	State        string `json:"state,omitempty"`
	Municipality string `json:"municipality,omitempty"`
	MicroRegion  string `json:"micro_region,omitempty"`
	MetroRegion  string `json:"metro_region,omitempty"`
	Zip          string `json:"zip,omitempty"`
}

// Normalize canonicalizes the location's codes the same way territory lists
// are canonicalized.
func (l Location) Normalize() Location {
	return Location{
		State:        strings.ToUpper(strings.TrimSpace(l.State)),
		Municipality: strings.ToUpper(strings.TrimSpace(l.Municipality)),
		MicroRegion:  strings.ToUpper(strings.TrimSpace(l.MicroRegion)),
		MetroRegion:  strings.ToUpper(strings.TrimSpace(l.MetroRegion)),
		Zip:          strings.TrimSpace(l.Zip),
	}
}

// Violation explains a failed validation with the layer and value that
// produced it, so the audit trail needs no log cross-referencing.
type Violation struct {
	Type  ViolationType `json:"type"`
	Layer overlap.Layer `json:"layer"`
	Value string        `json:"value"`
}

// Result of validating a location against a territory.
type Result struct {
	Authorized   bool          `json:"authorized"`
	MatchedLayer overlap.Layer `json:"matched_layer,omitempty"`
	MatchedValue string        `json:"matched_value,omitempty"`
	Violation    *Violation    `json:"violation,omitempty"`
}

// Validate checks the location against the territory.
//
// Exclusions are checked first and take precedence over any inclusion match:
// an explicitly excluded state or municipality fails immediately as
// unauthorized-sale. Inclusion layers are then checked in order — states,
// municipalities, micro-regions, metro-regions, zip ranges (honoring
// per-code zip exclusions) — succeeding on the first match. No match on any
// layer fails as territory-overreach.
func Validate(t *models.TerritoryDefinition, loc Location) Result {
	loc = loc.Normalize()

	if loc.State != "" && contains(t.ExcludedStates, loc.State) {
		return violation(ViolationUnauthorizedSale, overlap.LayerStates, loc.State)
	}
	if loc.Municipality != "" && contains(t.ExcludedMunicipalities, loc.Municipality) {
		return violation(ViolationUnauthorizedSale, overlap.LayerMunicipalities, loc.Municipality)
	}
	if loc.Zip != "" && zipExcluded(t.ZipExclusions, loc.Zip) {
		return violation(ViolationUnauthorizedSale, overlap.LayerZipRanges, loc.Zip)
	}

	if loc.State != "" && contains(t.States, loc.State) {
		return match(overlap.LayerStates, loc.State)
	}
	if loc.Municipality != "" && contains(t.Municipalities, loc.Municipality) {
		return match(overlap.LayerMunicipalities, loc.Municipality)
	}
	if loc.MicroRegion != "" && contains(t.MicroRegions, loc.MicroRegion) {
		return match(overlap.LayerMicroRegions, loc.MicroRegion)
	}
	if loc.MetroRegion != "" && contains(t.MetroRegions, loc.MetroRegion) {
		return match(overlap.LayerMetroRegions, loc.MetroRegion)
	}
	if loc.Zip != "" {
		for _, z := range t.ZipRanges {
			if z.Contains(loc.Zip) {
				return match(overlap.LayerZipRanges, loc.Zip)
			}
		}
	}

	value := loc.State
	if value == "" {
		value = firstNonEmpty(loc.Municipality, loc.MicroRegion, loc.MetroRegion, loc.Zip)
	}
	return violation(ViolationTerritoryOverreach, "", value)
}

func match(layer overlap.Layer, value string) Result {
	return Result{Authorized: true, MatchedLayer: layer, MatchedValue: value}
}

func violation(vt ViolationType, layer overlap.Layer, value string) Result {
	return Result{Violation: &Violation{Type: vt, Layer: layer, Value: value}}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// zipExcluded compares numerically so padded and unpadded codes match.
func zipExcluded(exclusions []string, zip string) bool {
	n, err := strconv.Atoi(zip)
	if err != nil {
		return contains(exclusions, zip)
	}
	for _, e := range exclusions {
		if m, err := strconv.Atoi(e); err == nil && m == n {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
