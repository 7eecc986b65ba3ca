// Package overlap compares two territory definitions across every
// delimitation layer. It is pure: no storage, no clock, safe for concurrent
// use.
package overlap

import (
	"fmt"
	"strconv"

	"demarc/internal/territory/models"
)

// Layer names the delimitation layer where an intersection was found.
type Layer string

const (
	LayerStates              Layer = "states"
	LayerMunicipalities      Layer = "municipalities"
	LayerMicroRegions        Layer = "micro_regions"
	LayerMetroRegions        Layer = "metro_regions"
	LayerUrbanAgglomerations Layer = "urban_agglomerations"
	LayerZipRanges           Layer = "zip_ranges"
)

// Degree classifies how much two territories overlap.
type Degree string

const (
	DegreeNone    Degree = "none"
	DegreePartial Degree = "partial"
	DegreeFull    Degree = "full"
)

// maxZipCodesPerPair bounds the per-code exclusion walk for one overlapping
// zip range pair.
const maxZipCodesPerPair = 100

// LayerOverlap records the intersecting values found on one layer.
type LayerOverlap struct {
	Layer  Layer    `json:"layer"`
	Values []string `json:"values"`
}

// Result is the outcome of comparing two territories.
type Result struct {
	HasOverlap bool           `json:"has_overlap"`
	Degree     Degree         `json:"degree"`
	Layers     []LayerOverlap `json:"layers,omitempty"`
}

// Compare computes the effective set for each layer of both territories
// (inclusions minus exclusions) and intersects them pairwise. Any non-empty
// intersection on any layer means overlap.
//
// Degree is full only when one side's effective state set is a non-empty
// subset of the other's; everything else is partial. Municipality and postal
// subset relations deliberately do not upgrade the degree (compatibility
// with the historical classifier).
func Compare(a, b *models.TerritoryDefinition) Result {
	var layers []LayerOverlap

	if hit := intersect(a.EffectiveStates(), b.EffectiveStates()); len(hit) > 0 {
		layers = append(layers, LayerOverlap{Layer: LayerStates, Values: hit})
	}
	if hit := intersect(a.EffectiveMunicipalities(), b.EffectiveMunicipalities()); len(hit) > 0 {
		layers = append(layers, LayerOverlap{Layer: LayerMunicipalities, Values: hit})
	}
	if hit := intersect(a.MicroRegions, b.MicroRegions); len(hit) > 0 {
		layers = append(layers, LayerOverlap{Layer: LayerMicroRegions, Values: hit})
	}
	if hit := intersect(a.MetroRegions, b.MetroRegions); len(hit) > 0 {
		layers = append(layers, LayerOverlap{Layer: LayerMetroRegions, Values: hit})
	}
	if hit := intersect(a.UrbanAgglomerations, b.UrbanAgglomerations); len(hit) > 0 {
		layers = append(layers, LayerOverlap{Layer: LayerUrbanAgglomerations, Values: hit})
	}
	if hit := zipOverlaps(a, b); len(hit) > 0 {
		layers = append(layers, LayerOverlap{Layer: LayerZipRanges, Values: hit})
	}

	if len(layers) == 0 {
		return Result{Degree: DegreeNone}
	}

	degree := DegreePartial
	if statesSubset(a.EffectiveStates(), b.EffectiveStates()) ||
		statesSubset(b.EffectiveStates(), a.EffectiveStates()) {
		degree = DegreeFull
	}

	return Result{HasOverlap: true, Degree: degree, Layers: layers}
}

// Blocks applies the admission rule for a new territory against one existing
// territory: an active exclusive territory that disallows overlap always
// blocks, regardless of the newcomer's own overlap setting. Existing
// exclusivity rights are never retroactively overridden.
func Blocks(existing, candidate *models.TerritoryDefinition) (Result, bool) {
	r := Compare(existing, candidate)
	if !r.HasOverlap {
		return r, false
	}
	if !existing.Active {
		return r, false
	}
	if existing.ExclusivityType == models.ExclusivityExclusive && !existing.OverlapAllowed {
		return r, true
	}
	// Both sides must consent to coexistence on overlapping ground.
	if !existing.OverlapAllowed || !candidate.OverlapAllowed {
		return r, true
	}
	return r, false
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	inA := make(map[string]struct{}, len(a))
	for _, v := range a {
		inA[v] = struct{}{}
	}
	var hit []string
	for _, v := range b {
		if _, ok := inA[v]; ok {
			hit = append(hit, v)
		}
	}
	return hit
}

// statesSubset reports whether a is a non-empty subset of b.
func statesSubset(a, b []string) bool {
	if len(a) == 0 || len(a) > len(b) {
		return false
	}
	inB := make(map[string]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	for _, v := range a {
		if _, ok := inB[v]; !ok {
			return false
		}
	}
	return true
}

// zipOverlaps intersects every zip range pair. A pair whose entire
// overlapping span is excluded by either side does not count; the walk over
// individual codes is capped to bound cost on huge ranges.
func zipOverlaps(a, b *models.TerritoryDefinition) []string {
	if len(a.ZipRanges) == 0 || len(b.ZipRanges) == 0 {
		return nil
	}

	exclA := toSet(a.ZipExclusions)
	exclB := toSet(b.ZipExclusions)

	var hits []string
	for _, ra := range a.ZipRanges {
		aStart, aEnd, err := ra.Span()
		if err != nil {
			continue
		}
		for _, rb := range b.ZipRanges {
			bStart, bEnd, err := rb.Span()
			if err != nil {
				continue
			}
			lo := max(aStart, bStart)
			hi := min(aEnd, bEnd)
			if lo > hi {
				continue
			}
			if spanFullyExcluded(lo, hi, exclA, exclB) {
				continue
			}
			width := len(ra.Start)
			hits = append(hits, fmt.Sprintf("%0*d-%0*d", width, lo, width, hi))
		}
	}
	return hits
}

// spanFullyExcluded walks the overlapping codes and reports whether every one
// of them appears in either exclusion set. Spans wider than the cap cannot be
// proven excluded and therefore count as overlapping.
func spanFullyExcluded(lo, hi int, exclA, exclB map[int]struct{}) bool {
	if len(exclA) == 0 && len(exclB) == 0 {
		return false
	}
	if hi-lo+1 > maxZipCodesPerPair {
		return false
	}
	for code := lo; code <= hi; code++ {
		_, inA := exclA[code]
		_, inB := exclB[code]
		if !inA && !inB {
			return false
		}
	}
	return true
}

// toSet parses exclusion codes numerically so padded and unpadded entries
// compare equal.
func toSet(values []string) map[int]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[int]struct{}, len(values))
	for _, v := range values {
		if n, err := strconv.Atoi(v); err == nil {
			set[n] = struct{}{}
		}
	}
	return set
}
