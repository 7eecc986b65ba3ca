package models

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
	pstrings "demarc/pkg/platform/strings"
)

// ExclusivityType classifies how many partners may hold a territory.
type ExclusivityType string

const (
	ExclusivityExclusive     ExclusivityType = "exclusive"
	ExclusivitySemiExclusive ExclusivityType = "semi_exclusive"
	ExclusivityNonExclusive  ExclusivityType = "non_exclusive"
)

var validExclusivityTypes = map[ExclusivityType]bool{
	ExclusivityExclusive:     true,
	ExclusivitySemiExclusive: true,
	ExclusivityNonExclusive:  true,
}

// ParseExclusivityType constructs an ExclusivityType from external input.
func ParseExclusivityType(s string) (ExclusivityType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "exclusivity type cannot be empty")
	}
	t := ExclusivityType(s)
	if !validExclusivityTypes[t] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid exclusivity type %q", s)
	}
	return t, nil
}

func (t ExclusivityType) IsValid() bool { return validExclusivityTypes[t] }

// ZipRange is an inclusive numeric postal range. Start and End are digit
// strings of equal meaning to the postal authority; comparisons are numeric.
type ZipRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Span returns the numeric bounds of the range.
func (z ZipRange) Span() (int, int, error) {
	start, err := strconv.Atoi(z.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("zip range start %q is not numeric", z.Start)
	}
	end, err := strconv.Atoi(z.End)
	if err != nil {
		return 0, 0, fmt.Errorf("zip range end %q is not numeric", z.End)
	}
	return start, end, nil
}

// Contains reports whether the numeric zip falls inside the range.
func (z ZipRange) Contains(zip string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(zip))
	if err != nil {
		return false
	}
	start, end, err := z.Span()
	if err != nil {
		return false
	}
	return n >= start && n <= end
}

// TerritoryDefinition is a named geographic exclusivity zone.
//
// Invariants:
//   - At least one delimitation layer (administrative, statistical, postal,
//     or custom) must be present.
//   - TerritoryHash is a pure function of normalized content: two territories
//     with identical normalized content produce identical fingerprints.
//   - Geography is immutable after creation. Corrections require
//     deactivation and recreation, never in-place mutation.
type TerritoryDefinition struct {
	ID   domain.TerritoryID `json:"id"`
	Name string             `json:"name"`
	// CountryCode is ISO 3166-1 alpha-3 (e.g. "BRA").
	CountryCode string `json:"country_code"`

	// Administrative layer.
	States                 []string `json:"states,omitempty"`
	ExcludedStates         []string `json:"excluded_states,omitempty"`
	Municipalities         []string `json:"municipalities,omitempty"`
	ExcludedMunicipalities []string `json:"excluded_municipalities,omitempty"`

	// Statistical layer.
	MicroRegions        []string `json:"micro_regions,omitempty"`
	MetroRegions        []string `json:"metro_regions,omitempty"`
	UrbanAgglomerations []string `json:"urban_agglomerations,omitempty"`

	// Postal layer.
	ZipRanges     []ZipRange `json:"zip_ranges,omitempty"`
	ZipExclusions []string   `json:"zip_exclusions,omitempty"`

	// CustomZoneRef points at an externally managed zone definition.
	CustomZoneRef string `json:"custom_zone_ref,omitempty"`

	ExclusivityType ExclusivityType `json:"exclusivity_type"`
	// MaxPartnerQuota bounds concurrent holders; required for semi_exclusive.
	MaxPartnerQuota int  `json:"max_partner_quota,omitempty"`
	OverlapAllowed  bool `json:"overlap_allowed"`
	Active          bool `json:"active"`

	TerritoryHash string `json:"territory_hash"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var countryCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)

// Normalize canonicalizes every list field in place: codes are trimmed,
// uppercased, deduped and sorted; zip ranges are ordered and digit-checked
// bounds swapped when reversed. Hashing and overlap math assume a normalized
// definition.
func (t *TerritoryDefinition) Normalize() {
	t.Name = strings.Join(strings.Fields(t.Name), " ")
	t.CountryCode = strings.ToUpper(strings.TrimSpace(t.CountryCode))
	t.CustomZoneRef = strings.TrimSpace(t.CustomZoneRef)

	t.States = pstrings.NormalizeCodes(t.States)
	t.ExcludedStates = pstrings.NormalizeCodes(t.ExcludedStates)
	t.Municipalities = pstrings.NormalizeCodes(t.Municipalities)
	t.ExcludedMunicipalities = pstrings.NormalizeCodes(t.ExcludedMunicipalities)
	t.MicroRegions = pstrings.NormalizeCodes(t.MicroRegions)
	t.MetroRegions = pstrings.NormalizeCodes(t.MetroRegions)
	t.UrbanAgglomerations = pstrings.NormalizeCodes(t.UrbanAgglomerations)
	t.ZipExclusions = pstrings.NormalizeCodes(t.ZipExclusions)

	ranges := make([]ZipRange, 0, len(t.ZipRanges))
	for _, z := range t.ZipRanges {
		z.Start = strings.TrimSpace(z.Start)
		z.End = strings.TrimSpace(z.End)
		if z.Start == "" && z.End == "" {
			continue
		}
		if start, end, err := z.Span(); err == nil && start > end {
			z.Start, z.End = z.End, z.Start
		}
		ranges = append(ranges, z)
	}
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Start != ranges[j].Start {
			return ranges[i].Start < ranges[j].Start
		}
		return ranges[i].End < ranges[j].End
	})
	if len(ranges) == 0 {
		ranges = nil
	}
	t.ZipRanges = ranges
}

// HasAdministrativeLayer reports whether states or municipalities delimit
// this territory.
func (t *TerritoryDefinition) HasAdministrativeLayer() bool {
	return len(t.States) > 0 || len(t.Municipalities) > 0
}

// HasStatisticalLayer reports whether statistical regions delimit this
// territory.
func (t *TerritoryDefinition) HasStatisticalLayer() bool {
	return len(t.MicroRegions) > 0 || len(t.MetroRegions) > 0 || len(t.UrbanAgglomerations) > 0
}

// HasPostalLayer reports whether zip ranges delimit this territory.
func (t *TerritoryDefinition) HasPostalLayer() bool {
	return len(t.ZipRanges) > 0
}

// HasDelimitation reports whether any layer delimits this territory.
func (t *TerritoryDefinition) HasDelimitation() bool {
	return t.HasAdministrativeLayer() || t.HasStatisticalLayer() || t.HasPostalLayer() || t.CustomZoneRef != ""
}

// EffectiveStates returns the state inclusion list minus exclusions.
func (t *TerritoryDefinition) EffectiveStates() []string {
	return subtract(t.States, t.ExcludedStates)
}

// EffectiveMunicipalities returns the municipality inclusion list minus
// exclusions.
func (t *TerritoryDefinition) EffectiveMunicipalities() []string {
	return subtract(t.Municipalities, t.ExcludedMunicipalities)
}

func subtract(include, exclude []string) []string {
	if len(include) == 0 {
		return nil
	}
	excluded := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		excluded[e] = struct{}{}
	}
	out := make([]string, 0, len(include))
	for _, v := range include {
		if _, ok := excluded[v]; !ok {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Clone returns a deep copy with no shared slice references back to the
// receiver. Regional links snapshot territories through this.
func (t *TerritoryDefinition) Clone() *TerritoryDefinition {
	c := *t
	c.States = cloneStrings(t.States)
	c.ExcludedStates = cloneStrings(t.ExcludedStates)
	c.Municipalities = cloneStrings(t.Municipalities)
	c.ExcludedMunicipalities = cloneStrings(t.ExcludedMunicipalities)
	c.MicroRegions = cloneStrings(t.MicroRegions)
	c.MetroRegions = cloneStrings(t.MetroRegions)
	c.UrbanAgglomerations = cloneStrings(t.UrbanAgglomerations)
	c.ZipExclusions = cloneStrings(t.ZipExclusions)
	if t.ZipRanges != nil {
		c.ZipRanges = make([]ZipRange, len(t.ZipRanges))
		copy(c.ZipRanges, t.ZipRanges)
	}
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Issue is one validation finding, tied to the field that produced it.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult separates blocking errors from advisory warnings.
type ValidationResult struct {
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Blocked reports whether creation must be rejected.
func (r ValidationResult) Blocked() bool { return len(r.Errors) > 0 }

const minNameLength = 3

// Validate checks a normalized definition. Errors block creation; warnings
// flag inert or suspicious configuration without blocking.
func (t *TerritoryDefinition) Validate() ValidationResult {
	var r ValidationResult

	if len(t.Name) < minNameLength {
		r.Errors = append(r.Errors, Issue{
			Field:   "name",
			Message: fmt.Sprintf("name must be at least %d characters", minNameLength),
		})
	}
	if !countryCodeRe.MatchString(t.CountryCode) {
		r.Errors = append(r.Errors, Issue{
			Field:   "country_code",
			Message: "country code must be a 3-letter ISO 3166-1 alpha-3 code",
		})
	}
	if !t.HasDelimitation() {
		r.Errors = append(r.Errors, Issue{
			Field:   "delimitation",
			Message: "at least one delimitation layer (administrative, statistical, postal, or custom) is required",
		})
	}
	if !t.ExclusivityType.IsValid() {
		r.Errors = append(r.Errors, Issue{
			Field:   "exclusivity_type",
			Message: "exclusivity type must be exclusive, semi_exclusive, or non_exclusive",
		})
	}
	if t.ExclusivityType == ExclusivitySemiExclusive && t.MaxPartnerQuota <= 0 {
		r.Errors = append(r.Errors, Issue{
			Field:   "max_partner_quota",
			Message: "semi_exclusive territories require a positive partner quota",
		})
	}
	for _, z := range t.ZipRanges {
		if _, _, err := z.Span(); err != nil {
			r.Errors = append(r.Errors, Issue{
				Field:   "zip_ranges",
				Message: err.Error(),
			})
		}
	}

	if t.OverlapAllowed && t.ExclusivityType == ExclusivityExclusive {
		r.Warnings = append(r.Warnings, Issue{
			Field:   "overlap_allowed",
			Message: "overlap_allowed on an exclusive territory weakens exclusivity and is usually a mistake",
		})
	}
	if len(t.ExcludedStates) > 0 && len(t.States) == 0 {
		r.Warnings = append(r.Warnings, Issue{
			Field:   "excluded_states",
			Message: "state exclusions without a state inclusion list are inert",
		})
	}
	if len(t.ExcludedMunicipalities) > 0 && len(t.Municipalities) == 0 {
		r.Warnings = append(r.Warnings, Issue{
			Field:   "excluded_municipalities",
			Message: "municipality exclusions without a municipality inclusion list are inert",
		})
	}
	if len(t.ZipExclusions) > 0 && len(t.ZipRanges) == 0 {
		r.Warnings = append(r.Warnings, Issue{
			Field:   "zip_exclusions",
			Message: "zip exclusions without zip ranges are inert",
		})
	}

	return r
}
