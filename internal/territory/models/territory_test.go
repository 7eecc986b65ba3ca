package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseDefinition() TerritoryDefinition {
	return TerritoryDefinition{
		Name:            "São Paulo Master",
		CountryCode:     "BRA",
		States:          []string{"SP"},
		ExclusivityType: ExclusivityExclusive,
		Active:          true,
	}
}

func TestNormalize(t *testing.T) {
	t.Run("codes are trimmed, uppercased, deduped, sorted", func(t *testing.T) {
		d := baseDefinition()
		d.States = []string{" sp", "RJ", "SP ", "rj", ""}
		d.Normalize()
		assert.Equal(t, []string{"RJ", "SP"}, d.States)
	})

	t.Run("reversed zip range bounds are swapped", func(t *testing.T) {
		d := baseDefinition()
		d.ZipRanges = []ZipRange{{Start: "09000", End: "01000"}}
		d.Normalize()
		assert.Equal(t, []ZipRange{{Start: "01000", End: "09000"}}, d.ZipRanges)
	})

	t.Run("interior whitespace in name is collapsed", func(t *testing.T) {
		d := baseDefinition()
		d.Name = "  São   Paulo  Master "
		d.Normalize()
		assert.Equal(t, "São Paulo Master", d.Name)
	})
}

func TestComputeHash_Determinism(t *testing.T) {
	t.Run("reordering any list yields the same hash", func(t *testing.T) {
		a := baseDefinition()
		a.States = []string{"SP", "RJ", "MG"}
		a.Municipalities = []string{"3550308", "3304557"}
		a.ZipRanges = []ZipRange{{Start: "01000", End: "01999"}, {Start: "20000", End: "20999"}}

		b := baseDefinition()
		b.States = []string{"mg", " rj", "SP"}
		b.Municipalities = []string{"3304557", "3550308"}
		b.ZipRanges = []ZipRange{{Start: "20000", End: "20999"}, {Start: "01999", End: "01000"}}

		assert.Equal(t, a.ComputeHash(), b.ComputeHash())
	})

	t.Run("changing any single field changes the hash", func(t *testing.T) {
		base := baseDefinition()
		baseHash := base.ComputeHash()

		mutations := map[string]func(*TerritoryDefinition){
			"name":             func(d *TerritoryDefinition) { d.Name = "Rio Master" },
			"country":          func(d *TerritoryDefinition) { d.CountryCode = "ARG" },
			"states":           func(d *TerritoryDefinition) { d.States = []string{"SP", "RJ"} },
			"excluded states":  func(d *TerritoryDefinition) { d.ExcludedStates = []string{"SP"} },
			"municipalities":   func(d *TerritoryDefinition) { d.Municipalities = []string{"3550308"} },
			"micro regions":    func(d *TerritoryDefinition) { d.MicroRegions = []string{"35001"} },
			"metro regions":    func(d *TerritoryDefinition) { d.MetroRegions = []string{"RMSP"} },
			"zip ranges":       func(d *TerritoryDefinition) { d.ZipRanges = []ZipRange{{Start: "01000", End: "01999"}} },
			"zip exclusions":   func(d *TerritoryDefinition) { d.ZipExclusions = []string{"01500"} },
			"custom zone":      func(d *TerritoryDefinition) { d.CustomZoneRef = "zone-42" },
			"exclusivity type": func(d *TerritoryDefinition) { d.ExclusivityType = ExclusivityNonExclusive },
			"quota":            func(d *TerritoryDefinition) { d.MaxPartnerQuota = 3 },
			"overlap allowed":  func(d *TerritoryDefinition) { d.OverlapAllowed = true },
		}
		for field, mutate := range mutations {
			d := baseDefinition()
			mutate(&d)
			assert.NotEqual(t, baseHash, d.ComputeHash(), "mutating %s must change the hash", field)
		}
	})

	t.Run("identity and activity do not participate", func(t *testing.T) {
		a := baseDefinition()
		b := baseDefinition()
		b.Active = false
		assert.Equal(t, a.ComputeHash(), b.ComputeHash())
	})
}

func TestValidate(t *testing.T) {
	t.Run("valid definition has no errors", func(t *testing.T) {
		d := baseDefinition()
		d.Normalize()
		r := d.Validate()
		assert.False(t, r.Blocked())
		assert.Empty(t, r.Warnings)
	})

	t.Run("name too short blocks", func(t *testing.T) {
		d := baseDefinition()
		d.Name = "SP"
		d.Normalize()
		r := d.Validate()
		require.True(t, r.Blocked())
		assert.Equal(t, "name", r.Errors[0].Field)
	})

	t.Run("invalid country code blocks", func(t *testing.T) {
		for _, code := range []string{"", "BR", "BRAZ", "br1"} {
			d := baseDefinition()
			d.CountryCode = code
			d.Normalize()
			assert.True(t, d.Validate().Blocked(), "country code %q must block", code)
		}
	})

	t.Run("missing delimitation layer blocks", func(t *testing.T) {
		d := baseDefinition()
		d.States = nil
		d.Normalize()
		r := d.Validate()
		require.True(t, r.Blocked())
		assert.Equal(t, "delimitation", r.Errors[0].Field)
	})

	t.Run("custom zone alone is a valid delimitation", func(t *testing.T) {
		d := baseDefinition()
		d.States = nil
		d.CustomZoneRef = "zone-42"
		d.Normalize()
		assert.False(t, d.Validate().Blocked())
	})

	t.Run("semi_exclusive without quota blocks", func(t *testing.T) {
		d := baseDefinition()
		d.ExclusivityType = ExclusivitySemiExclusive
		d.Normalize()
		r := d.Validate()
		require.True(t, r.Blocked())
		assert.Equal(t, "max_partner_quota", r.Errors[0].Field)

		d.MaxPartnerQuota = 3
		assert.False(t, d.Validate().Blocked())
	})

	t.Run("overlap allowed on exclusive type warns", func(t *testing.T) {
		d := baseDefinition()
		d.OverlapAllowed = true
		d.Normalize()
		r := d.Validate()
		assert.False(t, r.Blocked())
		require.Len(t, r.Warnings, 1)
		assert.Equal(t, "overlap_allowed", r.Warnings[0].Field)
	})

	t.Run("inert exclusions warn", func(t *testing.T) {
		d := baseDefinition()
		d.ExcludedMunicipalities = []string{"3550308"}
		d.Normalize()
		r := d.Validate()
		assert.False(t, r.Blocked())
		require.Len(t, r.Warnings, 1)
		assert.Equal(t, "excluded_municipalities", r.Warnings[0].Field)
	})

	t.Run("non-numeric zip range blocks", func(t *testing.T) {
		d := baseDefinition()
		d.ZipRanges = []ZipRange{{Start: "ABC", End: "01000"}}
		d.Normalize()
		assert.True(t, d.Validate().Blocked())
	})
}

func TestEffectiveSets(t *testing.T) {
	d := baseDefinition()
	d.States = []string{"SP", "RJ", "MG"}
	d.ExcludedStates = []string{"RJ"}
	d.Normalize()

	assert.Equal(t, []string{"MG", "SP"}, d.EffectiveStates())

	t.Run("fully excluded list is nil", func(t *testing.T) {
		d := baseDefinition()
		d.States = []string{"SP"}
		d.ExcludedStates = []string{"SP"}
		d.Normalize()
		assert.Nil(t, d.EffectiveStates())
	})
}

func TestClone_NoSharedReferences(t *testing.T) {
	d := baseDefinition()
	d.States = []string{"SP", "RJ"}
	d.ZipRanges = []ZipRange{{Start: "01000", End: "01999"}}

	c := d.Clone()
	c.States[0] = "MG"
	c.ZipRanges[0].Start = "99000"

	assert.Equal(t, "SP", d.States[0])
	assert.Equal(t, "01000", d.ZipRanges[0].Start)
}
