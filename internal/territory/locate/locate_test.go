package locate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demarc/internal/territory/models"
	"demarc/internal/territory/overlap"
)

func territory(mutate func(*models.TerritoryDefinition)) *models.TerritoryDefinition {
	d := &models.TerritoryDefinition{
		Name:            "Test Territory",
		CountryCode:     "BRA",
		ExclusivityType: models.ExclusivityExclusive,
		Active:          true,
	}
	mutate(d)
	d.Normalize()
	return d
}

func TestValidate_ExclusionPrecedence(t *testing.T) {
	// RJ is both included and excluded; exclusion must win and report
	// unauthorized-sale, never territory-overreach.
	tr := territory(func(d *models.TerritoryDefinition) {
		d.States = []string{"SP", "RJ"}
		d.ExcludedStates = []string{"RJ"}
	})

	r := Validate(tr, Location{State: "RJ"})
	require.NotNil(t, r.Violation)
	assert.False(t, r.Authorized)
	assert.Equal(t, ViolationUnauthorizedSale, r.Violation.Type)
	assert.Equal(t, overlap.LayerStates, r.Violation.Layer)
	assert.Equal(t, "RJ", r.Violation.Value)
}

func TestValidate_InclusionLayers(t *testing.T) {
	tr := territory(func(d *models.TerritoryDefinition) {
		d.States = []string{"SP"}
		d.Municipalities = []string{"3304557"}
		d.MicroRegions = []string{"35001"}
		d.MetroRegions = []string{"RMSP"}
		d.ZipRanges = []models.ZipRange{{Start: "01000", End: "01999"}}
	})

	t.Run("state match", func(t *testing.T) {
		r := Validate(tr, Location{State: "sp"})
		assert.True(t, r.Authorized)
		assert.Equal(t, overlap.LayerStates, r.MatchedLayer)
	})

	t.Run("municipality match when state misses", func(t *testing.T) {
		r := Validate(tr, Location{State: "RJ", Municipality: "3304557"})
		assert.True(t, r.Authorized)
		assert.Equal(t, overlap.LayerMunicipalities, r.MatchedLayer)
	})

	t.Run("micro-region match", func(t *testing.T) {
		r := Validate(tr, Location{MicroRegion: "35001"})
		assert.True(t, r.Authorized)
		assert.Equal(t, overlap.LayerMicroRegions, r.MatchedLayer)
	})

	t.Run("metro-region match", func(t *testing.T) {
		r := Validate(tr, Location{MetroRegion: "RMSP"})
		assert.True(t, r.Authorized)
		assert.Equal(t, overlap.LayerMetroRegions, r.MatchedLayer)
	})

	t.Run("zip range match", func(t *testing.T) {
		r := Validate(tr, Location{Zip: "01500"})
		assert.True(t, r.Authorized)
		assert.Equal(t, overlap.LayerZipRanges, r.MatchedLayer)
	})

	t.Run("no layer matches is overreach", func(t *testing.T) {
		r := Validate(tr, Location{State: "MG", Zip: "30000"})
		require.NotNil(t, r.Violation)
		assert.Equal(t, ViolationTerritoryOverreach, r.Violation.Type)
		assert.Equal(t, "MG", r.Violation.Value)
	})
}

func TestValidate_ZipExclusions(t *testing.T) {
	tr := territory(func(d *models.TerritoryDefinition) {
		d.ZipRanges = []models.ZipRange{{Start: "01000", End: "01999"}}
		d.ZipExclusions = []string{"01500"}
	})

	t.Run("excluded code inside an included range is unauthorized", func(t *testing.T) {
		r := Validate(tr, Location{Zip: "01500"})
		require.NotNil(t, r.Violation)
		assert.Equal(t, ViolationUnauthorizedSale, r.Violation.Type)
		assert.Equal(t, overlap.LayerZipRanges, r.Violation.Layer)
	})

	t.Run("non-excluded code inside the range is authorized", func(t *testing.T) {
		r := Validate(tr, Location{Zip: "01501"})
		assert.True(t, r.Authorized)
	})

	t.Run("unpadded exclusion entries still match", func(t *testing.T) {
		tr := territory(func(d *models.TerritoryDefinition) {
			d.ZipRanges = []models.ZipRange{{Start: "01000", End: "01999"}}
			d.ZipExclusions = []string{"1500"}
		})
		r := Validate(tr, Location{Zip: "01500"})
		require.NotNil(t, r.Violation)
		assert.Equal(t, ViolationUnauthorizedSale, r.Violation.Type)
	})
}
