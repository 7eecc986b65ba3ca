package overlap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demarc/internal/territory/models"
)

func territory(mutate func(*models.TerritoryDefinition)) *models.TerritoryDefinition {
	d := &models.TerritoryDefinition{
		Name:            "Test Territory",
		CountryCode:     "BRA",
		ExclusivityType: models.ExclusivityNonExclusive,
		Active:          true,
	}
	mutate(d)
	d.Normalize()
	return d
}

func TestCompare_NoOverlap(t *testing.T) {
	a := territory(func(d *models.TerritoryDefinition) { d.States = []string{"SP"} })
	b := territory(func(d *models.TerritoryDefinition) { d.States = []string{"RJ"} })

	r := Compare(a, b)
	assert.False(t, r.HasOverlap)
	assert.Equal(t, DegreeNone, r.Degree)
	assert.Empty(t, r.Layers)
}

func TestCompare_StateLayer(t *testing.T) {
	t.Run("shared state is partial overlap", func(t *testing.T) {
		a := territory(func(d *models.TerritoryDefinition) { d.States = []string{"SP", "MG"} })
		b := territory(func(d *models.TerritoryDefinition) { d.States = []string{"SP", "RJ"} })

		r := Compare(a, b)
		require.True(t, r.HasOverlap)
		assert.Equal(t, DegreePartial, r.Degree)
		require.Len(t, r.Layers, 1)
		assert.Equal(t, LayerStates, r.Layers[0].Layer)
		assert.Equal(t, []string{"SP"}, r.Layers[0].Values)
	})

	t.Run("subset state set is full overlap", func(t *testing.T) {
		a := territory(func(d *models.TerritoryDefinition) { d.States = []string{"SP"} })
		b := territory(func(d *models.TerritoryDefinition) { d.States = []string{"SP", "RJ"} })

		r := Compare(a, b)
		assert.Equal(t, DegreeFull, r.Degree)
	})

	t.Run("identical state sets are full overlap", func(t *testing.T) {
		a := territory(func(d *models.TerritoryDefinition) { d.States = []string{"SP", "RJ"} })
		b := territory(func(d *models.TerritoryDefinition) { d.States = []string{"RJ", "SP"} })

		assert.Equal(t, DegreeFull, Compare(a, b).Degree)
	})
}

func TestCompare_ExclusionsShrinkEffectiveSets(t *testing.T) {
	// A includes SP but excludes it again; only RJ remains effective.
	a := territory(func(d *models.TerritoryDefinition) {
		d.States = []string{"SP", "RJ"}
		d.ExcludedStates = []string{"SP"}
	})
	b := territory(func(d *models.TerritoryDefinition) { d.States = []string{"SP"} })

	r := Compare(a, b)
	assert.False(t, r.HasOverlap)
}

func TestCompare_MunicipalityDoesNotUpgradeDegree(t *testing.T) {
	// Municipality subset relations never produce a full classification;
	// only the state layer does (historical classifier compatibility).
	a := territory(func(d *models.TerritoryDefinition) {
		d.Municipalities = []string{"3550308"}
	})
	b := territory(func(d *models.TerritoryDefinition) {
		d.Municipalities = []string{"3550308", "3304557"}
	})

	r := Compare(a, b)
	require.True(t, r.HasOverlap)
	assert.Equal(t, DegreePartial, r.Degree)
	assert.Equal(t, LayerMunicipalities, r.Layers[0].Layer)
}

func TestCompare_StatisticalLayers(t *testing.T) {
	a := territory(func(d *models.TerritoryDefinition) {
		d.MicroRegions = []string{"35001"}
		d.MetroRegions = []string{"RMSP"}
	})
	b := territory(func(d *models.TerritoryDefinition) {
		d.MicroRegions = []string{"35001"}
		d.MetroRegions = []string{"RMRJ"}
	})

	r := Compare(a, b)
	require.True(t, r.HasOverlap)
	require.Len(t, r.Layers, 1)
	assert.Equal(t, LayerMicroRegions, r.Layers[0].Layer)
}

func TestCompare_ZipRanges(t *testing.T) {
	t.Run("intersecting ranges overlap", func(t *testing.T) {
		a := territory(func(d *models.TerritoryDefinition) {
			d.ZipRanges = []models.ZipRange{{Start: "01000", End: "01099"}}
		})
		b := territory(func(d *models.TerritoryDefinition) {
			d.ZipRanges = []models.ZipRange{{Start: "01050", End: "01200"}}
		})

		r := Compare(a, b)
		require.True(t, r.HasOverlap)
		assert.Equal(t, LayerZipRanges, r.Layers[0].Layer)
		assert.Equal(t, []string{"01050-01099"}, r.Layers[0].Values)
	})

	t.Run("disjoint ranges do not overlap", func(t *testing.T) {
		a := territory(func(d *models.TerritoryDefinition) {
			d.ZipRanges = []models.ZipRange{{Start: "01000", End: "01099"}}
		})
		b := territory(func(d *models.TerritoryDefinition) {
			d.ZipRanges = []models.ZipRange{{Start: "02000", End: "02099"}}
		})

		assert.False(t, Compare(a, b).HasOverlap)
	})

	t.Run("fully excluded overlapping span does not count", func(t *testing.T) {
		a := territory(func(d *models.TerritoryDefinition) {
			d.ZipRanges = []models.ZipRange{{Start: "01000", End: "01002"}}
			d.ZipExclusions = []string{"01000", "01001"}
		})
		b := territory(func(d *models.TerritoryDefinition) {
			d.ZipRanges = []models.ZipRange{{Start: "01000", End: "01002"}}
			d.ZipExclusions = []string{"01002"}
		})

		// Every code in 01000-01002 is excluded by one side or the other.
		assert.False(t, Compare(a, b).HasOverlap)
	})

	t.Run("partially excluded span still counts", func(t *testing.T) {
		a := territory(func(d *models.TerritoryDefinition) {
			d.ZipRanges = []models.ZipRange{{Start: "01000", End: "01002"}}
			d.ZipExclusions = []string{"01000"}
		})
		b := territory(func(d *models.TerritoryDefinition) {
			d.ZipRanges = []models.ZipRange{{Start: "01000", End: "01002"}}
		})

		assert.True(t, Compare(a, b).HasOverlap)
	})

	t.Run("span wider than the cap cannot be proven excluded", func(t *testing.T) {
		a := territory(func(d *models.TerritoryDefinition) {
			d.ZipRanges = []models.ZipRange{{Start: "01000", End: "01500"}}
			d.ZipExclusions = []string{"01000"}
		})
		b := territory(func(d *models.TerritoryDefinition) {
			d.ZipRanges = []models.ZipRange{{Start: "01000", End: "01500"}}
		})

		assert.True(t, Compare(a, b).HasOverlap)
	})
}

func TestBlocks(t *testing.T) {
	t.Run("active exclusive territory always blocks overlapping newcomer", func(t *testing.T) {
		existing := territory(func(d *models.TerritoryDefinition) {
			d.States = []string{"SP"}
			d.ExclusivityType = models.ExclusivityExclusive
		})
		candidate := territory(func(d *models.TerritoryDefinition) {
			d.States = []string{"SP", "RJ"}
			d.OverlapAllowed = true // newcomer's own flag never overrides
		})

		r, blocked := Blocks(existing, candidate)
		assert.True(t, blocked)
		require.True(t, r.HasOverlap)
		assert.Equal(t, []string{"SP"}, r.Layers[0].Values)
	})

	t.Run("inactive exclusive territory does not block", func(t *testing.T) {
		existing := territory(func(d *models.TerritoryDefinition) {
			d.States = []string{"SP"}
			d.ExclusivityType = models.ExclusivityExclusive
			d.Active = false
		})
		candidate := territory(func(d *models.TerritoryDefinition) { d.States = []string{"SP"} })

		_, blocked := Blocks(existing, candidate)
		assert.False(t, blocked)
	})

	t.Run("no overlap never blocks", func(t *testing.T) {
		existing := territory(func(d *models.TerritoryDefinition) {
			d.States = []string{"SP"}
			d.ExclusivityType = models.ExclusivityExclusive
		})
		candidate := territory(func(d *models.TerritoryDefinition) { d.States = []string{"RJ"} })

		_, blocked := Blocks(existing, candidate)
		assert.False(t, blocked)
	})

	t.Run("mutual consent permits overlap", func(t *testing.T) {
		existing := territory(func(d *models.TerritoryDefinition) {
			d.States = []string{"SP"}
			d.OverlapAllowed = true
		})
		candidate := territory(func(d *models.TerritoryDefinition) {
			d.States = []string{"SP"}
			d.OverlapAllowed = true
		})

		r, blocked := Blocks(existing, candidate)
		assert.False(t, blocked)
		assert.True(t, r.HasOverlap)
	})

	t.Run("one-sided consent blocks", func(t *testing.T) {
		existing := territory(func(d *models.TerritoryDefinition) {
			d.States = []string{"SP"}
			d.OverlapAllowed = true
		})
		candidate := territory(func(d *models.TerritoryDefinition) { d.States = []string{"SP"} })

		_, blocked := Blocks(existing, candidate)
		assert.True(t, blocked)
	})
}
