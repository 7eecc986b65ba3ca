package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"demarc/internal/alert"
)

func TestActionFor(t *testing.T) {
	allTypes := []Type{
		TypeTerritoryOverreach, TypeUnauthorizedSale, TypeOverlapBreach,
		TypeSelfSplitAttempt, TypeDataManipulation, TypePrivilegeEscalation,
	}

	t.Run("critical always suspends", func(t *testing.T) {
		for _, typ := range allTypes {
			assert.Equal(t, ActionSuspend, ActionFor(typ, SeverityCritical), "type %s", typ)
		}
	})

	t.Run("high suspends for manipulation types, escalates otherwise", func(t *testing.T) {
		assert.Equal(t, ActionSuspend, ActionFor(TypePrivilegeEscalation, SeverityHigh))
		assert.Equal(t, ActionSuspend, ActionFor(TypeDataManipulation, SeverityHigh))
		assert.Equal(t, ActionSuspend, ActionFor(TypeSelfSplitAttempt, SeverityHigh))

		assert.Equal(t, ActionEscalate, ActionFor(TypeTerritoryOverreach, SeverityHigh))
		assert.Equal(t, ActionEscalate, ActionFor(TypeUnauthorizedSale, SeverityHigh))
		assert.Equal(t, ActionEscalate, ActionFor(TypeOverlapBreach, SeverityHigh))
	})

	t.Run("medium warns, low does nothing", func(t *testing.T) {
		for _, typ := range allTypes {
			assert.Equal(t, ActionWarn, ActionFor(typ, SeverityMedium))
			assert.Equal(t, ActionNone, ActionFor(typ, SeverityLow))
		}
	})
}

func TestAlertPriorityFor(t *testing.T) {
	priority, ok := AlertPriorityFor(SeverityCritical)
	assert.True(t, ok)
	assert.Equal(t, alert.PriorityUrgent, priority)

	priority, ok = AlertPriorityFor(SeverityHigh)
	assert.True(t, ok)
	assert.Equal(t, alert.PriorityHigh, priority)

	_, ok = AlertPriorityFor(SeverityMedium)
	assert.False(t, ok)
	_, ok = AlertPriorityFor(SeverityLow)
	assert.False(t, ok)
}

func TestClassifyAdminAction(t *testing.T) {
	typ, severity, detected := ClassifyAdminAction("partner.approve")
	assert.True(t, detected)
	assert.Equal(t, TypePrivilegeEscalation, typ)
	assert.Equal(t, SeverityCritical, severity)

	_, _, detected = ClassifyAdminAction("link.create")
	assert.False(t, detected)
}

func TestClassifyBulkOperation(t *testing.T) {
	cases := []struct {
		name                   string
		reads, writes, deletes int
		detected               bool
		severity               Severity
	}{
		{"under all thresholds", 100, 50, 10, false, ""},
		{"reads over threshold", 101, 0, 0, true, SeverityHigh},
		{"writes over threshold", 0, 51, 0, true, SeverityHigh},
		{"deletes over threshold", 0, 0, 11, true, SeverityCritical},
		{"deletes dominate mixed batch", 200, 100, 11, true, SeverityCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			typ, severity, detected := ClassifyBulkOperation(tc.reads, tc.writes, tc.deletes)
			assert.Equal(t, tc.detected, detected)
			if tc.detected {
				assert.Equal(t, TypeDataManipulation, typ)
				assert.Equal(t, tc.severity, severity)
			}
		})
	}
}
