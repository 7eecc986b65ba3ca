// Package models defines the performance target aggregate: one scoring
// period for a partner with target-vs-actual metrics and the exclusivity
// impact applied when the period fails.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	partnermodels "demarc/internal/partner/models"
	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
)

// Period is the length of a scoring window.
type Period string

const (
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

var validPeriods = map[Period]bool{
	PeriodMonthly:   true,
	PeriodQuarterly: true,
	PeriodYearly:    true,
}

// ParsePeriod constructs a Period from external input.
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	if !validPeriods[p] {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "invalid target period %q", s)
	}
	return p, nil
}

// Status is the evaluation outcome of a target period.
type Status string

const (
	StatusPending      Status = "pending"
	StatusMet          Status = "met"
	StatusPartiallyMet Status = "partially_met"
	StatusFailed       Status = "failed"
)

// Metric pairs a target value with its measured actual. A nil target means
// the metric was not set for this period and counts as met.
type Metric struct {
	Target *decimal.Decimal `json:"target,omitempty"`
	Actual decimal.Decimal  `json:"actual"`
}

// Met reports whether the metric satisfies its target. An unset target is
// vacuously true.
func (m Metric) Met() bool {
	if m.Target == nil {
		return true
	}
	return m.Actual.GreaterThanOrEqual(*m.Target)
}

// PerformanceTarget is one partner scoring period.
//
// Sold, Volume and ActiveCount actuals are recomputed from the partner's
// regional links at evaluation time. The Retention actual cannot be derived
// from links and is supplied by the reporting collaborator before
// evaluation.
type PerformanceTarget struct {
	ID        domain.TargetID  `json:"id"`
	PartnerID domain.PartnerID `json:"partner_id"`

	Period      Period    `json:"period"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	Sold        Metric `json:"sold"`
	Volume      Metric `json:"volume"`
	Retention   Metric `json:"retention"`
	ActiveCount Metric `json:"active_count"`

	Status Status `json:"status"`
	// ExclusivityImpact is applied to the partner only when the period
	// evaluates to failed.
	ExclusivityImpact partnermodels.ExclusivityImpact `json:"exclusivity_impact"`

	EvaluatedAt *time.Time `json:"evaluated_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewPerformanceTarget validates and constructs a pending target period.
func NewPerformanceTarget(partnerID domain.PartnerID, period Period, start, end time.Time, impact partnermodels.ExclusivityImpact, now time.Time) (*PerformanceTarget, error) {
	if partnerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "partner id is required")
	}
	if !validPeriods[period] {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid target period %q", period)
	}
	if !end.After(start) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "period end must be after period start")
	}
	switch impact {
	case partnermodels.ImpactNone, partnermodels.ImpactWarning, partnermodels.ImpactPartialLoss, partnermodels.ImpactFullRevocation:
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown exclusivity impact %q", impact)
	}
	return &PerformanceTarget{
		PartnerID:         partnerID,
		Period:            period,
		PeriodStart:       start,
		PeriodEnd:         end,
		Status:            StatusPending,
		ExclusivityImpact: impact,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Evaluate scores the period from the four metrics already stored on the
// target. All four met yields met, two or three yields partially_met, fewer
// yields failed.
func (t *PerformanceTarget) Evaluate(now time.Time) Status {
	met := 0
	for _, m := range []Metric{t.Sold, t.Volume, t.Retention, t.ActiveCount} {
		if m.Met() {
			met++
		}
	}
	switch {
	case met == 4:
		t.Status = StatusMet
	case met >= 2:
		t.Status = StatusPartiallyMet
	default:
		t.Status = StatusFailed
	}
	t.EvaluatedAt = &now
	t.UpdatedAt = now
	return t.Status
}
