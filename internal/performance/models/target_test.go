package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	partnermodels "demarc/internal/partner/models"
	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
)

type TargetSuite struct {
	suite.Suite
	now time.Time
}

func (s *TargetSuite) SetupTest() {
	s.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestTargetSuite(t *testing.T) {
	suite.Run(t, new(TargetSuite))
}

func d(v int64) *decimal.Decimal {
	x := decimal.NewFromInt(v)
	return &x
}

func (s *TargetSuite) newTarget() *PerformanceTarget {
	t, err := NewPerformanceTarget(domain.PartnerID(uuid.New()), PeriodQuarterly,
		s.now, s.now.AddDate(0, 3, 0), partnermodels.ImpactWarning, s.now)
	s.Require().NoError(err)
	return t
}

func (s *TargetSuite) TestNewPerformanceTarget_Validation() {
	partnerID := domain.PartnerID(uuid.New())

	s.Run("rejects nil partner", func() {
		_, err := NewPerformanceTarget(domain.PartnerID{}, PeriodMonthly, s.now, s.now.AddDate(0, 1, 0), partnermodels.ImpactNone, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
	s.Run("rejects unknown period", func() {
		_, err := NewPerformanceTarget(partnerID, Period("weekly"), s.now, s.now.AddDate(0, 1, 0), partnermodels.ImpactNone, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
	s.Run("rejects inverted period window", func() {
		_, err := NewPerformanceTarget(partnerID, PeriodMonthly, s.now, s.now, partnermodels.ImpactNone, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
	s.Run("rejects unknown impact", func() {
		_, err := NewPerformanceTarget(partnerID, PeriodMonthly, s.now, s.now.AddDate(0, 1, 0), partnermodels.ExclusivityImpact("demotion"), s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
	s.Run("starts pending", func() {
		t, err := NewPerformanceTarget(partnerID, PeriodYearly, s.now, s.now.AddDate(1, 0, 0), partnermodels.ImpactFullRevocation, s.now)
		s.Require().NoError(err)
		s.Equal(StatusPending, t.Status)
		s.Nil(t.EvaluatedAt)
	})
}

func (s *TargetSuite) TestMetric_UnsetTargetIsVacuouslyMet() {
	s.True(Metric{}.Met())
	s.True(Metric{Actual: decimal.NewFromInt(-5)}.Met())
	s.False(Metric{Target: d(10), Actual: decimal.NewFromInt(9)}.Met())
	s.True(Metric{Target: d(10), Actual: decimal.NewFromInt(10)}.Met())
}

func (s *TargetSuite) TestEvaluate_StatusBands() {
	cases := []struct {
		name    string
		metrics [4]bool
		want    Status
	}{
		{"all four met", [4]bool{true, true, true, true}, StatusMet},
		{"three met", [4]bool{true, true, true, false}, StatusPartiallyMet},
		{"two met", [4]bool{true, true, false, false}, StatusPartiallyMet},
		{"one met", [4]bool{true, false, false, false}, StatusFailed},
		{"none met", [4]bool{false, false, false, false}, StatusFailed},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			t := s.newTarget()
			slots := []*Metric{&t.Sold, &t.Volume, &t.Retention, &t.ActiveCount}
			for i, met := range tc.metrics {
				slots[i].Target = d(10)
				if met {
					slots[i].Actual = decimal.NewFromInt(10)
				} else {
					slots[i].Actual = decimal.NewFromInt(1)
				}
			}
			got := t.Evaluate(s.now.AddDate(0, 3, 0))
			s.Equal(tc.want, got)
			s.Equal(tc.want, t.Status)
			s.Require().NotNil(t.EvaluatedAt)
		})
	}
}

func (s *TargetSuite) TestEvaluate_AllTargetsUnsetIsMet() {
	t := s.newTarget()
	s.Equal(StatusMet, t.Evaluate(s.now))
}
