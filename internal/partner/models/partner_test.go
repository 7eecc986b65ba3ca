package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
)

type PartnerModelSuite struct {
	suite.Suite
	now time.Time
}

func (s *PartnerModelSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestPartnerModelSuite(t *testing.T) {
	suite.Run(t, new(PartnerModelSuite))
}

func (s *PartnerModelSuite) newPartner() *PartnerAccount {
	p, err := NewPartnerAccount(
		domain.PartnerID(uuid.New()),
		"Regional Master Sudeste Ltda", "12.345.678/0001-90", "cnpj", "bra", "Av. Paulista 1000, São Paulo",
		domain.TerritoryID(uuid.New()),
		domain.EntityID("E1"),
		decimal.NewFromInt(30), decimal.NewFromInt(20),
		s.now, nil, s.now,
	)
	s.Require().NoError(err)
	return p
}

func (s *PartnerModelSuite) TestConstructor() {
	s.Run("starts pending with normalized fields", func() {
		p := s.newPartner()
		s.Equal(StatusPendingApproval, p.Status)
		s.Equal(ExclusivityActive, p.ExclusivityStatus)
		s.Equal("BRA", p.CountryCode)
		s.True(p.TotalRevenue.IsZero())
	})

	s.Run("rejects empty legal name", func() {
		_, err := NewPartnerAccount(domain.PartnerID(uuid.New()), "  ", "tax", "cnpj", "BRA", "",
			domain.TerritoryID(uuid.New()), "", decimal.NewFromInt(30), decimal.NewFromInt(20), s.now, nil, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects out-of-range percentages", func() {
		_, err := NewPartnerAccount(domain.PartnerID(uuid.New()), "P", "tax", "cnpj", "BRA", "",
			domain.TerritoryID(uuid.New()), "", decimal.NewFromInt(101), decimal.NewFromInt(20), s.now, nil, s.now)
		s.Require().Error(err)

		_, err = NewPartnerAccount(domain.PartnerID(uuid.New()), "P", "tax", "cnpj", "BRA", "",
			domain.TerritoryID(uuid.New()), "", decimal.NewFromInt(30), decimal.NewFromInt(-1), s.now, nil, s.now)
		s.Require().Error(err)
	})

	s.Run("rejects nil territory", func() {
		_, err := NewPartnerAccount(domain.PartnerID(uuid.New()), "P", "tax", "cnpj", "BRA", "",
			domain.TerritoryID{}, "", decimal.NewFromInt(30), decimal.NewFromInt(20), s.now, nil, s.now)
		s.Require().Error(err)
	})

	s.Run("rejects contract end before start", func() {
		end := s.now.Add(-time.Hour)
		_, err := NewPartnerAccount(domain.PartnerID(uuid.New()), "P", "tax", "cnpj", "BRA", "",
			domain.TerritoryID(uuid.New()), "", decimal.NewFromInt(30), decimal.NewFromInt(20), s.now, &end, s.now)
		s.Require().Error(err)
	})
}

func (s *PartnerModelSuite) TestLifecycleTransitions() {
	s.Run("approve only from pending", func() {
		p := s.newPartner()
		s.Require().NoError(p.CanApprove())
		p.ApplyApproval("admin@principal", s.now)
		s.Equal(StatusActive, p.Status)
		s.Equal("admin@principal", p.ApprovedBy)

		s.Error(p.CanApprove())
	})

	s.Run("suspend from pending and from active, never from terminated", func() {
		p := s.newPartner()
		s.NoError(p.CanSuspend())

		p.ApplyApproval("admin", s.now)
		s.Require().NoError(p.CanSuspend())
		p.ApplySuspension("overdue royalties", s.now)
		s.Equal(StatusSuspended, p.Status)
		s.Equal("overdue royalties", p.SuspensionReason)
		s.NotNil(p.SuspendedAt)

		p.ApplyTermination(s.now)
		s.Error(p.CanSuspend())
	})

	s.Run("reactivate clears suspension metadata", func() {
		p := s.newPartner()
		p.ApplyApproval("admin", s.now)
		p.ApplySuspension("audit pending", s.now)

		s.Require().NoError(p.CanReactivate())
		p.ApplyReactivation("compliance@principal", s.now)
		s.Equal(StatusActive, p.Status)
		s.Empty(p.SuspensionReason)
		s.Nil(p.SuspendedAt)
		s.Equal("compliance@principal", p.ApprovedBy)
	})

	s.Run("terminated is terminal", func() {
		p := s.newPartner()
		p.ApplyApproval("admin", s.now)
		s.Require().NoError(p.CanTerminate())
		p.ApplyTermination(s.now)

		s.Error(p.CanApprove())
		s.Error(p.CanSuspend())
		s.Error(p.CanReactivate())
		s.Error(p.CanTerminate())
	})

	s.Run("cannot terminate from pending", func() {
		p := s.newPartner()
		s.Error(p.CanTerminate())
	})
}

func (s *PartnerModelSuite) TestExclusivityImpact() {
	s.Run("warning and partial loss both land on warning", func() {
		p := s.newPartner()
		s.Require().NoError(p.ApplyExclusivityImpact(ImpactWarning, "missed Q1 targets", s.now))
		s.Equal(ExclusivityWarning, p.ExclusivityStatus)
		s.Equal("missed Q1 targets", p.ExclusivityReason)

		q := s.newPartner()
		s.Require().NoError(q.ApplyExclusivityImpact(ImpactPartialLoss, "missed Q1 targets", s.now))
		s.Equal(ExclusivityWarning, q.ExclusivityStatus)
	})

	s.Run("full revocation is permanent and timestamped", func() {
		p := s.newPartner()
		s.Require().NoError(p.ApplyExclusivityImpact(ImpactFullRevocation, "repeated failures", s.now))
		s.Equal(ExclusivityRevoked, p.ExclusivityStatus)
		s.NotNil(p.ExclusivityLostAt)

		err := p.ApplyExclusivityImpact(ImpactWarning, "again", s.now)
		s.Error(err)
	})

	s.Run("revocation does not touch operational status", func() {
		p := s.newPartner()
		p.ApplyApproval("admin", s.now)
		s.Require().NoError(p.ApplyExclusivityImpact(ImpactFullRevocation, "failed", s.now))
		s.Equal(StatusActive, p.Status)
	})

	s.Run("none is a no-op", func() {
		p := s.newPartner()
		s.Require().NoError(p.ApplyExclusivityImpact(ImpactNone, "", s.now))
		s.Equal(ExclusivityActive, p.ExclusivityStatus)
	})
}

func (s *PartnerModelSuite) TestSelfEntityPredicate() {
	p := s.newPartner()
	s.True(p.IsSelfEntity("E1"))
	s.False(p.IsSelfEntity("E2"))

	p.SelfOperatedEntityID = ""
	s.False(p.IsSelfEntity(""))
	s.False(p.IsSelfEntity("E1"))
}

func (s *PartnerModelSuite) TestCounters() {
	p := s.newPartner()
	p.RecordSale(decimal.NewFromInt(5000), s.now)
	p.RecordSale(decimal.NewFromInt(3000), s.now)
	s.Equal(2, p.TotalSold)
	s.Equal(2, p.TotalActive)
	s.True(p.TotalRevenue.Equal(decimal.NewFromInt(8000)))

	p.RecordRevenue(decimal.NewFromInt(250), s.now)
	s.Equal(2, p.TotalSold)
	s.True(p.TotalRevenue.Equal(decimal.NewFromInt(8250)))

	p.RecordFraudFlag(s.now)
	s.Equal(1, p.FraudFlagCount)
	s.NotNil(p.LastFraudFlagAt)
}
