package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"demarc/internal/auditchain"
	auditstore "demarc/internal/auditchain/store"
	partnermodels "demarc/internal/partner/models"
	partnerstore "demarc/internal/partner/store/partner"
	"demarc/internal/territory/models"
	territorystore "demarc/internal/territory/store/territory"
	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
	"demarc/pkg/requestcontext"
)

type TerritoryServiceSuite struct {
	suite.Suite
	territories *territorystore.InMemory
	partners    *partnerstore.InMemory
	audits      *auditstore.InMemory
	service     *Service
	ctx         context.Context
	now         time.Time
}

func (s *TerritoryServiceSuite) SetupTest() {
	s.territories = territorystore.NewInMemory()
	s.partners = partnerstore.NewInMemory()
	s.audits = auditstore.NewInMemory()
	s.service = New(s.territories, s.partners, auditchain.NewService(s.audits))
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func TestTerritoryServiceSuite(t *testing.T) {
	suite.Run(t, new(TerritoryServiceSuite))
}

func (s *TerritoryServiceSuite) definition(name string, states ...string) *models.TerritoryDefinition {
	return &models.TerritoryDefinition{
		Name:            name,
		CountryCode:     "BRA",
		States:          states,
		ExclusivityType: models.ExclusivityExclusive,
	}
}

func (s *TerritoryServiceSuite) TestCreateTerritory() {
	s.Run("creates active territory with fingerprint", func() {
		created, result, err := s.service.CreateTerritory(s.ctx, s.definition("Sudeste Zone", "SP"))
		s.Require().NoError(err)
		s.False(result.Blocked())
		s.True(created.Active)
		s.NotEmpty(created.TerritoryHash)
		s.False(created.ID.IsNil())

		found, err := s.service.GetTerritory(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Equal(created.TerritoryHash, found.TerritoryHash)
	})

	s.Run("rejects invalid definition with structured errors", func() {
		def := s.definition("Zone Without Layers")
		_, result, err := s.service.CreateTerritory(s.ctx, def)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.True(result.Blocked())
		s.NotEmpty(result.Errors)
	})

	s.Run("rejects duplicate configuration by fingerprint", func() {
		_, _, err := s.service.CreateTerritory(s.ctx, s.definition("Norte Zone", "AM"))
		s.Require().NoError(err)

		// Same content, different name order of lists, different casing.
		dup := s.definition("Norte Zone", "am")
		_, _, err = s.service.CreateTerritory(s.ctx, dup)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "duplicate territory configuration")
	})

	s.Run("exclusive territory blocks any overlapping newcomer", func() {
		_, _, err := s.service.CreateTerritory(s.ctx, s.definition("PR Exclusive", "PR"))
		s.Require().NoError(err)

		newcomer := s.definition("PR SC Zone", "PR", "SC")
		newcomer.OverlapAllowed = true
		newcomer.ExclusivityType = models.ExclusivityNonExclusive
		_, _, err = s.service.CreateTerritory(s.ctx, newcomer)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "PR")
	})

	s.Run("disjoint territories in the same country coexist", func() {
		_, _, err := s.service.CreateTerritory(s.ctx, s.definition("GO Zone", "GO"))
		s.Require().NoError(err)
		_, _, err = s.service.CreateTerritory(s.ctx, s.definition("BA Zone", "BA"))
		s.NoError(err)
	})

	s.Run("same content in another country is not a duplicate", func() {
		abroad := s.definition("Sudeste Zone", "SP")
		abroad.CountryCode = "ARG"
		_, _, err := s.service.CreateTerritory(s.ctx, abroad)
		s.NoError(err)
	})

	s.Run("deactivated territory no longer blocks or collides", func() {
		created, _, err := s.service.CreateTerritory(s.ctx, s.definition("MG Zone", "MG"))
		s.Require().NoError(err)
		_, err = s.service.DeactivateTerritory(s.ctx, created.ID)
		s.Require().NoError(err)

		_, _, err = s.service.CreateTerritory(s.ctx, s.definition("MG Zone", "MG"))
		s.NoError(err)
	})
}

func (s *TerritoryServiceSuite) TestDeactivateTerritory() {
	created, _, err := s.service.CreateTerritory(s.ctx, s.definition("Sul Zone", "RS"))
	s.Require().NoError(err)

	partner, err := partnermodels.NewPartnerAccount(
		domain.PartnerID(uuid.New()),
		"Partner", "tax-1", "cnpj", "BRA", "",
		created.ID, "",
		decimal.NewFromInt(30), decimal.NewFromInt(20),
		s.now, nil, s.now,
	)
	s.Require().NoError(err)
	s.Require().NoError(s.partners.Create(s.ctx, partner))

	s.Run("deactivates and snapshots every bound partner", func() {
		deactivated, err := s.service.DeactivateTerritory(s.ctx, created.ID)
		s.Require().NoError(err)
		s.False(deactivated.Active)

		chain, err := s.audits.ListByPartner(s.ctx, partner.ID)
		s.Require().NoError(err)
		s.Require().Len(chain, 1)
		s.Equal(auditchain.ReasonModification, chain[0].Reason)
	})

	s.Run("double deactivation is a conflict", func() {
		_, err := s.service.DeactivateTerritory(s.ctx, created.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown territory is not found", func() {
		_, err := s.service.DeactivateTerritory(s.ctx, domain.TerritoryID(uuid.New()))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
