package auditchain_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"demarc/internal/auditchain"
	"demarc/internal/auditchain/store"
	territorymodels "demarc/internal/territory/models"
	"demarc/pkg/domain"
)

type ChainSuite struct {
	suite.Suite
	store   *store.InMemory
	service *auditchain.Service
	ctx     context.Context
}

func (s *ChainSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.service = auditchain.NewService(s.store)
	s.ctx = context.Background()
}

func TestChainSuite(t *testing.T) {
	suite.Run(t, new(ChainSuite))
}

func (s *ChainSuite) newTerritory(states ...string) *territorymodels.TerritoryDefinition {
	d := &territorymodels.TerritoryDefinition{
		ID:              domain.TerritoryID(uuid.New()),
		Name:            "Chain Test Territory",
		CountryCode:     "BRA",
		States:          states,
		ExclusivityType: territorymodels.ExclusivityExclusive,
		Active:          true,
	}
	d.Normalize()
	d.TerritoryHash = d.ComputeHash()
	return d
}

func (s *ChainSuite) TestAppend_LinksEntries() {
	partnerID := domain.PartnerID(uuid.New())
	territory := s.newTerritory("SP")

	first, err := s.service.Append(s.ctx, partnerID, territory, auditchain.ReasonCreation)
	s.Require().NoError(err)
	s.Nil(first.PreviousSnapshotID)
	s.Nil(first.PreviousSnapshotHash)
	s.Equal(int64(1), first.Seq)
	s.True(first.ChainValidated)

	second, err := s.service.Append(s.ctx, partnerID, territory, auditchain.ReasonSale)
	s.Require().NoError(err)
	s.Require().NotNil(second.PreviousSnapshotID)
	s.Equal(first.ID, *second.PreviousSnapshotID)
	s.Require().NotNil(second.PreviousSnapshotHash)
	s.Equal(first.SnapshotHash, *second.PreviousSnapshotHash)
	s.Equal(int64(2), second.Seq)
	s.True(second.ChainValidated)
}

func (s *ChainSuite) TestAppend_RejectsInvalidReason() {
	_, err := s.service.Append(s.ctx, domain.PartnerID(uuid.New()), s.newTerritory("SP"), auditchain.Reason("bogus"))
	s.Error(err)
}

func (s *ChainSuite) TestVerifyChain_CleanChain() {
	partnerID := domain.PartnerID(uuid.New())
	territory := s.newTerritory("SP")

	for _, reason := range []auditchain.Reason{
		auditchain.ReasonCreation, auditchain.ReasonSale, auditchain.ReasonSale,
		auditchain.ReasonAudit, auditchain.ReasonDispute,
	} {
		_, err := s.service.Append(s.ctx, partnerID, territory, reason)
		s.Require().NoError(err)
	}

	report, err := s.service.VerifyChain(s.ctx, partnerID)
	s.Require().NoError(err)
	s.True(report.Valid)
	s.Equal(5, report.TotalChecked)
	s.Empty(report.BrokenLinks)
}

func (s *ChainSuite) TestVerifyChain_DetectsTamperingWithCascade() {
	partnerID := domain.PartnerID(uuid.New())
	territory := s.newTerritory("SP")

	for i := 0; i < 3; i++ {
		_, err := s.service.Append(s.ctx, partnerID, territory, auditchain.ReasonSale)
		s.Require().NoError(err)
	}

	// Mutate the middle entry's content without updating its hash.
	forged, err := auditchain.EncodeState(s.newTerritory("SP", "RJ"))
	s.Require().NoError(err)
	s.store.Tamper(partnerID, 1, forged)

	report, err := s.service.VerifyChain(s.ctx, partnerID)
	s.Require().NoError(err)
	s.False(report.Valid)
	s.Equal(3, report.TotalChecked)
	s.Require().Len(report.BrokenLinks, 2)

	// The tampered entry itself.
	s.Equal(1, report.BrokenLinks[0].Index)
	s.Equal(auditchain.BreakContent, report.BrokenLinks[0].Kind)
	// And the cascade to its successor's link check.
	s.Equal(2, report.BrokenLinks[1].Index)
	s.Equal(auditchain.BreakLink, report.BrokenLinks[1].Kind)
}

func (s *ChainSuite) TestVerifyChain_TamperedTailHasNoCascade() {
	partnerID := domain.PartnerID(uuid.New())
	territory := s.newTerritory("SP")

	for i := 0; i < 2; i++ {
		_, err := s.service.Append(s.ctx, partnerID, territory, auditchain.ReasonSale)
		s.Require().NoError(err)
	}

	forged, err := auditchain.EncodeState(s.newTerritory("MG"))
	s.Require().NoError(err)
	s.store.Tamper(partnerID, 1, forged)

	report, err := s.service.VerifyChain(s.ctx, partnerID)
	s.Require().NoError(err)
	s.Require().Len(report.BrokenLinks, 1)
	s.Equal(auditchain.BreakContent, report.BrokenLinks[0].Kind)
}

func (s *ChainSuite) TestVerifyChain_EmptyChainIsValid() {
	report, err := s.service.VerifyChain(s.ctx, domain.PartnerID(uuid.New()))
	s.Require().NoError(err)
	s.True(report.Valid)
	s.Equal(0, report.TotalChecked)
}

func (s *ChainSuite) TestAppend_FlagsStaleHeadAtWriteTime() {
	partnerID := domain.PartnerID(uuid.New())
	territory := s.newTerritory("SP")

	_, err := s.service.Append(s.ctx, partnerID, territory, auditchain.ReasonCreation)
	s.Require().NoError(err)

	forged, err := auditchain.EncodeState(s.newTerritory("RJ"))
	s.Require().NoError(err)
	s.store.Tamper(partnerID, 0, forged)

	// The next append revalidates the head and records the mismatch.
	entry, err := s.service.Append(s.ctx, partnerID, territory, auditchain.ReasonSale)
	s.Require().NoError(err)
	s.False(entry.ChainValidated)
}

func (s *ChainSuite) TestAppend_ConcurrentSamePartnerNeverForks() {
	partnerID := domain.PartnerID(uuid.New())
	territory := s.newTerritory("SP")

	const appends = 20
	var wg sync.WaitGroup
	for i := 0; i < appends; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Append(s.ctx, partnerID, territory, auditchain.ReasonSale)
			s.NoError(err)
		}()
	}
	wg.Wait()

	report, err := s.service.VerifyChain(s.ctx, partnerID)
	s.Require().NoError(err)
	s.True(report.Valid, "concurrent appends must form one linear chain")
	s.Equal(appends, report.TotalChecked)
}
