package fraud

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"demarc/internal/alert"
	"demarc/internal/auditchain"
	auditstore "demarc/internal/auditchain/store"
	"demarc/internal/fraud/models"
	fraudstore "demarc/internal/fraud/store"
	partnermodels "demarc/internal/partner/models"
	partnerservice "demarc/internal/partner/service"
	partnerstore "demarc/internal/partner/store/partner"
	territorymodels "demarc/internal/territory/models"
	territorystore "demarc/internal/territory/store/territory"
	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
	"demarc/pkg/platform/tx"
	"demarc/pkg/requestcontext"
)

type capturedAlerts struct {
	mu     sync.Mutex
	alerts []alert.Alert
}

func (c *capturedAlerts) Emit(_ context.Context, a alert.Alert) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, a)
}

func (c *capturedAlerts) all() []alert.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]alert.Alert(nil), c.alerts...)
}

type FraudServiceSuite struct {
	suite.Suite
	events      *fraudstore.InMemory
	partners    *partnerstore.InMemory
	territories *territorystore.InMemory
	partnerSvc  *partnerservice.Service
	alerts      *capturedAlerts
	service     *Service
	territoryID domain.TerritoryID
	ctx         context.Context
	now         time.Time
}

func (s *FraudServiceSuite) SetupTest() {
	s.events = fraudstore.NewInMemory()
	s.partners = partnerstore.NewInMemory()
	s.territories = territorystore.NewInMemory()
	territories := s.territories
	audits := auditstore.NewInMemory()
	s.partnerSvc = partnerservice.New(s.partners, territories, auditchain.NewService(audits))
	s.alerts = &capturedAlerts{}
	s.service = New(s.events, s.partnerSvc, s.alerts)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	territory := &territorymodels.TerritoryDefinition{
		ID:              domain.TerritoryID(uuid.New()),
		Name:            "Fraud Test Zone",
		CountryCode:     "BRA",
		States:          []string{"SP"},
		ExclusivityType: territorymodels.ExclusivityNonExclusive,
		Active:          true,
	}
	territory.Normalize()
	territory.TerritoryHash = territory.ComputeHash()
	s.Require().NoError(territories.Create(s.ctx, territory))
	s.territoryID = territory.ID
}

func TestFraudServiceSuite(t *testing.T) {
	suite.Run(t, new(FraudServiceSuite))
}

func (s *FraudServiceSuite) seedActivePartner() domain.PartnerID {
	return s.seedActivePartnerWith(s.partnerSvc)
}

func (s *FraudServiceSuite) seedActivePartnerWith(svc *partnerservice.Service) domain.PartnerID {
	partner, err := svc.CreatePartner(s.ctx, partnerservice.CreatePartnerRequest{
		LegalName:       "Partner",
		TaxID:           "tax-1",
		TaxIDType:       "cnpj",
		CountryCode:     "BRA",
		TerritoryID:     s.territoryID,
		FeeSplitPct:     decimal.NewFromInt(30),
		RoyaltySplitPct: decimal.NewFromInt(20),
		ContractStart:   s.now,
	})
	s.Require().NoError(err)
	_, err = svc.ApprovePartner(s.ctx, partner.ID, "admin")
	s.Require().NoError(err)
	return partner.ID
}

// Production wiring shares a single runner across every service, so the
// automatic suspension runs inside the fraud transaction and must join it
// rather than queue behind it.
func (s *FraudServiceSuite) TestRecord_SharedRunnerSuspendsWithoutBlocking() {
	runner := tx.NewInMemoryRunner()
	partnerSvc := partnerservice.New(s.partners, s.territories, auditchain.NewService(auditstore.NewInMemory()),
		partnerservice.WithTxRunner(runner))
	service := New(s.events, partnerSvc, s.alerts, WithTxRunner(runner))

	partnerID := s.seedActivePartnerWith(partnerSvc)

	var (
		event   *models.FraudEvent
		created bool
		err     error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		event, created, err = service.Record(s.ctx, partnerID, models.TypePrivilegeEscalation, models.SeverityCritical, nil)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		s.FailNow("fraud recording blocked on the shared transaction runner")
	}

	s.Require().NoError(err)
	s.True(created)
	s.Equal(models.ActionSuspend, event.ActionTaken)

	partner, err := partnerSvc.GetPartner(s.ctx, partnerID)
	s.Require().NoError(err)
	s.Equal(partnermodels.StatusSuspended, partner.Status)
}

func (s *FraudServiceSuite) TestRecord_CriticalSuspendsAndAlertsUrgent() {
	partnerID := s.seedActivePartner()

	event, created, err := s.service.Record(s.ctx, partnerID, models.TypePrivilegeEscalation, models.SeverityCritical, map[string]any{
		"attempted_action": "partner.approve",
	})
	s.Require().NoError(err)
	s.True(created)
	s.Equal(models.ActionSuspend, event.ActionTaken)
	s.Equal(models.StatusDetected, event.Status)

	partner, err := s.partnerSvc.GetPartner(s.ctx, partnerID)
	s.Require().NoError(err)
	s.Equal(partnermodels.StatusSuspended, partner.Status)
	s.Equal(1, partner.FraudFlagCount)

	alerts := s.alerts.all()
	s.Require().Len(alerts, 1)
	s.Equal(alert.PriorityUrgent, alerts[0].Priority)
}

func (s *FraudServiceSuite) TestRecord_HighOverreachEscalatesWithoutSuspension() {
	partnerID := s.seedActivePartner()

	event, created, err := s.service.Record(s.ctx, partnerID, models.TypeTerritoryOverreach, models.SeverityHigh, nil)
	s.Require().NoError(err)
	s.True(created)
	s.Equal(models.ActionEscalate, event.ActionTaken)
	s.Equal(models.StatusEscalated, event.Status)

	partner, err := s.partnerSvc.GetPartner(s.ctx, partnerID)
	s.Require().NoError(err)
	s.Equal(partnermodels.StatusActive, partner.Status)

	alerts := s.alerts.all()
	s.Require().Len(alerts, 1)
	s.Equal(alert.PriorityHigh, alerts[0].Priority)
}

func (s *FraudServiceSuite) TestRecord_MediumWarnsWithoutAlert() {
	partnerID := s.seedActivePartner()

	event, created, err := s.service.Record(s.ctx, partnerID, models.TypeUnauthorizedSale, models.SeverityMedium, nil)
	s.Require().NoError(err)
	s.True(created)
	s.Equal(models.ActionWarn, event.ActionTaken)
	s.Empty(s.alerts.all())
}

func (s *FraudServiceSuite) TestRecord_DedupesWithinWindow() {
	partnerID := s.seedActivePartner()

	first, created, err := s.service.Record(s.ctx, partnerID, models.TypeTerritoryOverreach, models.SeverityMedium, nil)
	s.Require().NoError(err)
	s.True(created)

	// Same partner+type three minutes later: suppressed.
	later := requestcontext.WithTime(context.Background(), s.now.Add(3*time.Minute))
	second, created, err := s.service.Record(later, partnerID, models.TypeTerritoryOverreach, models.SeverityMedium, nil)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, second.ID)

	events, err := s.service.ListByPartner(s.ctx, partnerID)
	s.Require().NoError(err)
	s.Len(events, 1)

	// A different type is not suppressed.
	_, created, err = s.service.Record(later, partnerID, models.TypeUnauthorizedSale, models.SeverityMedium, nil)
	s.Require().NoError(err)
	s.True(created)
}

func (s *FraudServiceSuite) TestRecord_WindowExpiryAllowsNewEvent() {
	partnerID := s.seedActivePartner()

	_, created, err := s.service.Record(s.ctx, partnerID, models.TypeTerritoryOverreach, models.SeverityMedium, nil)
	s.Require().NoError(err)
	s.True(created)

	later := requestcontext.WithTime(context.Background(), s.now.Add(6*time.Minute))
	_, created, err = s.service.Record(later, partnerID, models.TypeTerritoryOverreach, models.SeverityMedium, nil)
	s.Require().NoError(err)
	s.True(created)
}

func (s *FraudServiceSuite) TestRecord_SuspendingAlreadySuspendedPartnerStillRecords() {
	partnerID := s.seedActivePartner()
	_, err := s.partnerSvc.SuspendPartner(s.ctx, partnerID, "manual review", false)
	s.Require().NoError(err)

	event, created, err := s.service.Record(s.ctx, partnerID, models.TypeSelfSplitAttempt, models.SeverityHigh, nil)
	s.Require().NoError(err)
	s.True(created)
	s.Equal(models.ActionSuspend, event.ActionTaken)
}

func (s *FraudServiceSuite) TestRecord_RejectsUnknownTypeAndSeverity() {
	partnerID := s.seedActivePartner()

	_, _, err := s.service.Record(s.ctx, partnerID, models.Type("bogus"), models.SeverityLow, nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, _, err = s.service.Record(s.ctx, partnerID, models.TypeOverlapBreach, models.Severity("extreme"), nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *FraudServiceSuite) TestReportAdminAction() {
	partnerID := s.seedActivePartner()

	event, created, err := s.service.ReportAdminAction(s.ctx, partnerID, "territory.deactivate")
	s.Require().NoError(err)
	s.True(created)
	s.Equal(models.TypePrivilegeEscalation, event.Type)
	s.Equal(models.SeverityCritical, event.Severity)
	s.Equal(models.ActionSuspend, event.ActionTaken)

	// Non-denylisted actions never record.
	none, created, err := s.service.ReportAdminAction(s.ctx, partnerID, "link.create")
	s.Require().NoError(err)
	s.False(created)
	s.Nil(none)
}

func (s *FraudServiceSuite) TestReportBulkOperation() {
	partnerID := s.seedActivePartner()

	event, created, err := s.service.ReportBulkOperation(s.ctx, partnerID, 0, 0, 11)
	s.Require().NoError(err)
	s.True(created)
	s.Equal(models.SeverityCritical, event.Severity)
	s.Equal(models.ActionSuspend, event.ActionTaken)

	none, created, err := s.service.ReportBulkOperation(s.ctx, partnerID, 50, 25, 5)
	s.Require().NoError(err)
	s.False(created)
	s.Nil(none)
}
