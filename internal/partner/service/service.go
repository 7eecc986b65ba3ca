package service

import (
	"context"
	"log/slog"

	"demarc/internal/auditchain"
	partnermetrics "demarc/internal/partner/metrics"
	"demarc/internal/partner/models"
	"demarc/internal/platform/locker"
	territorymodels "demarc/internal/territory/models"
	"demarc/pkg/domain"
	"demarc/pkg/platform/tx"
)

// PartnerStore persists partner accounts. Execute must hold a per-partner
// exclusion scope (mutex or FOR UPDATE) across validate and mutate.
type PartnerStore interface {
	Create(ctx context.Context, p *models.PartnerAccount) error
	FindByID(ctx context.Context, id domain.PartnerID) (*models.PartnerAccount, error)
	Execute(ctx context.Context, id domain.PartnerID, validate func(*models.PartnerAccount) error, mutate func(*models.PartnerAccount)) (*models.PartnerAccount, error)
	CountActiveByTerritory(ctx context.Context, territoryID domain.TerritoryID) (int, error)
	ListByTerritory(ctx context.Context, territoryID domain.TerritoryID) ([]*models.PartnerAccount, error)
}

// TerritoryReader resolves the territory a partner binds to.
type TerritoryReader interface {
	FindByID(ctx context.Context, id domain.TerritoryID) (*territorymodels.TerritoryDefinition, error)
}

// AuditAppender records a territory-state snapshot in the partner's chain.
type AuditAppender interface {
	Append(ctx context.Context, partnerID domain.PartnerID, territory *territorymodels.TerritoryDefinition, reason auditchain.Reason) (*auditchain.Snapshot, error)
}

// Service orchestrates the partner account lifecycle.
type Service struct {
	partners    PartnerStore
	territories TerritoryReader
	audit       AuditAppender
	locks       locker.Locker
	tx          tx.Runner
	logger      *slog.Logger
	metrics     *partnermetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *partnermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func WithLocker(l locker.Locker) Option {
	return func(s *Service) { s.locks = l }
}

func New(partners PartnerStore, territories TerritoryReader, audit AuditAppender, opts ...Option) *Service {
	s := &Service{
		partners:    partners,
		territories: territories,
		audit:       audit,
		locks:       locker.NewInProcess(),
		tx:          tx.NewInMemoryRunner(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
