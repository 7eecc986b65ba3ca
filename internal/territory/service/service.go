package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"demarc/internal/auditchain"
	partnermodels "demarc/internal/partner/models"
	"demarc/internal/platform/locker"
	territorymetrics "demarc/internal/territory/metrics"
	"demarc/internal/territory/models"
	"demarc/internal/territory/overlap"
	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
	"demarc/pkg/platform/sentinel"
	"demarc/pkg/platform/tx"
	"demarc/pkg/requestcontext"
)

// TerritoryStore persists territory definitions. Execute must hold a row
// lock across validate and mutate; geography columns are never updated.
type TerritoryStore interface {
	Create(ctx context.Context, t *models.TerritoryDefinition) error
	FindByID(ctx context.Context, id domain.TerritoryID) (*models.TerritoryDefinition, error)
	FindActiveByHash(ctx context.Context, hash string) (*models.TerritoryDefinition, error)
	ListActiveByCountry(ctx context.Context, country string) ([]*models.TerritoryDefinition, error)
	Execute(ctx context.Context, id domain.TerritoryID, validate func(*models.TerritoryDefinition) error, mutate func(*models.TerritoryDefinition)) (*models.TerritoryDefinition, error)
}

// PartnerLister enumerates the partners bound to a territory so
// deactivation can snapshot each of their chains.
type PartnerLister interface {
	ListByTerritory(ctx context.Context, territoryID domain.TerritoryID) ([]*partnermodels.PartnerAccount, error)
}

// AuditAppender records a territory-state snapshot in a partner's chain.
type AuditAppender interface {
	Append(ctx context.Context, partnerID domain.PartnerID, territory *models.TerritoryDefinition, reason auditchain.Reason) (*auditchain.Snapshot, error)
}

// Service orchestrates territory creation and deactivation.
type Service struct {
	territories TerritoryStore
	partners    PartnerLister
	audit       AuditAppender
	locks       locker.Locker
	tx          tx.Runner
	logger      *slog.Logger
	metrics     *territorymetrics.Metrics
	tracer      trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *territorymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func WithLocker(l locker.Locker) Option {
	return func(s *Service) { s.locks = l }
}

func New(territories TerritoryStore, partners PartnerLister, audit AuditAppender, opts ...Option) *Service {
	s := &Service{
		territories: territories,
		partners:    partners,
		audit:       audit,
		locks:       locker.NewInProcess(),
		tx:          tx.NewInMemoryRunner(),
		logger:      slog.Default(),
		tracer:      otel.Tracer("demarc/territory"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTerritory validates the definition, sweeps every active territory
// in the same country for blocking overlaps and persists the result with
// its content fingerprint.
//
// The whole check-then-create sequence runs under a country-scoped advisory
// lock: without it, two concurrent creations could each pass the overlap
// check against a snapshot that does not yet contain the other.
func (s *Service) CreateTerritory(ctx context.Context, def *models.TerritoryDefinition) (*models.TerritoryDefinition, models.ValidationResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "territory.create")
	defer span.End()

	t := def.Clone()
	t.Normalize()

	result := t.Validate()
	if result.Blocked() {
		s.countBlocked("validation")
		return nil, result, dErrors.New(dErrors.CodeInvalidInput, "territory definition is invalid")
	}

	t.ID = domain.TerritoryID(uuid.New())
	t.Active = true
	t.TerritoryHash = t.ComputeHash()
	now := requestcontext.Now(ctx)
	t.CreatedAt = now
	t.UpdatedAt = now

	span.SetAttributes(
		attribute.String("territory.country", t.CountryCode),
		attribute.String("territory.exclusivity", string(t.ExclusivityType)),
	)

	unlock, err := s.locks.Acquire(ctx, "territory-create:"+t.CountryCode)
	if err != nil {
		return nil, result, dErrors.Wrap(err, dErrors.CodeConflict, "territory creation for country is busy, retry")
	}
	defer unlock()

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.rejectDuplicate(txCtx, t); err != nil {
			return err
		}
		if err := s.rejectBlockingOverlap(txCtx, t); err != nil {
			return err
		}
		if err := s.territories.Create(txCtx, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create territory")
		}
		return nil
	})
	if err != nil {
		return nil, result, err
	}

	s.logger.InfoContext(ctx, "territory created",
		slog.String("territory_id", t.ID.String()),
		slog.String("country", t.CountryCode),
		slog.String("hash", t.TerritoryHash))
	if s.metrics != nil {
		s.metrics.TerritoriesCreated.Inc()
		s.metrics.ObserveCreate(start)
	}
	return t, result, nil
}

func (s *Service) rejectDuplicate(ctx context.Context, t *models.TerritoryDefinition) error {
	existing, err := s.territories.FindActiveByHash(ctx, t.TerritoryHash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check territory fingerprint")
	}
	s.countBlocked("duplicate")
	return dErrors.Newf(dErrors.CodeConflict,
		"duplicate territory configuration: active territory %s has identical content", existing.ID)
}

func (s *Service) rejectBlockingOverlap(ctx context.Context, candidate *models.TerritoryDefinition) error {
	existing, err := s.territories.ListActiveByCountry(ctx, candidate.CountryCode)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list territories for overlap check")
	}

	for _, other := range existing {
		if s.metrics != nil {
			s.metrics.OverlapComparisons.Inc()
		}
		result, blocked := overlap.Blocks(other, candidate)
		if !blocked {
			continue
		}
		s.countBlocked("overlap")
		return dErrors.New(dErrors.CodeConflict, overlapReason(other, result))
	}
	return nil
}

// overlapReason names the blocking territory, the layer and the exact
// values that intersect so the rejection is self-explanatory.
func overlapReason(existing *models.TerritoryDefinition, result overlap.Result) string {
	msg := fmt.Sprintf("blocking overlap with territory %s (%s, degree %s)",
		existing.ID, existing.ExclusivityType, result.Degree)
	for _, layer := range result.Layers {
		msg += fmt.Sprintf("; %s: %v", layer.Layer, layer.Values)
	}
	return msg
}

func (s *Service) GetTerritory(ctx context.Context, id domain.TerritoryID) (*models.TerritoryDefinition, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "territory id is required")
	}
	t, err := s.territories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "territory not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load territory")
	}
	return t, nil
}

// DeactivateTerritory retires a territory. Geography corrections go through
// deactivate + recreate, never in-place edits. Every partner still bound to
// the territory gets a snapshot with reason modification so its chain
// records the state the territory retired with.
func (s *Service) DeactivateTerritory(ctx context.Context, id domain.TerritoryID) (*models.TerritoryDefinition, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "territory id is required")
	}

	now := requestcontext.Now(ctx)
	var territory *models.TerritoryDefinition
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.territories.Execute(txCtx, id,
			func(t *models.TerritoryDefinition) error {
				if !t.Active {
					return dErrors.New(dErrors.CodeConflict, "territory is already inactive")
				}
				return nil
			},
			func(t *models.TerritoryDefinition) {
				t.Active = false
				t.UpdatedAt = now
			},
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "territory not found")
			}
			return err
		}

		bound, err := s.partners.ListByTerritory(txCtx, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list territory partners")
		}
		for _, p := range bound {
			if _, err := s.audit.Append(txCtx, p.ID, t, auditchain.ReasonModification); err != nil {
				return err
			}
		}
		territory = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "territory deactivated", slog.String("territory_id", id.String()))
	return territory, nil
}

func (s *Service) countBlocked(cause string) {
	if s.metrics != nil {
		s.metrics.CreationsBlocked.WithLabelValues(cause).Inc()
	}
}
