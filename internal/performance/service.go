// Package performance scores partner target periods against metrics
// aggregated from regional links and applies the configured exclusivity
// impact when a period fails.
package performance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	linkmodels "demarc/internal/link/models"
	perfmetrics "demarc/internal/performance/metrics"
	"demarc/internal/performance/models"
	partnermodels "demarc/internal/partner/models"
	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
	"demarc/pkg/platform/sentinel"
	"demarc/pkg/platform/tx"
	"demarc/pkg/requestcontext"
)

// TargetStore persists performance targets.
type TargetStore interface {
	Create(ctx context.Context, t *models.PerformanceTarget) error
	FindByID(ctx context.Context, id domain.TargetID) (*models.PerformanceTarget, error)
	Execute(ctx context.Context, id domain.TargetID, validate func(*models.PerformanceTarget) error, mutate func(*models.PerformanceTarget)) (*models.PerformanceTarget, error)
	ListByPartner(ctx context.Context, partnerID domain.PartnerID) ([]*models.PerformanceTarget, error)
}

// LinkAggregator reads the regional links that feed the actual metrics.
type LinkAggregator interface {
	ListByPartnerInPeriod(ctx context.Context, partnerID domain.PartnerID, from, to time.Time) ([]*linkmodels.RegionalLink, error)
	CountActiveByPartner(ctx context.Context, partnerID domain.PartnerID) (int, error)
}

// PartnerSanctioner reads partners and applies exclusivity impacts.
type PartnerSanctioner interface {
	GetPartner(ctx context.Context, id domain.PartnerID) (*partnermodels.PartnerAccount, error)
	ApplyExclusivityImpact(ctx context.Context, id domain.PartnerID, impact partnermodels.ExclusivityImpact, reason string) (*partnermodels.PartnerAccount, error)
}

// Service evaluates performance target periods.
type Service struct {
	targets  TargetStore
	links    LinkAggregator
	partners PartnerSanctioner
	tx       tx.Runner
	logger   *slog.Logger
	metrics  *perfmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *perfmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func New(targets TargetStore, links LinkAggregator, partners PartnerSanctioner, opts ...Option) *Service {
	s := &Service{
		targets:  targets,
		links:    links,
		partners: partners,
		tx:       tx.NewInMemoryRunner(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTargetRequest configures one scoring period. Nil target values leave
// the metric unset, which evaluates as vacuously met.
type CreateTargetRequest struct {
	PartnerID         domain.PartnerID                `json:"partner_id"`
	Period            models.Period                   `json:"period"`
	PeriodStart       time.Time                       `json:"period_start"`
	PeriodEnd         time.Time                       `json:"period_end"`
	SoldTarget        *decimal.Decimal                `json:"sold_target,omitempty"`
	VolumeTarget      *decimal.Decimal                `json:"volume_target,omitempty"`
	RetentionTarget   *decimal.Decimal                `json:"retention_target,omitempty"`
	ActiveTarget      *decimal.Decimal                `json:"active_target,omitempty"`
	ExclusivityImpact partnermodels.ExclusivityImpact `json:"exclusivity_impact"`
}

// CreateTarget opens a pending scoring period for a partner.
func (s *Service) CreateTarget(ctx context.Context, req CreateTargetRequest) (*models.PerformanceTarget, error) {
	if _, err := s.partners.GetPartner(ctx, req.PartnerID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	t, err := models.NewPerformanceTarget(req.PartnerID, req.Period, req.PeriodStart, req.PeriodEnd, req.ExclusivityImpact, now)
	if err != nil {
		return nil, err
	}
	t.ID = domain.TargetID(uuid.New())
	t.Sold.Target = req.SoldTarget
	t.Volume.Target = req.VolumeTarget
	t.Retention.Target = req.RetentionTarget
	t.ActiveCount.Target = req.ActiveTarget

	if err := s.targets.Create(ctx, t); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create performance target")
	}
	s.logger.InfoContext(ctx, "performance target created",
		slog.String("target_id", t.ID.String()),
		slog.String("partner_id", t.PartnerID.String()),
		slog.String("period", string(t.Period)))
	if s.metrics != nil {
		s.metrics.TargetsCreated.Inc()
	}
	return t, nil
}

func (s *Service) GetTarget(ctx context.Context, id domain.TargetID) (*models.PerformanceTarget, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "target id is required")
	}
	t, err := s.targets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "performance target not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load performance target")
	}
	return t, nil
}

func (s *Service) ListTargets(ctx context.Context, partnerID domain.PartnerID) ([]*models.PerformanceTarget, error) {
	if partnerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "partner id is required")
	}
	targets, err := s.targets.ListByPartner(ctx, partnerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list performance targets")
	}
	return targets, nil
}

// RecordRetention stores the externally measured retention actual for a
// pending period. Retention cannot be derived from regional links, so the
// reporting collaborator pushes it before evaluation.
func (s *Service) RecordRetention(ctx context.Context, id domain.TargetID, actual decimal.Decimal) (*models.PerformanceTarget, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "target id is required")
	}
	if actual.IsNegative() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "retention actual cannot be negative")
	}
	now := requestcontext.Now(ctx)
	t, err := s.targets.Execute(ctx, id,
		func(t *models.PerformanceTarget) error {
			if t.Status != models.StatusPending {
				return dErrors.Newf(dErrors.CodeConflict, "target is already %s", t.Status)
			}
			return nil
		},
		func(t *models.PerformanceTarget) {
			t.Retention.Actual = actual
			t.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapTargetErr(err)
	}
	return t, nil
}

// Evaluate aggregates the partner's regional links inside the period,
// scores the four metrics and, when the period fails, applies the target's
// configured exclusivity impact to the partner. A period evaluates exactly
// once.
func (s *Service) Evaluate(ctx context.Context, id domain.TargetID) (*models.PerformanceTarget, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "target id is required")
	}

	current, err := s.GetTarget(ctx, id)
	if err != nil {
		return nil, err
	}

	links, err := s.links.ListByPartnerInPeriod(ctx, current.PartnerID, current.PeriodStart, current.PeriodEnd)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to aggregate regional links")
	}
	active, err := s.links.CountActiveByPartner(ctx, current.PartnerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count active links")
	}

	sold := decimal.NewFromInt(int64(len(links)))
	volume := decimal.Zero
	for _, l := range links {
		volume = volume.Add(l.TotalEarned())
	}

	now := requestcontext.Now(ctx)
	var evaluated *models.PerformanceTarget
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		t, err := s.targets.Execute(txCtx, id,
			func(t *models.PerformanceTarget) error {
				if t.Status != models.StatusPending {
					return dErrors.Newf(dErrors.CodeConflict, "target already evaluated as %s", t.Status)
				}
				return nil
			},
			func(t *models.PerformanceTarget) {
				t.Sold.Actual = sold
				t.Volume.Actual = volume
				t.ActiveCount.Actual = decimal.NewFromInt(int64(active))
				t.Evaluate(now)
			},
		)
		if err != nil {
			return wrapTargetErr(err)
		}
		if t.Status == models.StatusFailed && t.ExclusivityImpact != partnermodels.ImpactNone {
			reason := "performance target failed for " + string(t.Period) + " period"
			if _, err := s.partners.ApplyExclusivityImpact(txCtx, t.PartnerID, t.ExclusivityImpact, reason); err != nil {
				return err
			}
			if s.metrics != nil {
				s.metrics.ImpactsApplied.Inc()
			}
		}
		evaluated = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "performance target evaluated",
		slog.String("target_id", evaluated.ID.String()),
		slog.String("partner_id", evaluated.PartnerID.String()),
		slog.String("status", string(evaluated.Status)),
		slog.String("sold", evaluated.Sold.Actual.String()),
		slog.String("volume", evaluated.Volume.Actual.String()))
	if s.metrics != nil {
		s.metrics.Evaluations.WithLabelValues(string(evaluated.Status)).Inc()
	}
	return evaluated, nil
}

func wrapTargetErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "performance target not found")
	case dErrors.HasCode(err, dErrors.CodeConflict),
		dErrors.HasCode(err, dErrors.CodeInvalidInput),
		dErrors.HasCode(err, dErrors.CodeNotFound):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "performance target store failure")
	}
}
