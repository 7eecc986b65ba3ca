package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"demarc/internal/auditchain"
	fraudmodels "demarc/internal/fraud/models"
	"demarc/internal/ledger"
	linkmetrics "demarc/internal/link/metrics"
	"demarc/internal/link/models"
	partnermodels "demarc/internal/partner/models"
	"demarc/internal/split"
	"demarc/internal/territory/locate"
	territorymodels "demarc/internal/territory/models"
	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
	"demarc/pkg/platform/sentinel"
	"demarc/pkg/platform/tx"
	"demarc/pkg/requestcontext"
)

// LinkStore persists regional links.
type LinkStore interface {
	Create(ctx context.Context, l *models.RegionalLink) error
	FindByID(ctx context.Context, id domain.LinkID) (*models.RegionalLink, error)
	Execute(ctx context.Context, id domain.LinkID, validate func(*models.RegionalLink) error, mutate func(*models.RegionalLink)) (*models.RegionalLink, error)
	ListByPartnerInPeriod(ctx context.Context, partnerID domain.PartnerID, from, to time.Time) ([]*models.RegionalLink, error)
	CountActiveByPartner(ctx context.Context, partnerID domain.PartnerID) (int, error)
}

// PartnerDirectory reads partners and applies counter updates under the
// partner row lock.
type PartnerDirectory interface {
	GetPartner(ctx context.Context, id domain.PartnerID) (*partnermodels.PartnerAccount, error)
	RecordSale(ctx context.Context, id domain.PartnerID, fee decimal.Decimal) (*partnermodels.PartnerAccount, error)
	RecordRevenue(ctx context.Context, id domain.PartnerID, amount decimal.Decimal) (*partnermodels.PartnerAccount, error)
}

// TerritoryReader resolves the partner's territory for validation and
// snapshotting.
type TerritoryReader interface {
	FindByID(ctx context.Context, id domain.TerritoryID) (*territorymodels.TerritoryDefinition, error)
}

// AuditAppender records a sale snapshot in the partner's chain.
type AuditAppender interface {
	Append(ctx context.Context, partnerID domain.PartnerID, territory *territorymodels.TerritoryDefinition, reason auditchain.Reason) (*auditchain.Snapshot, error)
}

// FraudRecorder reports violations detected during link operations.
type FraudRecorder interface {
	Record(ctx context.Context, partnerID domain.PartnerID, fraudType fraudmodels.Type, severity fraudmodels.Severity, evidence map[string]any) (*fraudmodels.FraudEvent, bool, error)
}

// Service is the regional link manager.
type Service struct {
	links       LinkStore
	partners    PartnerDirectory
	territories TerritoryReader
	audit       AuditAppender
	fraud       FraudRecorder
	ledger      ledger.Poster
	tx          tx.Runner
	logger      *slog.Logger
	metrics     *linkmetrics.Metrics
	tracer      trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *linkmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func NewService(links LinkStore, partners PartnerDirectory, territories TerritoryReader, audit AuditAppender, fraud FraudRecorder, poster ledger.Poster, opts ...Option) *Service {
	s := &Service{
		links:       links,
		partners:    partners,
		territories: territories,
		audit:       audit,
		fraud:       fraud,
		ledger:      poster,
		tx:          tx.NewInMemoryRunner(),
		logger:      slog.Default(),
		tracer:      otel.Tracer("demarc/link"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLinkRequest carries one sale or placement from the billing
// collaborator.
type CreateLinkRequest struct {
	PartnerID      domain.PartnerID `json:"partner_id"`
	PlacedEntityID domain.EntityID  `json:"placed_entity_id"`
	Location       locate.Location  `json:"location"`
	Fee            decimal.Decimal  `json:"fee"`
}

// CreateLink validates a sale against the partner's territory and, when
// authorized, persists an immutable hash-stamped link, bumps the partner's
// counters, appends a sale snapshot and posts the fee split to the ledger.
//
// Location violations do not create a link; they create a fraud event
// whose severity depends on the violation type. An explicitly excluded
// location (unauthorized-sale) scores high, an uncovered one
// (territory-overreach) scores medium.
func (s *Service) CreateLink(ctx context.Context, req CreateLinkRequest) (*models.RegionalLink, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "link.create")
	defer span.End()

	if req.PartnerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "partner id is required")
	}
	if req.PlacedEntityID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "placed entity id is required")
	}
	if req.Fee.IsNegative() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "fee cannot be negative")
	}

	partner, err := s.partners.GetPartner(ctx, req.PartnerID)
	if err != nil {
		return nil, err
	}
	if !partner.IsActive() {
		s.countRejected("partner_inactive")
		return nil, dErrors.Newf(dErrors.CodeConflict, "partner is %s, links require an active partner", partner.Status)
	}

	// Self-link prevention, independent of and in addition to the split
	// calculator's self-dealing short-circuit.
	if partner.IsSelfEntity(req.PlacedEntityID) {
		s.countRejected("self_link")
		s.recordViolation(ctx, partner.ID, fraudmodels.TypeSelfSplitAttempt, fraudmodels.SeverityHigh, map[string]any{
			"placed_entity_id": string(req.PlacedEntityID),
		})
		return nil, dErrors.New(dErrors.CodeConflict, "placed entity is the partner's own operating entity")
	}

	territory, err := s.territories.FindByID(ctx, partner.TerritoryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "partner territory not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load partner territory")
	}

	result := locate.Validate(territory, req.Location)
	span.SetAttributes(attribute.Bool("link.authorized", result.Authorized))
	if !result.Authorized {
		return nil, s.rejectViolation(ctx, partner.ID, result)
	}

	snapshot, err := auditchain.EncodeState(territory)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to snapshot territory")
	}
	now := requestcontext.Now(ctx)
	l := &models.RegionalLink{
		ID:                domain.LinkID(uuid.New()),
		PartnerID:         partner.ID,
		PlacedEntityID:    req.PlacedEntityID,
		Location:          req.Location.Normalize(),
		TerritoryID:       territory.ID,
		TerritorySnapshot: snapshot,
		SnapshotHash:      auditchain.HashState(snapshot),
		FeesEarned:        req.Fee,
		RoyaltiesEarned:   decimal.Zero,
		Status:            models.StatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	feeSplit := split.Calculate(partner, req.Fee, req.PlacedEntityID, split.KindFee)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.links.Create(txCtx, l); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create link")
		}
		if _, err := s.partners.RecordSale(txCtx, partner.ID, req.Fee); err != nil {
			return err
		}
		if _, err := s.audit.Append(txCtx, partner.ID, territory, auditchain.ReasonSale); err != nil {
			return err
		}
		return s.postToLedger(txCtx, l, split.KindFee, feeSplit)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "regional link created",
		slog.String("link_id", l.ID.String()),
		slog.String("partner_id", partner.ID.String()),
		slog.String("matched_layer", string(result.MatchedLayer)),
		slog.String("fee", req.Fee.String()))
	if s.metrics != nil {
		s.metrics.LinksCreated.Inc()
		s.metrics.ObserveCreate(start)
	}
	return l, nil
}

// rejectViolation records the fraud event for a failed location check and
// builds the typed rejection naming the violated layer and value.
func (s *Service) rejectViolation(ctx context.Context, partnerID domain.PartnerID, result locate.Result) error {
	v := result.Violation

	fraudType := fraudmodels.TypeTerritoryOverreach
	severity := fraudmodels.SeverityMedium
	if v.Type == locate.ViolationUnauthorizedSale {
		fraudType = fraudmodels.TypeUnauthorizedSale
		severity = fraudmodels.SeverityHigh
	}
	s.countRejected(string(v.Type))
	s.recordViolation(ctx, partnerID, fraudType, severity, map[string]any{
		"layer": string(v.Layer),
		"value": v.Value,
	})
	if v.Layer == "" {
		return dErrors.Newf(dErrors.CodeConflict, "%s: location %q is outside the partner's territory", v.Type, v.Value)
	}
	return dErrors.Newf(dErrors.CodeConflict, "%s: %s %q violates the partner's territory", v.Type, v.Layer, v.Value)
}

// AddRoyalty posts a royalty amount against an existing link. The split
// runs first; a self-dealing result records a self-split-attempt fraud
// event and rejects the posting.
func (s *Service) AddRoyalty(ctx context.Context, linkID domain.LinkID, amount decimal.Decimal, counterparty domain.EntityID) (*models.RegionalLink, error) {
	if linkID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "link id is required")
	}
	if amount.IsNegative() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "royalty amount cannot be negative")
	}
	if counterparty.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "counterparty entity id is required")
	}

	l, err := s.links.FindByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "link not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load link")
	}

	partner, err := s.partners.GetPartner(ctx, l.PartnerID)
	if err != nil {
		return nil, err
	}

	royaltySplit := split.Calculate(partner, amount, counterparty, split.KindRoyalty)
	if royaltySplit.IsSelfSale {
		s.recordViolation(ctx, partner.ID, fraudmodels.TypeSelfSplitAttempt, fraudmodels.SeverityHigh, map[string]any{
			"link_id":      l.ID.String(),
			"counterparty": string(counterparty),
			"amount":       amount.String(),
		})
		return nil, dErrors.New(dErrors.CodeConflict, "royalty counterparty is the partner's own operating entity")
	}

	now := requestcontext.Now(ctx)
	var updated *models.RegionalLink
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		u, err := s.links.Execute(txCtx, linkID,
			func(l *models.RegionalLink) error {
				if !l.IsActive() {
					return dErrors.New(dErrors.CodeConflict, "link is not active")
				}
				return nil
			},
			func(l *models.RegionalLink) {
				l.RoyaltiesEarned = l.RoyaltiesEarned.Add(amount)
				l.UpdatedAt = now
			},
		)
		if err != nil {
			return err
		}
		if _, err := s.partners.RecordRevenue(txCtx, l.PartnerID, amount); err != nil {
			return err
		}
		if err := s.postToLedger(txCtx, u, split.KindRoyalty, royaltySplit); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RoyaltiesPosted.Inc()
	}
	return updated, nil
}

func (s *Service) GetLink(ctx context.Context, id domain.LinkID) (*models.RegionalLink, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "link id is required")
	}
	l, err := s.links.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "link not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load link")
	}
	return l, nil
}

func (s *Service) postToLedger(ctx context.Context, l *models.RegionalLink, kind split.Kind, result split.Result) error {
	entry := ledger.Entry{
		LinkID:         l.ID,
		PartnerID:      l.PartnerID,
		Kind:           string(kind),
		PartnerShare:   result.PartnerShare,
		PrincipalShare: result.PrincipalShare,
		IsSelfSale:     result.IsSelfSale,
		PostedAt:       requestcontext.Now(ctx),
	}
	if err := s.ledger.Post(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to post split to ledger")
	}
	return nil
}

// recordViolation reports to the fraud engine without failing the caller's
// rejection path: the rejection stands even if fraud recording fails.
func (s *Service) recordViolation(ctx context.Context, partnerID domain.PartnerID, fraudType fraudmodels.Type, severity fraudmodels.Severity, evidence map[string]any) {
	if s.fraud == nil {
		return
	}
	if _, _, err := s.fraud.Record(ctx, partnerID, fraudType, severity, evidence); err != nil {
		s.logger.ErrorContext(ctx, "failed to record fraud event",
			slog.String("partner_id", partnerID.String()),
			slog.String("type", string(fraudType)),
			slog.String("error", fmt.Sprintf("%v", err)))
	}
}

func (s *Service) countRejected(cause string) {
	if s.metrics != nil {
		s.metrics.LinksRejected.WithLabelValues(cause).Inc()
	}
}
