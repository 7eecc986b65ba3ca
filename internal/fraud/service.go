package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"demarc/internal/alert"
	fraudmetrics "demarc/internal/fraud/metrics"
	"demarc/internal/fraud/models"
	partnermodels "demarc/internal/partner/models"
	"demarc/pkg/domain"
	dErrors "demarc/pkg/domain-errors"
	"demarc/pkg/platform/sentinel"
	"demarc/pkg/platform/tx"
	"demarc/pkg/requestcontext"
)

// Store persists fraud events.
type Store interface {
	Create(ctx context.Context, e *models.FraudEvent) error
	FindRecent(ctx context.Context, partnerID domain.PartnerID, fraudType models.Type, since time.Time) (*models.FraudEvent, error)
	ListByPartner(ctx context.Context, partnerID domain.PartnerID) ([]*models.FraudEvent, error)
}

// PartnerSuspender executes the automatic suspension response.
type PartnerSuspender interface {
	SuspendPartner(ctx context.Context, id domain.PartnerID, reason string, fraudTriggered bool) (*partnermodels.PartnerAccount, error)
}

// AlertEmitter queues an operator alert. Emission never blocks detection.
type AlertEmitter interface {
	Emit(ctx context.Context, a alert.Alert)
}

// Service is the rule-based fraud detection engine with automatic
// graduated response.
type Service struct {
	store    Store
	partners PartnerSuspender
	alerts   AlertEmitter
	window   Window
	tx       tx.Runner
	logger   *slog.Logger
	metrics  *fraudmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *fraudmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

// WithDedupeWindow installs a fast-path dedupe check (Redis in production).
// The store lookup remains authoritative either way.
func WithDedupeWindow(w Window) Option {
	return func(s *Service) { s.window = w }
}

func New(store Store, partners PartnerSuspender, alerts AlertEmitter, opts ...Option) *Service {
	s := &Service{
		store:    store,
		partners: partners,
		alerts:   alerts,
		tx:       tx.NewInMemoryRunner(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const dedupeWindow = models.DedupeWindowMinutes * time.Minute

// Record stores one detection and applies its automatic response.
//
// Dedupe runs first: a second detection of the same partner+type within
// five minutes returns the existing event, takes no new action and reports
// created=false.
func (s *Service) Record(ctx context.Context, partnerID domain.PartnerID, fraudType models.Type, severity models.Severity, evidence map[string]any) (*models.FraudEvent, bool, error) {
	if partnerID.IsNil() {
		return nil, false, dErrors.New(dErrors.CodeInvalidInput, "partner id is required")
	}
	if _, ok := models.ParseType(string(fraudType)); !ok {
		return nil, false, dErrors.Newf(dErrors.CodeInvalidInput, "unknown fraud type %q", fraudType)
	}
	if _, ok := models.ParseSeverity(string(severity)); !ok {
		return nil, false, dErrors.Newf(dErrors.CodeInvalidInput, "unknown fraud severity %q", severity)
	}

	now := requestcontext.Now(ctx)

	if s.window != nil {
		fresh, err := s.window.Reserve(ctx, partnerID, fraudType, dedupeWindow)
		if err != nil {
			// Degrade to the store lookup; noise suppression must never
			// block detection.
			s.logger.WarnContext(ctx, "dedupe window unavailable",
				slog.String("error", err.Error()))
		} else if !fresh {
			if existing, err := s.store.FindRecent(ctx, partnerID, fraudType, now.Add(-dedupeWindow)); err == nil {
				s.countDedupe()
				return existing, false, nil
			}
		}
	}

	if existing, err := s.store.FindRecent(ctx, partnerID, fraudType, now.Add(-dedupeWindow)); err == nil {
		s.countDedupe()
		return existing, false, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for recent fraud events")
	}

	payload, err := json.Marshal(evidence)
	if err != nil {
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode evidence")
	}

	action := models.ActionFor(fraudType, severity)
	event := &models.FraudEvent{
		ID:          domain.FraudEventID(uuid.New()),
		PartnerID:   partnerID,
		Type:        fraudType,
		Severity:    severity,
		Status:      models.StatusDetected,
		Evidence:    payload,
		ActionTaken: action,
		CreatedAt:   now,
	}
	if action == models.ActionEscalate {
		event.Status = models.StatusEscalated
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Create(txCtx, event); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record fraud event")
		}
		return s.applyAction(txCtx, event)
	})
	if err != nil {
		return nil, false, err
	}

	if priority, ok := models.AlertPriorityFor(severity); ok {
		s.alerts.Emit(ctx, alert.Alert{
			PartnerID: partnerID,
			Priority:  priority,
			Title:     fmt.Sprintf("%s fraud detected: %s", severity, fraudType),
			Body:      fmt.Sprintf("partner %s triggered a %s severity %s detection; automatic action: %s", partnerID, severity, fraudType, action),
		})
	}

	s.logger.InfoContext(ctx, "fraud event recorded",
		slog.String("event_id", event.ID.String()),
		slog.String("partner_id", partnerID.String()),
		slog.String("type", string(fraudType)),
		slog.String("severity", string(severity)),
		slog.String("action", string(action)))
	if s.metrics != nil {
		s.metrics.EventsDetected.WithLabelValues(string(fraudType), string(severity)).Inc()
		s.metrics.ActionsTaken.WithLabelValues(string(action)).Inc()
	}
	return event, true, nil
}

func (s *Service) applyAction(ctx context.Context, event *models.FraudEvent) error {
	switch event.ActionTaken {
	case models.ActionSuspend:
		reason := fmt.Sprintf("fraud: %s (%s severity)", event.Type, event.Severity)
		_, err := s.partners.SuspendPartner(ctx, event.PartnerID, reason, true)
		if err != nil {
			// An already-suspended partner stays suspended; the event still
			// stands as evidence.
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				s.logger.WarnContext(ctx, "automatic suspension skipped",
					slog.String("partner_id", event.PartnerID.String()),
					slog.String("error", err.Error()))
				return nil
			}
			return err
		}
	case models.ActionEscalate, models.ActionWarn, models.ActionNone:
		// Escalation and warning are carried by the event status and the
		// operator alert; nothing further to execute here.
	}
	return nil
}

// ReportAdminAction checks an attempted administrative action against the
// denylist and records a privilege-escalation event on a hit.
func (s *Service) ReportAdminAction(ctx context.Context, partnerID domain.PartnerID, attemptedAction string) (*models.FraudEvent, bool, error) {
	fraudType, severity, detected := models.ClassifyAdminAction(attemptedAction)
	if !detected {
		return nil, false, nil
	}
	return s.Record(ctx, partnerID, fraudType, severity, map[string]any{
		"attempted_action": attemptedAction,
	})
}

// ReportBulkOperation scores a batch against the bulk thresholds and
// records a data-manipulation event when one is crossed.
func (s *Service) ReportBulkOperation(ctx context.Context, partnerID domain.PartnerID, reads, writes, deletes int) (*models.FraudEvent, bool, error) {
	fraudType, severity, detected := models.ClassifyBulkOperation(reads, writes, deletes)
	if !detected {
		return nil, false, nil
	}
	return s.Record(ctx, partnerID, fraudType, severity, map[string]any{
		"reads":   reads,
		"writes":  writes,
		"deletes": deletes,
	})
}

// ListByPartner returns the partner's fraud history, newest first.
func (s *Service) ListByPartner(ctx context.Context, partnerID domain.PartnerID) ([]*models.FraudEvent, error) {
	if partnerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "partner id is required")
	}
	events, err := s.store.ListByPartner(ctx, partnerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list fraud events")
	}
	return events, nil
}

func (s *Service) countDedupe() {
	if s.metrics != nil {
		s.metrics.DedupeHits.Inc()
	}
}
