package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"demarc/internal/performance/models"
	partnermodels "demarc/internal/partner/models"
	"demarc/pkg/domain"
	"demarc/pkg/platform/sentinel"
	"demarc/pkg/platform/tx"
)

// Postgres persists performance targets in the performance_targets table.
// Decimal metrics are stored as text to keep exact precision.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const targetColumns = `
  id, partner_id, period, period_start, period_end,
  sold_target, sold_actual, volume_target, volume_actual,
  retention_target, retention_actual, active_target, active_actual,
  status, exclusivity_impact, evaluated_at, created_at, updated_at`

func targetArgs(t *models.PerformanceTarget) []any {
	return []any{
		uuid.UUID(t.ID), uuid.UUID(t.PartnerID), string(t.Period), t.PeriodStart, t.PeriodEnd,
		decimalPtr(t.Sold.Target), t.Sold.Actual.String(),
		decimalPtr(t.Volume.Target), t.Volume.Actual.String(),
		decimalPtr(t.Retention.Target), t.Retention.Actual.String(),
		decimalPtr(t.ActiveCount.Target), t.ActiveCount.Actual.String(),
		string(t.Status), string(t.ExclusivityImpact), t.EvaluatedAt, t.CreatedAt, t.UpdatedAt,
	}
}

func (s *Postgres) Create(ctx context.Context, t *models.PerformanceTarget) error {
	q := tx.Executor(ctx, s.db)
	_, err := q.ExecContext(ctx,
		`INSERT INTO performance_targets (`+targetColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		targetArgs(t)...)
	if err != nil {
		return fmt.Errorf("insert performance target: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.TargetID) (*models.PerformanceTarget, error) {
	q := tx.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM performance_targets WHERE id = $1`, uuid.UUID(id))
	t, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find performance target: %w", err)
	}
	return t, nil
}

const updateTarget = `
UPDATE performance_targets
SET sold_target = $2, sold_actual = $3, volume_target = $4, volume_actual = $5,
    retention_target = $6, retention_actual = $7, active_target = $8, active_actual = $9,
    status = $10, evaluated_at = $11, updated_at = $12
WHERE id = $1`

// Execute locks the target row, runs validate, applies mutate and writes
// back the mutable columns.
func (s *Postgres) Execute(ctx context.Context, id domain.TargetID, validate func(*models.PerformanceTarget) error, mutate func(*models.PerformanceTarget)) (*models.PerformanceTarget, error) {
	q := tx.Executor(ctx, s.db)

	row := q.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM performance_targets WHERE id = $1 FOR UPDATE`, uuid.UUID(id))
	t, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock performance target: %w", err)
	}

	if err := validate(t); err != nil {
		return nil, err
	}
	mutate(t)

	_, err = q.ExecContext(ctx, updateTarget,
		uuid.UUID(t.ID),
		decimalPtr(t.Sold.Target), t.Sold.Actual.String(),
		decimalPtr(t.Volume.Target), t.Volume.Actual.String(),
		decimalPtr(t.Retention.Target), t.Retention.Actual.String(),
		decimalPtr(t.ActiveCount.Target), t.ActiveCount.Actual.String(),
		string(t.Status), t.EvaluatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update performance target: %w", err)
	}
	return t, nil
}

func (s *Postgres) ListByPartner(ctx context.Context, partnerID domain.PartnerID) ([]*models.PerformanceTarget, error) {
	q := tx.Executor(ctx, s.db)
	rows, err := q.QueryContext(ctx,
		`SELECT `+targetColumns+` FROM performance_targets
		 WHERE partner_id = $1 ORDER BY period_start DESC`,
		uuid.UUID(partnerID))
	if err != nil {
		return nil, fmt.Errorf("list performance targets: %w", err)
	}
	defer rows.Close()

	var out []*models.PerformanceTarget
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan performance target: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func decimalPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTarget(row rowScanner) (*models.PerformanceTarget, error) {
	var (
		t      models.PerformanceTarget
		id     uuid.UUID
		pid    uuid.UUID
		period string
		status string
		impact string

		soldT, volumeT, retentionT, activeT sql.NullString
		soldA, volumeA, retentionA, activeA string
		evaluatedAt                         sql.NullTime
	)
	err := row.Scan(&id, &pid, &period, &t.PeriodStart, &t.PeriodEnd,
		&soldT, &soldA, &volumeT, &volumeA,
		&retentionT, &retentionA, &activeT, &activeA,
		&status, &impact, &evaluatedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if evaluatedAt.Valid {
		t.EvaluatedAt = &evaluatedAt.Time
	}
	t.ID = domain.TargetID(id)
	t.PartnerID = domain.PartnerID(pid)
	t.Period = models.Period(period)
	t.Status = models.Status(status)
	t.ExclusivityImpact = partnermodels.ExclusivityImpact(impact)

	if t.Sold, err = scanMetric(soldT, soldA); err != nil {
		return nil, fmt.Errorf("parse sold metric: %w", err)
	}
	if t.Volume, err = scanMetric(volumeT, volumeA); err != nil {
		return nil, fmt.Errorf("parse volume metric: %w", err)
	}
	if t.Retention, err = scanMetric(retentionT, retentionA); err != nil {
		return nil, fmt.Errorf("parse retention metric: %w", err)
	}
	if t.ActiveCount, err = scanMetric(activeT, activeA); err != nil {
		return nil, fmt.Errorf("parse active metric: %w", err)
	}
	return &t, nil
}

func scanMetric(target sql.NullString, actual string) (models.Metric, error) {
	var m models.Metric
	var err error
	if target.Valid {
		d, err := decimal.NewFromString(target.String)
		if err != nil {
			return m, err
		}
		m.Target = &d
	}
	if m.Actual, err = decimal.NewFromString(actual); err != nil {
		return m, err
	}
	return m, nil
}
