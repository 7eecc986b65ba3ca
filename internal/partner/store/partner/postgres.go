package partner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"demarc/internal/partner/models"
	"demarc/pkg/domain"
	"demarc/pkg/platform/sentinel"
	"demarc/pkg/platform/tx"
)

// Postgres persists partner accounts in the partners table. Execute takes a
// SELECT ... FOR UPDATE row lock inside the ambient transaction so validate
// and mutate run against a stable row.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const partnerColumns = `
  id, legal_name, tax_id, tax_id_type, country_code, address,
  territory_id, self_operated_entity_id,
  fee_split_pct, royalty_split_pct, contract_start, contract_end,
  status, exclusivity_status,
  approved_by, approved_at, suspension_reason, suspended_at, terminated_at,
  exclusivity_reason, exclusivity_lost_at,
  total_sold, total_active, total_revenue,
  fraud_flag_count, last_fraud_flag_at,
  created_at, updated_at`

const insertPartner = `
INSERT INTO partners (` + partnerColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)`

func (s *Postgres) Create(ctx context.Context, p *models.PartnerAccount) error {
	q := tx.Executor(ctx, s.db)
	_, err := q.ExecContext(ctx, insertPartner, insertArgs(p)...)
	if err != nil {
		return fmt.Errorf("insert partner: %w", err)
	}
	return nil
}

func insertArgs(p *models.PartnerAccount) []any {
	return []any{
		uuid.UUID(p.ID), p.LegalName, p.TaxID, p.TaxIDType, p.CountryCode, p.Address,
		uuid.UUID(p.TerritoryID), nullString(string(p.SelfOperatedEntityID)),
		p.FeeSplitPct.String(), p.RoyaltySplitPct.String(), p.ContractStart, p.ContractEnd,
		string(p.Status), string(p.ExclusivityStatus),
		nullString(p.ApprovedBy), p.ApprovedAt, nullString(p.SuspensionReason), p.SuspendedAt, p.TerminatedAt,
		nullString(p.ExclusivityReason), p.ExclusivityLostAt,
		p.TotalSold, p.TotalActive, p.TotalRevenue.String(),
		p.FraudFlagCount, p.LastFraudFlagAt,
		p.CreatedAt, p.UpdatedAt,
	}
}

func (s *Postgres) FindByID(ctx context.Context, id domain.PartnerID) (*models.PartnerAccount, error) {
	q := tx.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id = $1`, uuid.UUID(id))
	p, err := scanPartner(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find partner: %w", err)
	}
	return p, nil
}

const updatePartner = `
UPDATE partners SET
  legal_name = $2, tax_id = $3, tax_id_type = $4, country_code = $5, address = $6,
  territory_id = $7, self_operated_entity_id = $8,
  fee_split_pct = $9, royalty_split_pct = $10, contract_start = $11, contract_end = $12,
  status = $13, exclusivity_status = $14,
  approved_by = $15, approved_at = $16, suspension_reason = $17, suspended_at = $18, terminated_at = $19,
  exclusivity_reason = $20, exclusivity_lost_at = $21,
  total_sold = $22, total_active = $23, total_revenue = $24,
  fraud_flag_count = $25, last_fraud_flag_at = $26,
  created_at = $27, updated_at = $28
WHERE id = $1`

// Execute locks the partner row, runs validate, applies mutate and writes
// the result back, all inside the ambient transaction.
func (s *Postgres) Execute(ctx context.Context, id domain.PartnerID, validate func(*models.PartnerAccount) error, mutate func(*models.PartnerAccount)) (*models.PartnerAccount, error) {
	q := tx.Executor(ctx, s.db)

	row := q.QueryRowContext(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id = $1 FOR UPDATE`, uuid.UUID(id))
	p, err := scanPartner(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock partner: %w", err)
	}

	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)

	if _, err := q.ExecContext(ctx, updatePartner, insertArgs(p)...); err != nil {
		return nil, fmt.Errorf("update partner: %w", err)
	}
	return p, nil
}

func (s *Postgres) CountActiveByTerritory(ctx context.Context, territoryID domain.TerritoryID) (int, error) {
	q := tx.Executor(ctx, s.db)
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM partners WHERE territory_id = $1 AND status <> 'terminated'`,
		uuid.UUID(territoryID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count partners by territory: %w", err)
	}
	return count, nil
}

func (s *Postgres) ListByTerritory(ctx context.Context, territoryID domain.TerritoryID) ([]*models.PartnerAccount, error) {
	q := tx.Executor(ctx, s.db)
	rows, err := q.QueryContext(ctx,
		`SELECT `+partnerColumns+` FROM partners WHERE territory_id = $1 AND status <> 'terminated' ORDER BY created_at`,
		uuid.UUID(territoryID))
	if err != nil {
		return nil, fmt.Errorf("list partners by territory: %w", err)
	}
	defer rows.Close()

	var out []*models.PartnerAccount
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan partner: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPartner(row rowScanner) (*models.PartnerAccount, error) {
	var (
		p            models.PartnerAccount
		id           uuid.UUID
		territoryID  uuid.UUID
		selfEntity   sql.NullString
		feePct       string
		royaltyPct   string
		contractEnd  sql.NullTime
		status       string
		exclusivity  string
		approvedBy   sql.NullString
		approvedAt   sql.NullTime
		suspReason   sql.NullString
		suspendedAt  sql.NullTime
		terminatedAt sql.NullTime
		exclReason   sql.NullString
		exclLostAt   sql.NullTime
		totalRevenue string
		lastFraudAt  sql.NullTime
	)
	err := row.Scan(
		&id, &p.LegalName, &p.TaxID, &p.TaxIDType, &p.CountryCode, &p.Address,
		&territoryID, &selfEntity,
		&feePct, &royaltyPct, &p.ContractStart, &contractEnd,
		&status, &exclusivity,
		&approvedBy, &approvedAt, &suspReason, &suspendedAt, &terminatedAt,
		&exclReason, &exclLostAt,
		&p.TotalSold, &p.TotalActive, &totalRevenue,
		&p.FraudFlagCount, &lastFraudAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ID = domain.PartnerID(id)
	p.TerritoryID = domain.TerritoryID(territoryID)
	p.SelfOperatedEntityID = domain.EntityID(selfEntity.String)
	if p.FeeSplitPct, err = decimal.NewFromString(feePct); err != nil {
		return nil, fmt.Errorf("parse fee split pct: %w", err)
	}
	if p.RoyaltySplitPct, err = decimal.NewFromString(royaltyPct); err != nil {
		return nil, fmt.Errorf("parse royalty split pct: %w", err)
	}
	if p.TotalRevenue, err = decimal.NewFromString(totalRevenue); err != nil {
		return nil, fmt.Errorf("parse total revenue: %w", err)
	}
	p.Status = models.Status(status)
	p.ExclusivityStatus = models.ExclusivityStatus(exclusivity)
	p.ApprovedBy = approvedBy.String
	p.SuspensionReason = suspReason.String
	p.ExclusivityReason = exclReason.String
	p.ContractEnd = timePtr(contractEnd)
	p.ApprovedAt = timePtr(approvedAt)
	p.SuspendedAt = timePtr(suspendedAt)
	p.TerminatedAt = timePtr(terminatedAt)
	p.ExclusivityLostAt = timePtr(exclLostAt)
	p.LastFraudFlagAt = timePtr(lastFraudAt)
	return &p, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
