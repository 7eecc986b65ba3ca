package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"demarc/internal/fraud/models"
	"demarc/pkg/domain"
	"demarc/pkg/platform/sentinel"
	"demarc/pkg/platform/tx"
)

// Postgres persists fraud events in the fraud_events table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const eventColumns = `id, partner_id, type, severity, status, evidence, action_taken, created_at`

func (s *Postgres) Create(ctx context.Context, e *models.FraudEvent) error {
	q := tx.Executor(ctx, s.db)
	_, err := q.ExecContext(ctx,
		`INSERT INTO fraud_events (`+eventColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(e.ID), uuid.UUID(e.PartnerID), string(e.Type), string(e.Severity),
		string(e.Status), []byte(e.Evidence), string(e.ActionTaken), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert fraud event: %w", err)
	}
	return nil
}

func (s *Postgres) FindRecent(ctx context.Context, partnerID domain.PartnerID, fraudType models.Type, since time.Time) (*models.FraudEvent, error) {
	q := tx.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM fraud_events
		 WHERE partner_id = $1 AND type = $2 AND created_at >= $3
		 ORDER BY created_at DESC LIMIT 1`,
		uuid.UUID(partnerID), string(fraudType), since)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find recent fraud event: %w", err)
	}
	return e, nil
}

func (s *Postgres) ListByPartner(ctx context.Context, partnerID domain.PartnerID) ([]*models.FraudEvent, error) {
	q := tx.Executor(ctx, s.db)
	rows, err := q.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM fraud_events WHERE partner_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(partnerID))
	if err != nil {
		return nil, fmt.Errorf("list fraud events: %w", err)
	}
	defer rows.Close()

	var out []*models.FraudEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fraud event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.FraudEvent, error) {
	var (
		e        models.FraudEvent
		id       uuid.UUID
		pid      uuid.UUID
		typ      string
		severity string
		status   string
		evidence []byte
		action   string
	)
	err := row.Scan(&id, &pid, &typ, &severity, &status, &evidence, &action, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.ID = domain.FraudEventID(id)
	e.PartnerID = domain.PartnerID(pid)
	e.Type = models.Type(typ)
	e.Severity = models.Severity(severity)
	e.Status = models.Status(status)
	e.Evidence = evidence
	e.ActionTaken = models.Action(action)
	return &e, nil
}
