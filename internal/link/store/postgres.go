package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"demarc/internal/link/models"
	"demarc/pkg/domain"
	"demarc/pkg/platform/sentinel"
	"demarc/pkg/platform/tx"
)

// Postgres persists regional links in the regional_links table. The
// territory snapshot is stored as the canonical encoded blob alongside its
// hash; the snapshot columns are written once and never updated.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const linkColumns = `
  id, partner_id, placed_entity_id, location,
  territory_id, territory_snapshot, snapshot_hash,
  fees_earned, royalties_earned, status, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, l *models.RegionalLink) error {
	q := tx.Executor(ctx, s.db)

	location, err := json.Marshal(l.Location)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO regional_links (`+linkColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.UUID(l.ID), uuid.UUID(l.PartnerID), string(l.PlacedEntityID), location,
		uuid.UUID(l.TerritoryID), []byte(l.TerritorySnapshot), l.SnapshotHash,
		l.FeesEarned.String(), l.RoyaltiesEarned.String(), string(l.Status), l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert regional link: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.LinkID) (*models.RegionalLink, error) {
	q := tx.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM regional_links WHERE id = $1`, uuid.UUID(id))
	l, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find regional link: %w", err)
	}
	return l, nil
}

const updateLinkTotals = `
UPDATE regional_links
SET fees_earned = $2, royalties_earned = $3, status = $4, updated_at = $5
WHERE id = $1`

// Execute locks the link row, runs validate, applies mutate and writes back
// the mutable columns. Snapshot columns are never part of the update.
func (s *Postgres) Execute(ctx context.Context, id domain.LinkID, validate func(*models.RegionalLink) error, mutate func(*models.RegionalLink)) (*models.RegionalLink, error) {
	q := tx.Executor(ctx, s.db)

	row := q.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM regional_links WHERE id = $1 FOR UPDATE`, uuid.UUID(id))
	l, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock regional link: %w", err)
	}

	if err := validate(l); err != nil {
		return nil, err
	}
	mutate(l)

	_, err = q.ExecContext(ctx, updateLinkTotals,
		uuid.UUID(l.ID), l.FeesEarned.String(), l.RoyaltiesEarned.String(), string(l.Status), l.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update regional link: %w", err)
	}
	return l, nil
}

func (s *Postgres) ListByPartnerInPeriod(ctx context.Context, partnerID domain.PartnerID, from, to time.Time) ([]*models.RegionalLink, error) {
	q := tx.Executor(ctx, s.db)
	rows, err := q.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM regional_links
		 WHERE partner_id = $1 AND created_at >= $2 AND created_at < $3
		 ORDER BY created_at`,
		uuid.UUID(partnerID), from, to)
	if err != nil {
		return nil, fmt.Errorf("list regional links: %w", err)
	}
	defer rows.Close()

	var out []*models.RegionalLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan regional link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Postgres) CountActiveByPartner(ctx context.Context, partnerID domain.PartnerID) (int, error) {
	q := tx.Executor(ctx, s.db)
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM regional_links WHERE partner_id = $1 AND status = 'active'`,
		uuid.UUID(partnerID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active regional links: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*models.RegionalLink, error) {
	var (
		l         models.RegionalLink
		id        uuid.UUID
		pid       uuid.UUID
		tid       uuid.UUID
		entity    string
		location  []byte
		snapshot  []byte
		fees      string
		royalties string
		status    string
	)
	err := row.Scan(&id, &pid, &entity, &location,
		&tid, &snapshot, &l.SnapshotHash,
		&fees, &royalties, &status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.ID = domain.LinkID(id)
	l.PartnerID = domain.PartnerID(pid)
	l.TerritoryID = domain.TerritoryID(tid)
	l.PlacedEntityID = domain.EntityID(entity)
	l.TerritorySnapshot = snapshot
	l.Status = models.Status(status)
	if err := json.Unmarshal(location, &l.Location); err != nil {
		return nil, fmt.Errorf("decode location: %w", err)
	}
	if l.FeesEarned, err = decimal.NewFromString(fees); err != nil {
		return nil, fmt.Errorf("parse fees earned: %w", err)
	}
	if l.RoyaltiesEarned, err = decimal.NewFromString(royalties); err != nil {
		return nil, fmt.Errorf("parse royalties earned: %w", err)
	}
	return &l, nil
}
