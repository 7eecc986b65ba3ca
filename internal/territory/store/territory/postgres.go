package territory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"demarc/internal/territory/models"
	"demarc/pkg/domain"
	"demarc/pkg/platform/sentinel"
	"demarc/pkg/platform/tx"
)

// Postgres persists territory definitions in the territories table. List
// layers live in text[] columns; zip ranges are a jsonb blob since they are
// structured pairs.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const territoryColumns = `
  id, name, country_code,
  states, excluded_states, municipalities, excluded_municipalities,
  micro_regions, metro_regions, urban_agglomerations,
  zip_ranges, zip_exclusions, custom_zone_ref,
  exclusivity_type, max_partner_quota, overlap_allowed, active,
  territory_hash, created_at, updated_at`

const insertTerritory = `
INSERT INTO territories (` + territoryColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

func (s *Postgres) Create(ctx context.Context, t *models.TerritoryDefinition) error {
	q := tx.Executor(ctx, s.db)

	zipRanges, err := json.Marshal(t.ZipRanges)
	if err != nil {
		return fmt.Errorf("encode zip ranges: %w", err)
	}
	_, err = q.ExecContext(ctx, insertTerritory,
		uuid.UUID(t.ID), t.Name, t.CountryCode,
		pq.Array(t.States), pq.Array(t.ExcludedStates), pq.Array(t.Municipalities), pq.Array(t.ExcludedMunicipalities),
		pq.Array(t.MicroRegions), pq.Array(t.MetroRegions), pq.Array(t.UrbanAgglomerations),
		zipRanges, pq.Array(t.ZipExclusions), t.CustomZoneRef,
		string(t.ExclusivityType), t.MaxPartnerQuota, t.OverlapAllowed, t.Active,
		t.TerritoryHash, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert territory: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.TerritoryID) (*models.TerritoryDefinition, error) {
	q := tx.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `SELECT `+territoryColumns+` FROM territories WHERE id = $1`, uuid.UUID(id))
	t, err := scanTerritory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find territory: %w", err)
	}
	return t, nil
}

func (s *Postgres) FindActiveByHash(ctx context.Context, hash string) (*models.TerritoryDefinition, error) {
	q := tx.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `SELECT `+territoryColumns+` FROM territories WHERE territory_hash = $1 AND active`, hash)
	t, err := scanTerritory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find territory by hash: %w", err)
	}
	return t, nil
}

func (s *Postgres) ListActiveByCountry(ctx context.Context, country string) ([]*models.TerritoryDefinition, error) {
	q := tx.Executor(ctx, s.db)
	rows, err := q.QueryContext(ctx,
		`SELECT `+territoryColumns+` FROM territories WHERE country_code = $1 AND active ORDER BY created_at`, country)
	if err != nil {
		return nil, fmt.Errorf("list territories by country: %w", err)
	}
	defer rows.Close()

	var out []*models.TerritoryDefinition
	for rows.Next() {
		t, err := scanTerritory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan territory: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const updateTerritoryState = `
UPDATE territories SET active = $2, updated_at = $3 WHERE id = $1`

// Execute locks the territory row, runs validate, applies mutate and writes
// back the mutable fields (active, updated_at). Geography columns are never
// updated.
func (s *Postgres) Execute(ctx context.Context, id domain.TerritoryID, validate func(*models.TerritoryDefinition) error, mutate func(*models.TerritoryDefinition)) (*models.TerritoryDefinition, error) {
	q := tx.Executor(ctx, s.db)

	row := q.QueryRowContext(ctx, `SELECT `+territoryColumns+` FROM territories WHERE id = $1 FOR UPDATE`, uuid.UUID(id))
	t, err := scanTerritory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock territory: %w", err)
	}

	if err := validate(t); err != nil {
		return nil, err
	}
	mutate(t)

	if _, err := q.ExecContext(ctx, updateTerritoryState, uuid.UUID(t.ID), t.Active, t.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update territory: %w", err)
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTerritory(row rowScanner) (*models.TerritoryDefinition, error) {
	var (
		t         models.TerritoryDefinition
		id        uuid.UUID
		zipRanges []byte
		exclType  string
	)
	err := row.Scan(
		&id, &t.Name, &t.CountryCode,
		pq.Array(&t.States), pq.Array(&t.ExcludedStates), pq.Array(&t.Municipalities), pq.Array(&t.ExcludedMunicipalities),
		pq.Array(&t.MicroRegions), pq.Array(&t.MetroRegions), pq.Array(&t.UrbanAgglomerations),
		&zipRanges, pq.Array(&t.ZipExclusions), &t.CustomZoneRef,
		&exclType, &t.MaxPartnerQuota, &t.OverlapAllowed, &t.Active,
		&t.TerritoryHash, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.ID = domain.TerritoryID(id)
	t.ExclusivityType = models.ExclusivityType(exclType)
	if len(zipRanges) > 0 {
		if err := json.Unmarshal(zipRanges, &t.ZipRanges); err != nil {
			return nil, fmt.Errorf("decode zip ranges: %w", err)
		}
	}
	return &t, nil
}
