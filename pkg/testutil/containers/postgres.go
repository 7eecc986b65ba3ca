//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresContainer wraps a testcontainers Postgres instance with the
// schema already applied.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container and creates the
// tables. Prefer Manager.GetPostgres so suites share one instance.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("demarc_test"),
		tcpostgres.WithUsername("demarc"),
		tcpostgres.WithPassword("demarc"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// Cleanup is left to Ryuk; the Manager shares this container across
	// suites in the same process.

	return &PostgresContainer{
		Container: container,
		URL:       url,
		DB:        db,
	}
}

// TruncateTables empties the given tables. Use between tests to ensure
// isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", ")))
	return err
}

// schema mirrors the column lists in each store's postgres.go. Decimal
// amounts are text so precision never passes through float.
const schema = `
CREATE TABLE IF NOT EXISTS territories (
  id                      UUID PRIMARY KEY,
  name                    TEXT NOT NULL,
  country_code            TEXT NOT NULL,
  states                  TEXT[] NOT NULL DEFAULT '{}',
  excluded_states         TEXT[] NOT NULL DEFAULT '{}',
  municipalities          TEXT[] NOT NULL DEFAULT '{}',
  excluded_municipalities TEXT[] NOT NULL DEFAULT '{}',
  micro_regions           TEXT[] NOT NULL DEFAULT '{}',
  metro_regions           TEXT[] NOT NULL DEFAULT '{}',
  urban_agglomerations    TEXT[] NOT NULL DEFAULT '{}',
  zip_ranges              JSONB,
  zip_exclusions          TEXT[] NOT NULL DEFAULT '{}',
  custom_zone_ref         TEXT NOT NULL DEFAULT '',
  exclusivity_type        TEXT NOT NULL,
  max_partner_quota       INTEGER NOT NULL,
  overlap_allowed         BOOLEAN NOT NULL,
  active                  BOOLEAN NOT NULL,
  territory_hash          TEXT NOT NULL,
  created_at              TIMESTAMPTZ NOT NULL,
  updated_at              TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_territories_hash ON territories (territory_hash) WHERE active;

CREATE TABLE IF NOT EXISTS partners (
  id                      UUID PRIMARY KEY,
  legal_name              TEXT NOT NULL,
  tax_id                  TEXT NOT NULL,
  tax_id_type             TEXT NOT NULL DEFAULT '',
  country_code            TEXT NOT NULL,
  address                 TEXT NOT NULL DEFAULT '',
  territory_id            UUID NOT NULL,
  self_operated_entity_id TEXT,
  fee_split_pct           TEXT NOT NULL,
  royalty_split_pct       TEXT NOT NULL,
  contract_start          TIMESTAMPTZ NOT NULL,
  contract_end            TIMESTAMPTZ,
  status                  TEXT NOT NULL,
  exclusivity_status      TEXT NOT NULL,
  approved_by             TEXT,
  approved_at             TIMESTAMPTZ,
  suspension_reason       TEXT,
  suspended_at            TIMESTAMPTZ,
  terminated_at           TIMESTAMPTZ,
  exclusivity_reason      TEXT,
  exclusivity_lost_at     TIMESTAMPTZ,
  total_sold              INTEGER NOT NULL DEFAULT 0,
  total_active            INTEGER NOT NULL DEFAULT 0,
  total_revenue           TEXT NOT NULL DEFAULT '0',
  fraud_flag_count        INTEGER NOT NULL DEFAULT 0,
  last_fraud_flag_at      TIMESTAMPTZ,
  created_at              TIMESTAMPTZ NOT NULL,
  updated_at              TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_partners_territory ON partners (territory_id);

CREATE TABLE IF NOT EXISTS regional_links (
  id                 UUID PRIMARY KEY,
  partner_id         UUID NOT NULL,
  placed_entity_id   TEXT NOT NULL,
  location           JSONB NOT NULL,
  territory_id       UUID NOT NULL,
  territory_snapshot BYTEA NOT NULL,
  snapshot_hash      TEXT NOT NULL,
  fees_earned        TEXT NOT NULL,
  royalties_earned   TEXT NOT NULL,
  status             TEXT NOT NULL,
  created_at         TIMESTAMPTZ NOT NULL,
  updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_regional_links_partner ON regional_links (partner_id, created_at);

CREATE TABLE IF NOT EXISTS audit_snapshots (
  id                     UUID PRIMARY KEY,
  partner_id             UUID NOT NULL,
  territory_id           UUID NOT NULL,
  seq                    BIGINT NOT NULL,
  state                  BYTEA NOT NULL,
  snapshot_hash          TEXT NOT NULL,
  reason                 TEXT NOT NULL,
  previous_snapshot_id   UUID,
  previous_snapshot_hash TEXT,
  chain_validated        BOOLEAN NOT NULL,
  created_at             TIMESTAMPTZ NOT NULL,
  UNIQUE (partner_id, seq)
);

CREATE TABLE IF NOT EXISTS fraud_events (
  id           UUID PRIMARY KEY,
  partner_id   UUID NOT NULL,
  type         TEXT NOT NULL,
  severity     TEXT NOT NULL,
  status       TEXT NOT NULL,
  evidence     JSONB,
  action_taken TEXT NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fraud_events_partner ON fraud_events (partner_id, type, created_at);

CREATE TABLE IF NOT EXISTS performance_targets (
  id                 UUID PRIMARY KEY,
  partner_id         UUID NOT NULL,
  period             TEXT NOT NULL,
  period_start       TIMESTAMPTZ NOT NULL,
  period_end         TIMESTAMPTZ NOT NULL,
  sold_target        TEXT,
  sold_actual        TEXT NOT NULL DEFAULT '0',
  volume_target      TEXT,
  volume_actual      TEXT NOT NULL DEFAULT '0',
  retention_target   TEXT,
  retention_actual   TEXT NOT NULL DEFAULT '0',
  active_target      TEXT,
  active_actual      TEXT NOT NULL DEFAULT '0',
  status             TEXT NOT NULL,
  exclusivity_impact TEXT NOT NULL,
  evaluated_at       TIMESTAMPTZ,
  created_at         TIMESTAMPTZ NOT NULL,
  updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_performance_targets_partner ON performance_targets (partner_id, period_start);
`
