package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"demarc/internal/auditchain"
	"demarc/pkg/domain"
	"demarc/pkg/platform/tx"
)

// Postgres persists chains in the audit_snapshots table. Per-partner append
// serialization uses a row lock on the chain head (SELECT ... FOR UPDATE)
// inside the ambient transaction, so two concurrent appends for the same
// partner cannot both read the same head.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const selectHead = `
SELECT id, partner_id, territory_id, seq, state, snapshot_hash, reason,
       previous_snapshot_id, previous_snapshot_hash, chain_validated, created_at
FROM audit_snapshots
WHERE partner_id = $1
ORDER BY seq DESC
LIMIT 1
FOR UPDATE`

const insertSnapshot = `
INSERT INTO audit_snapshots
  (id, partner_id, territory_id, seq, state, snapshot_hash, reason,
   previous_snapshot_id, previous_snapshot_hash, chain_validated, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

func (s *Postgres) Append(ctx context.Context, partnerID domain.PartnerID, build func(head *auditchain.Snapshot) (*auditchain.Snapshot, error)) (*auditchain.Snapshot, error) {
	q := tx.Executor(ctx, s.db)

	head, err := scanSnapshot(q.QueryRowContext(ctx, selectHead, uuid.UUID(partnerID)))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fetch chain head: %w", err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		head = nil
	}

	entry, err := build(head)
	if err != nil {
		return nil, err
	}

	var prevID any
	if entry.PreviousSnapshotID != nil {
		prevID = uuid.UUID(*entry.PreviousSnapshotID)
	}
	var prevHash any
	if entry.PreviousSnapshotHash != nil {
		prevHash = *entry.PreviousSnapshotHash
	}

	_, err = q.ExecContext(ctx, insertSnapshot,
		uuid.UUID(entry.ID), uuid.UUID(entry.PartnerID), uuid.UUID(entry.TerritoryID),
		entry.Seq, []byte(entry.State), entry.SnapshotHash, string(entry.Reason),
		prevID, prevHash, entry.ChainValidated, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert audit snapshot: %w", err)
	}
	return entry, nil
}

// Walk order is the append sequence. Timestamps are not the order: two
// serialized appends can share a microsecond.
const selectChain = `
SELECT id, partner_id, territory_id, seq, state, snapshot_hash, reason,
       previous_snapshot_id, previous_snapshot_hash, chain_validated, created_at
FROM audit_snapshots
WHERE partner_id = $1
ORDER BY seq ASC`

func (s *Postgres) ListByPartner(ctx context.Context, partnerID domain.PartnerID) ([]*auditchain.Snapshot, error) {
	q := tx.Executor(ctx, s.db)

	rows, err := q.QueryContext(ctx, selectChain, uuid.UUID(partnerID))
	if err != nil {
		return nil, fmt.Errorf("list audit snapshots: %w", err)
	}
	defer rows.Close()

	var out []*auditchain.Snapshot
	for rows.Next() {
		entry, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit snapshot: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*auditchain.Snapshot, error) {
	var (
		entry    auditchain.Snapshot
		id       uuid.UUID
		pid      uuid.UUID
		tid      uuid.UUID
		state    []byte
		reason   string
		prevID   uuid.NullUUID
		prevHash sql.NullString
	)
	err := row.Scan(&id, &pid, &tid, &entry.Seq, &state, &entry.SnapshotHash, &reason,
		&prevID, &prevHash, &entry.ChainValidated, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	entry.ID = domain.SnapshotID(id)
	entry.PartnerID = domain.PartnerID(pid)
	entry.TerritoryID = domain.TerritoryID(tid)
	entry.State = state
	entry.Reason = auditchain.Reason(reason)
	if prevID.Valid {
		sid := domain.SnapshotID(prevID.UUID)
		entry.PreviousSnapshotID = &sid
	}
	if prevHash.Valid {
		entry.PreviousSnapshotHash = &prevHash.String
	}
	return &entry, nil
}
