package auditchain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	territorymodels "demarc/internal/territory/models"
)

// EncodeState serializes a territory into the canonical byte form that gets
// hashed and stored. The input is cloned and normalized first so encoding is
// independent of list order in the caller's copy.
func EncodeState(t *territorymodels.TerritoryDefinition) (json.RawMessage, error) {
	n := t.Clone()
	n.Normalize()
	raw, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode territory state: %w", err)
	}
	return raw, nil
}

// HashState fingerprints an encoded state.
func HashState(state json.RawMessage) string {
	sum := sha256.Sum256(state)
	return hex.EncodeToString(sum[:])
}

// BreakKind classifies a detected chain break.
type BreakKind string

const (
	// BreakContent means an entry's stored state no longer matches its
	// stored hash: the entry itself was tampered with.
	BreakContent BreakKind = "content_mismatch"
	// BreakLink means an entry's previous-hash pointer does not match the
	// recomputed hash of its predecessor.
	BreakLink BreakKind = "link_mismatch"
)

// BrokenLink locates one verification failure.
type BrokenLink struct {
	Index      int       `json:"index"`
	SnapshotID string    `json:"snapshot_id"`
	Kind       BreakKind `json:"kind"`
	Detail     string    `json:"detail"`
}

// Report is the outcome of a full chain walk.
type Report struct {
	Valid        bool         `json:"valid"`
	TotalChecked int          `json:"total_checked"`
	BrokenLinks  []BrokenLink `json:"broken_links"`
}

// VerifyEntries walks an ordered chain, recomputing every entry's hash and
// checking every link. All breaks are collected; verification never stops at
// the first failure and never repairs anything — a broken chain is evidence.
//
// Link checks compare against the RECOMPUTED predecessor hash, so tampering
// with entry i surfaces both as a content break on i and a link break on
// i+1.
func VerifyEntries(entries []*Snapshot) Report {
	report := Report{Valid: true, TotalChecked: len(entries), BrokenLinks: []BrokenLink{}}

	for i, entry := range entries {
		recomputed := HashState(entry.State)
		if recomputed != entry.SnapshotHash {
			report.BrokenLinks = append(report.BrokenLinks, BrokenLink{
				Index:      i,
				SnapshotID: entry.ID.String(),
				Kind:       BreakContent,
				Detail:     "stored state does not match stored hash",
			})
		}

		if i == 0 {
			if entry.PreviousSnapshotHash != nil {
				report.BrokenLinks = append(report.BrokenLinks, BrokenLink{
					Index:      i,
					SnapshotID: entry.ID.String(),
					Kind:       BreakLink,
					Detail:     "first entry must not reference a predecessor",
				})
			}
			continue
		}

		prevHash := HashState(entries[i-1].State)
		switch {
		case entry.PreviousSnapshotHash == nil:
			report.BrokenLinks = append(report.BrokenLinks, BrokenLink{
				Index:      i,
				SnapshotID: entry.ID.String(),
				Kind:       BreakLink,
				Detail:     "missing previous-hash pointer",
			})
		case *entry.PreviousSnapshotHash != prevHash:
			report.BrokenLinks = append(report.BrokenLinks, BrokenLink{
				Index:      i,
				SnapshotID: entry.ID.String(),
				Kind:       BreakLink,
				Detail:     "previous-hash pointer does not match predecessor state",
			})
		}
	}

	report.Valid = len(report.BrokenLinks) == 0
	return report
}
