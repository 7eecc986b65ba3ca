package store

import (
	"context"
	"sync"

	"demarc/internal/auditchain"
	"demarc/pkg/domain"
)

// InMemory keeps chains in process memory. Appends for the same partner
// serialize on a per-partner mutex so two concurrent appends can never both
// link off the same head; cross-partner appends proceed independently.
type InMemory struct {
	mu     sync.Mutex
	chains map[domain.PartnerID][]*auditchain.Snapshot
	locks  map[domain.PartnerID]*sync.Mutex
}

func NewInMemory() *InMemory {
	return &InMemory{
		chains: make(map[domain.PartnerID][]*auditchain.Snapshot),
		locks:  make(map[domain.PartnerID]*sync.Mutex),
	}
}

func (s *InMemory) partnerLock(partnerID domain.PartnerID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[partnerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[partnerID] = l
	}
	return l
}

// Append builds and inserts a new snapshot while holding the partner's lock.
// The build callback receives the current chain head (nil for a first entry).
func (s *InMemory) Append(ctx context.Context, partnerID domain.PartnerID, build func(head *auditchain.Snapshot) (*auditchain.Snapshot, error)) (*auditchain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := s.partnerLock(partnerID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	chain := s.chains[partnerID]
	var head *auditchain.Snapshot
	if len(chain) > 0 {
		head = chain[len(chain)-1]
	}
	s.mu.Unlock()

	entry, err := build(head)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.chains[partnerID] = append(s.chains[partnerID], entry)
	s.mu.Unlock()
	return entry, nil
}

// ListByPartner returns the partner's chain in append order.
func (s *InMemory) ListByPartner(ctx context.Context, partnerID domain.PartnerID) ([]*auditchain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	chain := s.chains[partnerID]
	out := make([]*auditchain.Snapshot, len(chain))
	copy(out, chain)
	return out, nil
}

// Tamper overwrites a stored snapshot's state without touching its hash.
// Test hook for exercising chain verification; never used by production
// code paths.
func (s *InMemory) Tamper(partnerID domain.PartnerID, index int, state []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains[partnerID][index].State = state
}
