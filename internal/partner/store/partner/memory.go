package partner

import (
	"context"
	"sync"

	"demarc/internal/partner/models"
	"demarc/pkg/domain"
	"demarc/pkg/platform/sentinel"
)

// InMemory stores partner accounts in process memory. Execute holds the
// store mutex across validate and mutate so lifecycle transitions and
// counter updates are atomic, mirroring the row lock the postgres store
// takes.
type InMemory struct {
	mu       sync.Mutex
	partners map[domain.PartnerID]*models.PartnerAccount
}

func NewInMemory() *InMemory {
	return &InMemory{partners: make(map[domain.PartnerID]*models.PartnerAccount)}
}

func (s *InMemory) Create(ctx context.Context, p *models.PartnerAccount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.partners[p.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	cp := *p
	s.partners[p.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id domain.PartnerID) (*models.PartnerAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partners[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Execute atomically validates and mutates a partner under the store lock.
// The mutation is applied to the stored record only when validate passes;
// a copy of the updated record is returned.
func (s *InMemory) Execute(ctx context.Context, id domain.PartnerID, validate func(*models.PartnerAccount) error, mutate func(*models.PartnerAccount)) (*models.PartnerAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.partners[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)
	cp := *p
	return &cp, nil
}

// CountActiveByTerritory counts partners bound to the territory whose
// operational status still occupies a territory slot. Pending partners
// count too: an unapproved application already holds the slot it applied
// for, otherwise two applicants could both pass the quota check.
func (s *InMemory) CountActiveByTerritory(ctx context.Context, territoryID domain.TerritoryID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, p := range s.partners {
		if p.TerritoryID != territoryID {
			continue
		}
		if p.Status == models.StatusTerminated {
			continue
		}
		count++
	}
	return count, nil
}

// ListByTerritory returns copies of all non-terminated partners bound to
// the territory.
func (s *InMemory) ListByTerritory(ctx context.Context, territoryID domain.TerritoryID) ([]*models.PartnerAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.PartnerAccount
	for _, p := range s.partners {
		if p.TerritoryID != territoryID || p.Status == models.StatusTerminated {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}
