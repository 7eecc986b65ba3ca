package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"demarc/internal/link/models"
	"demarc/pkg/domain"
	"demarc/pkg/platform/sentinel"
)

// InMemory stores regional links in process memory.
type InMemory struct {
	mu    sync.Mutex
	links map[domain.LinkID]*models.RegionalLink
}

func NewInMemory() *InMemory {
	return &InMemory{links: make(map[domain.LinkID]*models.RegionalLink)}
}

func (s *InMemory) Create(ctx context.Context, l *models.RegionalLink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.links[l.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	cp := *l
	s.links[l.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id domain.LinkID) (*models.RegionalLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

// Execute atomically validates and mutates a link under the store lock.
// The immutable snapshot fields must not be touched by mutate.
func (s *InMemory) Execute(ctx context.Context, id domain.LinkID, validate func(*models.RegionalLink) error, mutate func(*models.RegionalLink)) (*models.RegionalLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.links[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(l); err != nil {
		return nil, err
	}
	mutate(l)
	cp := *l
	return &cp, nil
}

// ListByPartnerInPeriod returns the partner's links created inside
// [from, to), oldest first.
func (s *InMemory) ListByPartnerInPeriod(ctx context.Context, partnerID domain.PartnerID, from, to time.Time) ([]*models.RegionalLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.RegionalLink
	for _, l := range s.links {
		if l.PartnerID != partnerID {
			continue
		}
		if l.CreatedAt.Before(from) || !l.CreatedAt.Before(to) {
			continue
		}
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CountActiveByPartner counts the partner's links with status active.
func (s *InMemory) CountActiveByPartner(ctx context.Context, partnerID domain.PartnerID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, l := range s.links {
		if l.PartnerID == partnerID && l.IsActive() {
			count++
		}
	}
	return count, nil
}
