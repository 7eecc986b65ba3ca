package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"demarc/internal/fraud/models"
	"demarc/pkg/domain"
	"demarc/pkg/platform/sentinel"
)

// InMemory keeps fraud events in process memory.
type InMemory struct {
	mu     sync.Mutex
	events map[domain.FraudEventID]*models.FraudEvent
}

func NewInMemory() *InMemory {
	return &InMemory{events: make(map[domain.FraudEventID]*models.FraudEvent)}
}

func (s *InMemory) Create(ctx context.Context, e *models.FraudEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[e.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	cp := *e
	s.events[e.ID] = &cp
	return nil
}

// FindRecent returns the newest event of the given partner+type created at
// or after the cutoff. Drives the dedupe window.
func (s *InMemory) FindRecent(ctx context.Context, partnerID domain.PartnerID, fraudType models.Type, since time.Time) (*models.FraudEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var newest *models.FraudEvent
	for _, e := range s.events {
		if e.PartnerID != partnerID || e.Type != fraudType || e.CreatedAt.Before(since) {
			continue
		}
		if newest == nil || e.CreatedAt.After(newest.CreatedAt) {
			newest = e
		}
	}
	if newest == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *newest
	return &cp, nil
}

// ListByPartner returns the partner's events newest first.
func (s *InMemory) ListByPartner(ctx context.Context, partnerID domain.PartnerID) ([]*models.FraudEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.FraudEvent
	for _, e := range s.events {
		if e.PartnerID != partnerID {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
