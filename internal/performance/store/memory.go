package store

import (
	"context"
	"sort"
	"sync"

	"demarc/internal/performance/models"
	"demarc/pkg/domain"
	"demarc/pkg/platform/sentinel"
)

// InMemory stores performance targets in process memory.
type InMemory struct {
	mu      sync.Mutex
	targets map[domain.TargetID]*models.PerformanceTarget
}

func NewInMemory() *InMemory {
	return &InMemory{targets: make(map[domain.TargetID]*models.PerformanceTarget)}
}

func (s *InMemory) Create(ctx context.Context, t *models.PerformanceTarget) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.targets[t.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	cp := *t
	s.targets[t.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id domain.TargetID) (*models.PerformanceTarget, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.targets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// Execute atomically validates and mutates a target under the store lock.
func (s *InMemory) Execute(ctx context.Context, id domain.TargetID, validate func(*models.PerformanceTarget) error, mutate func(*models.PerformanceTarget)) (*models.PerformanceTarget, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.targets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	mutate(t)
	cp := *t
	return &cp, nil
}

// ListByPartner returns the partner's targets, newest period first.
func (s *InMemory) ListByPartner(ctx context.Context, partnerID domain.PartnerID) ([]*models.PerformanceTarget, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.PerformanceTarget
	for _, t := range s.targets {
		if t.PartnerID != partnerID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.After(out[j].PeriodStart) })
	return out, nil
}
