package territory

import (
	"context"
	"sync"

	"demarc/internal/territory/models"
	"demarc/pkg/domain"
	"demarc/pkg/platform/sentinel"
)

// InMemory stores territory definitions in process memory. All reads and
// writes deep-copy through Clone so no caller ever holds a reference into
// the stored record; geography is immutable after creation and the store
// enforces that by only exposing Execute for the Active flag.
type InMemory struct {
	mu          sync.Mutex
	territories map[domain.TerritoryID]*models.TerritoryDefinition
}

func NewInMemory() *InMemory {
	return &InMemory{territories: make(map[domain.TerritoryID]*models.TerritoryDefinition)}
}

func (s *InMemory) Create(ctx context.Context, t *models.TerritoryDefinition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.territories[t.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.territories[t.ID] = t.Clone()
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id domain.TerritoryID) (*models.TerritoryDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.territories[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return t.Clone(), nil
}

// FindActiveByHash looks up an active territory with the given content
// fingerprint. Used for duplicate-configuration rejection.
func (s *InMemory) FindActiveByHash(ctx context.Context, hash string) (*models.TerritoryDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.territories {
		if t.Active && t.TerritoryHash == hash {
			return t.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListActiveByCountry returns clones of every active territory in the
// country, the candidate set for overlap checking.
func (s *InMemory) ListActiveByCountry(ctx context.Context, country string) ([]*models.TerritoryDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.TerritoryDefinition
	for _, t := range s.territories {
		if t.Active && t.CountryCode == country {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// Execute atomically validates and mutates a territory under the store
// lock. Geography stays immutable; callers use this for the Active flag
// only.
func (s *InMemory) Execute(ctx context.Context, id domain.TerritoryID, validate func(*models.TerritoryDefinition) error, mutate func(*models.TerritoryDefinition)) (*models.TerritoryDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.territories[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(t); err != nil {
		return nil, err
	}
	mutate(t)
	return t.Clone(), nil
}
