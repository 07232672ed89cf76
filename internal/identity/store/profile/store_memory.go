package profile

import (
	"context"
	"sync"

	"trustgate/internal/identity/models"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
)

// MemoryStore keeps profiles in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[id.AccountID]models.Profile
}

func NewMemory() *MemoryStore {
	return &MemoryStore{rows: make(map[id.AccountID]models.Profile)}
}

func (s *MemoryStore) Get(ctx context.Context, accountID id.AccountID) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[accountID]
	if !ok {
		return models.Profile{}, sentinel.ErrNotFound
	}
	return row, nil
}

func (s *MemoryStore) Save(ctx context.Context, profile models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[profile.AccountID] = profile
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, accountID)
	return nil
}
