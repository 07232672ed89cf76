package account

import (
	"context"
	"sort"
	"sync"

	"trustgate/internal/identity/models"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
)

// MemoryStore keeps accounts in process memory. Handle uniqueness is
// enforced under the mutex, matching the unique index the postgres store
// relies on.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[id.AccountID]models.Account
	byHandle map[string]id.AccountID
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[id.AccountID]models.Account),
		byHandle: make(map[string]id.AccountID),
	}
}

func (s *MemoryStore) Create(ctx context.Context, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byHandle[account.Handle]; taken {
		return sentinel.ErrConflict
	}
	if _, exists := s.accounts[account.ID]; exists {
		return sentinel.ErrConflict
	}
	s.accounts[account.ID] = account
	s.byHandle[account.Handle] = account.ID
	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, accountID id.AccountID) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return models.Account{}, sentinel.ErrNotFound
	}
	return account, nil
}

func (s *MemoryStore) List(ctx context.Context, offset, limit int) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		all = append(all, a)
	}
	// Stable order so pagination does not skip rows between calls.
	sort.Slice(all, func(i, j int) bool { return all[i].Handle < all[j].Handle })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *MemoryStore) Delete(ctx context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return nil
	}
	delete(s.byHandle, account.Handle)
	delete(s.accounts, accountID)
	return nil
}
