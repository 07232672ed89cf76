// Package signal persists trust signal rows.
package signal

import (
	"context"
	"sync"

	"trustgate/internal/trust"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
)

// MemoryStore keeps signal rows in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[id.AccountID]trust.Signals
}

func NewMemory() *MemoryStore {
	return &MemoryStore{rows: make(map[id.AccountID]trust.Signals)}
}

func (s *MemoryStore) Get(ctx context.Context, accountID id.AccountID) (trust.Signals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[accountID]
	if !ok {
		return trust.Signals{}, sentinel.ErrNotFound
	}
	return row, nil
}

func (s *MemoryStore) Save(ctx context.Context, signals trust.Signals) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[signals.AccountID] = signals
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, accountID)
	return nil
}

func (s *MemoryStore) FindVerifiedWallet(ctx context.Context, address string) (trust.Signals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.rows {
		if row.WalletVerified && row.WalletAddress == address {
			return row, nil
		}
	}
	return trust.Signals{}, sentinel.ErrNotFound
}

func (s *MemoryStore) FindVerifiedSocial(ctx context.Context, providerID, handle string) (trust.Signals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.rows {
		if !row.SocialVerified {
			continue
		}
		if providerID != "" && row.SocialProviderID == providerID {
			return row, nil
		}
		// Accounts verified before the provider id was captured are matched
		// by their stored human handle.
		if handle != "" && row.SocialHandle == handle {
			return row, nil
		}
	}
	return trust.Signals{}, sentinel.ErrNotFound
}
