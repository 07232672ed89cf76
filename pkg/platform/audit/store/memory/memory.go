package memory

import (
	"context"
	"sync"

	"trustgate/pkg/platform/audit"
	id "trustgate/pkg/domain"
)

// InMemoryStore keeps audit events in process memory. Used by unit tests and
// single-node deployments without a broker.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.AccountID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.AccountID][]audit.Event)}
}

func (s *InMemoryStore) Append(ctx context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.AccountID] = append(s.events[event.AccountID], event)
	return nil
}

func (s *InMemoryStore) ListByAccount(ctx context.Context, accountID id.AccountID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, len(s.events[accountID]))
	copy(out, s.events[accountID])
	return out, nil
}
