package link

import (
	"context"
	"sync"

	"trustgate/internal/identity/models"
	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
)

type linkKey struct {
	kind       id.ProviderKind
	providerID string
}

// MemoryStore keeps identity links in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	links map[linkKey]models.IdentityLink
}

func NewMemory() *MemoryStore {
	return &MemoryStore{links: make(map[linkKey]models.IdentityLink)}
}

func (s *MemoryStore) Find(ctx context.Context, kind id.ProviderKind, providerID string) (models.IdentityLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.links[linkKey{kind, providerID}]
	if !ok {
		return models.IdentityLink{}, sentinel.ErrNotFound
	}
	return l, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, link models.IdentityLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := linkKey{link.ProviderKind, link.ProviderID}
	if existing, ok := s.links[key]; ok {
		// Ownership never changes through upsert.
		link.AccountID = existing.AccountID
		link.CreatedAt = existing.CreatedAt
	}
	s.links[key] = link
	return nil
}

func (s *MemoryStore) ListByAccount(ctx context.Context, accountID id.AccountID) ([]models.IdentityLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.IdentityLink
	for _, l := range s.links {
		if l.AccountID == accountID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *MemoryStore) FindSocialByHandle(ctx context.Context, handle string) (models.IdentityLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.links {
		if l.ProviderKind == id.ProviderSocial && l.Handle == handle {
			return l, nil
		}
	}
	return models.IdentityLink{}, sentinel.ErrNotFound
}

func (s *MemoryStore) ReassignAccount(ctx context.Context, from, to id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, l := range s.links {
		if l.AccountID == from {
			l.AccountID = to
			s.links[key] = l
		}
	}
	return nil
}
