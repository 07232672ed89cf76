package artifact

import (
	"context"
	"sync"
	"time"

	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/sentinel"
)

type codeEntry struct {
	accountID id.AccountID
	expiresAt time.Time
	consumed  bool
}

// MemoryStore keeps artifacts in process memory.
type MemoryStore struct {
	mu        sync.Mutex
	codes     map[string]*codeEntry
	botStates map[id.AccountID]string
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		codes:     make(map[string]*codeEntry),
		botStates: make(map[id.AccountID]string),
	}
}

func (s *MemoryStore) SaveLinkCode(ctx context.Context, code string, accountID id.AccountID, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code] = &codeEntry{accountID: accountID, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) ConsumeLinkCode(ctx context.Context, code string) (id.AccountID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.codes[code]
	if !ok || time.Now().After(entry.expiresAt) {
		return id.AccountID{}, sentinel.ErrNotFound
	}
	if entry.consumed {
		return id.AccountID{}, sentinel.ErrAlreadyUsed
	}
	entry.consumed = true
	return entry.accountID, nil
}

func (s *MemoryStore) SaveBotState(ctx context.Context, accountID id.AccountID, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.botStates[accountID] = state
	return nil
}

func (s *MemoryStore) BotState(ctx context.Context, accountID id.AccountID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.botStates[accountID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return state, nil
}

func (s *MemoryStore) PurgeAccount(ctx context.Context, accountID id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, entry := range s.codes {
		if entry.accountID == accountID {
			delete(s.codes, code)
		}
	}
	delete(s.botStates, accountID)
	return nil
}
