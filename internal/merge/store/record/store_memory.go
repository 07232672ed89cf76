// Package record implements the generic owned-record store the merge engine
// migrates domain entities through.
package record

import (
	"context"
	"sync"

	id "trustgate/pkg/domain"
)

type row struct {
	owner id.AccountID
	key   string
}

// MemoryStore keeps owned records in process memory, one bag of (owner, key)
// rows per entity. Rows for BulkReassign entities carry opaque keys that are
// never compared across accounts.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string][]row
}

func NewMemory() *MemoryStore {
	return &MemoryStore{rows: make(map[string][]row)}
}

// Insert seeds a record; tests and collaborating services use it.
func (s *MemoryStore) Insert(ctx context.Context, entity string, owner id.AccountID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[entity] = append(s.rows[entity], row{owner: owner, key: key})
	return nil
}

func (s *MemoryStore) ReassignOwner(ctx context.Context, entity string, from, to id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.rows[entity]
	for i := range rows {
		if rows[i].owner == from {
			rows[i].owner = to
		}
	}
	return nil
}

func (s *MemoryStore) ListKeys(ctx context.Context, entity string, owner id.AccountID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for _, r := range s.rows[entity] {
		if r.owner == owner {
			keys = append(keys, r.key)
		}
	}
	return keys, nil
}

func (s *MemoryStore) HasKey(ctx context.Context, entity string, owner id.AccountID, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows[entity] {
		if r.owner == owner && r.key == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ReassignKey(ctx context.Context, entity string, from id.AccountID, key string, to id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.rows[entity]
	for i := range rows {
		if rows[i].owner == from && rows[i].key == key {
			rows[i].owner = to
		}
	}
	return nil
}

func (s *MemoryStore) DeleteKey(ctx context.Context, entity string, owner id.AccountID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.rows[entity]
	kept := rows[:0]
	for _, r := range rows {
		if r.owner == owner && r.key == key {
			continue
		}
		kept = append(kept, r)
	}
	s.rows[entity] = kept
	return nil
}
