package cache

import (
	"context"
	"sync"
)

// InMemoryStore is a map-backed Store safe for concurrent use. Entries are
// lost on restart; a write-through persistent store can warm-load it.
type InMemoryStore struct {
	mu   sync.RWMutex
	orgs map[string]map[string]*Entry
}

// NewInMemoryStore creates an empty in-memory cache store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		orgs: make(map[string]map[string]*Entry),
	}
}

// Get implements Store. The returned entry is a copy.
func (s *InMemoryStore) Get(ctx context.Context, orgID, accountName string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts, ok := s.orgs[orgID]
	if !ok {
		return nil, nil
	}
	entry, ok := accounts[accountName]
	if !ok {
		return nil, nil
	}
	cp := *entry
	return &cp, nil
}

// Put implements Store. The entry is copied so callers cannot mutate the
// stored value afterwards.
func (s *InMemoryStore) Put(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, ok := s.orgs[entry.OrganizationID]
	if !ok {
		accounts = make(map[string]*Entry)
		s.orgs[entry.OrganizationID] = accounts
	}
	cp := *entry
	accounts[entry.AccountName] = &cp
	return nil
}

// InvalidateOrganization implements Store.
func (s *InMemoryStore) InvalidateOrganization(ctx context.Context, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.orgs, orgID)
	return nil
}

// Warm seeds the store with previously persisted entries, skipping any that
// would overwrite a newer in-memory entry.
func (s *InMemoryStore) Warm(entries []*Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		accounts, ok := s.orgs[entry.OrganizationID]
		if !ok {
			accounts = make(map[string]*Entry)
			s.orgs[entry.OrganizationID] = accounts
		}
		if existing, ok := accounts[entry.AccountName]; ok && existing.CategorizedAt.After(entry.CategorizedAt) {
			continue
		}
		cp := *entry
		accounts[entry.AccountName] = &cp
	}
}

var _ Store = (*InMemoryStore)(nil)
