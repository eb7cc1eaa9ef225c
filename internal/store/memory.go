package store

import (
	"context"
	"sync"

	"gitlab.com/dirk.krummacker/central-contacts/pkg/model"
)

// MemoryStore keeps contacts in memory for the lifetime of the process. Ids start at 1.
type MemoryStore struct {
	mu       sync.RWMutex
	lastID   int64
	contacts []model.Contact
}

var _ ContactStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contacts: make([]model.Contact, 0)}
}

func (s *MemoryStore) ListAll(_ context.Context) ([]model.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	contacts := make([]model.Contact, len(s.contacts))
	copy(contacts, s.contacts)
	return contacts, nil
}

func (s *MemoryStore) Add(_ context.Context, candidate model.Contact) (model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	candidate.Id = s.lastID
	s.contacts = append(s.contacts, candidate)
	return candidate, nil
}
