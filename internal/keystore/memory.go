package keystore

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory key store backed by sync.RWMutex.
// Entries are copied on the way in and out.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]*KeyEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys: make(map[string]*KeyEntry),
	}
}

func (m *MemoryStore) Put(entry *KeyEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.keys[entry.ID]; exists {
		return ErrKeyExists
	}
	m.keys[entry.ID] = entry.clone()
	return nil
}

func (m *MemoryStore) Get(id string) (*KeyEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.keys[id]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return entry.clone(), nil
}

// List returns matching entries ordered by creation time. A zero filter
// matches every status.
func (m *MemoryStore) List(filter KeyStatus) ([]*KeyEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*KeyEntry
	for _, entry := range m.keys {
		if filter == 0 || entry.Status == filter {
			result = append(result, entry.clone())
		}
	}
	sortEntries(result)
	return result, nil
}

func (m *MemoryStore) UpdateStatus(id string, status KeyStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.keys[id]
	if !ok {
		return ErrKeyNotFound
	}
	entry.Status = status
	if status == StatusRotated {
		entry.RotatedAt = time.Now()
	}
	return nil
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[id]; !ok {
		return ErrKeyNotFound
	}
	delete(m.keys, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func sortEntries(entries []*KeyEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}
