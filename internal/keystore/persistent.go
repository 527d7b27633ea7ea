package keystore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// PersistentStore wraps MemoryStore and persists sealed entries to a JSON
// file using atomic rename.
type PersistentStore struct {
	*MemoryStore
	path string
}

// NewPersistentStore creates a store that persists to the given file path.
// If the file exists, it loads keys from it on startup (crash recovery).
func NewPersistentStore(path string, log *zap.Logger) (*PersistentStore, error) {
	ps := &PersistentStore{
		MemoryStore: NewMemoryStore(),
		path:        path,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := ps.load(); err != nil {
			return nil, fmt.Errorf("load existing data: %w", err)
		}
		log.Info("persistent store loaded",
			zap.String("path", path),
			zap.Int("keys", len(ps.keys)),
		)
	}

	return ps, nil
}

// Put, UpdateStatus and Delete undo the in-memory change when the file
// cannot be written, so memory never runs ahead of disk.
func (ps *PersistentStore) Put(entry *KeyEntry) error {
	if err := ps.MemoryStore.Put(entry); err != nil {
		return err
	}
	if err := ps.save(); err != nil {
		ps.restore(entry.ID, nil)
		return err
	}
	return nil
}

func (ps *PersistentStore) UpdateStatus(id string, status KeyStatus) error {
	prev, err := ps.MemoryStore.Get(id)
	if err != nil {
		return err
	}
	if err := ps.MemoryStore.UpdateStatus(id, status); err != nil {
		return err
	}
	if err := ps.save(); err != nil {
		ps.restore(id, prev)
		return err
	}
	return nil
}

func (ps *PersistentStore) Delete(id string) error {
	prev, err := ps.MemoryStore.Get(id)
	if err != nil {
		return err
	}
	if err := ps.MemoryStore.Delete(id); err != nil {
		return err
	}
	if err := ps.save(); err != nil {
		ps.restore(id, prev)
		return err
	}
	return nil
}

// restore puts back the entry id held before a failed save; nil removes it.
func (ps *PersistentStore) restore(id string, prev *KeyEntry) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if prev == nil {
		delete(ps.keys, id)
		return
	}
	ps.keys[id] = prev
}

// save writes all keys to a temp file then atomically renames it.
func (ps *PersistentStore) save() error {
	ps.mu.RLock()
	keys := make([]*KeyEntry, 0, len(ps.keys))
	for _, e := range ps.keys {
		keys = append(keys, e)
	}
	sortEntries(keys)
	data, err := json.MarshalIndent(keys, "", "  ")
	ps.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	tmpPath := ps.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, ps.path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}

	return nil
}

// load reads keys from the persisted file.
func (ps *PersistentStore) load() error {
	data, err := os.ReadFile(ps.path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	var keys []*KeyEntry
	if err := json.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("unmarshal json: %w", err)
	}

	for _, e := range keys {
		ps.keys[e.ID] = e
	}
	return nil
}
