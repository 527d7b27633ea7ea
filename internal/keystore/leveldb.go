package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const keyPrefix = "key_"

// LevelDBStore keeps one JSON record per key under keyPrefix.
type LevelDBStore struct {
	mu sync.Mutex // serializes read-modify-write
	db *leveldb.DB
}

func NewLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		BlockCacheCapacity: 4 * opt.MiB,
		WriteBuffer:        4 * opt.MiB,
	})
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return &LevelDBStore{db: db}, nil
}

func dbKey(id string) []byte { return []byte(keyPrefix + id) }

func (s *LevelDBStore) Put(entry *KeyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.db.Has(dbKey(entry.ID), nil)
	if err != nil {
		return fmt.Errorf("leveldb has: %w", err)
	}
	if exists {
		return ErrKeyExists
	}
	return s.write(entry)
}

func (s *LevelDBStore) write(entry *KeyEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := s.db.Put(dbKey(entry.ID), data, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("leveldb put: %w", err)
	}
	return nil
}

func (s *LevelDBStore) Get(id string) (*KeyEntry, error) {
	data, err := s.db.Get(dbKey(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get: %w", err)
	}

	var entry KeyEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal entry %s: %w", id, err)
	}
	return &entry, nil
}

func (s *LevelDBStore) List(filter KeyStatus) ([]*KeyEntry, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(keyPrefix)), nil)
	defer iter.Release()

	var result []*KeyEntry
	for iter.Next() {
		var entry KeyEntry
		if err := json.Unmarshal(iter.Value(), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		if filter == 0 || entry.Status == filter {
			result = append(result, &entry)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("leveldb iterate: %w", err)
	}
	sortEntries(result)
	return result, nil
}

func (s *LevelDBStore) UpdateStatus(id string, status KeyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.Get(id)
	if err != nil {
		return err
	}
	entry.Status = status
	if status == StatusRotated {
		entry.RotatedAt = time.Now()
	}
	return s.write(entry)
}

func (s *LevelDBStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.Get(id); err != nil {
		return err
	}
	if err := s.db.Delete(dbKey(id), &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("leveldb delete: %w", err)
	}
	return nil
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
