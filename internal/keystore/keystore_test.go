package keystore

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glinharesb/vault-signer/internal/signer"
)

func makeEntry(id string) *KeyEntry {
	return &KeyEntry{
		ID:        id,
		Algorithm: signer.AlgorithmEd25519,
		Status:    StatusActive,
		Sealed:    []byte("sealed-" + id),
		PublicKey: make([]byte, 32),
		CreatedAt: time.Now(),
		Labels:    map[string]string{"env": "test"},
	}
}

// stores runs a test against every backend.
func stores(t *testing.T, fn func(t *testing.T, store Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("json", func(t *testing.T) {
		ps, err := NewPersistentStore(filepath.Join(t.TempDir(), "keys.json"), zap.NewNop())
		require.NoError(t, err)
		fn(t, ps)
	})
	t.Run("leveldb", func(t *testing.T) {
		db, err := NewLevelDBStore(filepath.Join(t.TempDir(), "keys"))
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		fn(t, db)
	})
}

func TestPutAndGet(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		require := require.New(t)

		require.NoError(store.Put(makeEntry("key-1")))

		got, err := store.Get("key-1")
		require.NoError(err)
		require.Equal("key-1", got.ID)
		require.Equal([]byte("sealed-key-1"), got.Sealed)
		require.Equal(signer.AlgorithmEd25519, got.Algorithm)
	})
}

func TestPutDuplicate(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		require.NoError(t, store.Put(makeEntry("key-1")))
		require.ErrorIs(t, store.Put(makeEntry("key-1")), ErrKeyExists)
	})
}

func TestGetNotFound(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		_, err := store.Get("nonexistent")
		require.ErrorIs(t, err, ErrKeyNotFound)
	})
}

func TestListFiltered(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		require := require.New(t)

		for i := range 5 {
			e := makeEntry(fmt.Sprintf("key-%d", i))
			if i%2 == 0 {
				e.Status = StatusDeactivated
			}
			require.NoError(store.Put(e))
		}

		all, err := store.List(0)
		require.NoError(err)
		require.Len(all, 5)

		active, err := store.List(StatusActive)
		require.NoError(err)
		require.Len(active, 2)

		deactivated, err := store.List(StatusDeactivated)
		require.NoError(err)
		require.Len(deactivated, 3)
	})
}

func TestUpdateStatus(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		require := require.New(t)

		require.NoError(store.Put(makeEntry("key-1")))
		require.NoError(store.UpdateStatus("key-1", StatusRotated))

		got, err := store.Get("key-1")
		require.NoError(err)
		require.Equal(StatusRotated, got.Status)
		require.False(got.RotatedAt.IsZero())

		require.ErrorIs(store.UpdateStatus("nonexistent", StatusRotated), ErrKeyNotFound)
	})
}

func TestDelete(t *testing.T) {
	stores(t, func(t *testing.T, store Store) {
		require := require.New(t)

		require.NoError(store.Put(makeEntry("key-1")))
		require.NoError(store.Delete("key-1"))

		_, err := store.Get("key-1")
		require.ErrorIs(err, ErrKeyNotFound)
		require.ErrorIs(store.Delete("key-1"), ErrKeyNotFound)
	})
}

func TestMemoryStoreCopies(t *testing.T) {
	require := require.New(t)
	store := NewMemoryStore()

	e := makeEntry("key-1")
	require.NoError(store.Put(e))
	e.Sealed[0] = 'X'

	got, err := store.Get("key-1")
	require.NoError(err)
	require.Equal(byte('s'), got.Sealed[0])

	got.Labels["env"] = "prod"
	again, _ := store.Get("key-1")
	require.Equal("test", again.Labels["env"])
}

func TestConcurrentReadWrite(t *testing.T) {
	store := NewMemoryStore()
	const numKeys = 50
	const numReaders = 100

	for i := range numKeys / 2 {
		store.Put(makeEntry(fmt.Sprintf("pre-%d", i)))
	}

	var wg sync.WaitGroup

	for i := range numKeys {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Put(makeEntry(fmt.Sprintf("w-%d", i)))
		}(i)
	}

	for range numReaders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.List(0)
		}()
	}

	for i := range numKeys / 2 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.UpdateStatus(fmt.Sprintf("pre-%d", i), StatusRotated)
		}(i)
	}

	wg.Wait()

	for i := range numKeys / 2 {
		got, err := store.Get(fmt.Sprintf("pre-%d", i))
		require.NoError(t, err)
		require.Equal(t, StatusRotated, got.Status)
	}
}
