package keystore

import (
	"errors"
	"time"

	"github.com/glinharesb/vault-signer/internal/signer"
)

var (
	ErrKeyNotFound = errors.New("key not found")
	ErrKeyInactive = errors.New("key is not active")
	ErrKeyExists   = errors.New("key already exists")
)

// KeyStatus represents the lifecycle state of a key.
type KeyStatus int

const (
	StatusActive KeyStatus = iota + 1
	StatusRotated
	StatusDeactivated
)

func (s KeyStatus) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusRotated:
		return "ROTATED"
	case StatusDeactivated:
		return "DEACTIVATED"
	default:
		return "UNKNOWN"
	}
}

// KeyEntry holds a sealed secret key and its metadata. The plaintext scalar
// never lives in a store.
type KeyEntry struct {
	ID        string            `json:"id"`
	Algorithm signer.Algorithm  `json:"algorithm"`
	Status    KeyStatus         `json:"status"`
	Sealed    []byte            `json:"sealed"`
	PublicKey []byte            `json:"public_key"`
	CreatedAt time.Time         `json:"created_at"`
	RotatedAt time.Time         `json:"rotated_at,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
}

func (e *KeyEntry) clone() *KeyEntry {
	c := *e
	c.Sealed = append([]byte(nil), e.Sealed...)
	c.PublicKey = append([]byte(nil), e.PublicKey...)
	if e.Labels != nil {
		c.Labels = make(map[string]string, len(e.Labels))
		for k, v := range e.Labels {
			c.Labels[k] = v
		}
	}
	return &c
}

// Store defines the key storage interface.
type Store interface {
	Put(entry *KeyEntry) error
	Get(id string) (*KeyEntry, error)
	List(filter KeyStatus) ([]*KeyEntry, error)
	UpdateStatus(id string, status KeyStatus) error
	Delete(id string) error
	Close() error
}
