// Package ledger adapts a Tendermint validator app running on a hardware
// device into a signer.Provider producing Ed25519 signatures.
package ledger

import (
	"io"
	"sync"

	"github.com/glinharesb/vault-signer/internal/device"
	"github.com/glinharesb/vault-signer/internal/signer"
)

var _ signer.Provider = (*Signer)(nil)

// Signer owns one device session. Every device transaction holds mu for its
// whole duration, so at most one is in flight; callers queue on the lock in
// arrival order. There is no timeout: a device that never answers blocks its
// caller and everyone queued behind it.
type Signer struct {
	mu      sync.Mutex
	session device.Session
}

// Connect opens a session through t and asks the device for its public key
// before returning. A session that cannot produce a key is closed (when it
// supports closing) and never handed out.
func Connect(t device.Transport) (*Signer, error) {
	session, err := t.Connect()
	if err != nil {
		return nil, signer.ProviderError("connect to device", err)
	}

	s := &Signer{session: session}
	if _, err := s.PublicKey(); err != nil {
		if c, ok := session.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}
	return s, nil
}

// withSession runs fn with exclusive access to the device session.
func (s *Signer) withSession(fn func(device.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return signer.ProviderError("device session closed", nil)
	}
	return fn(s.session)
}

// PublicKey asks the device for its validator key.
func (s *Signer) PublicKey() (signer.PublicKey, error) {
	var pk signer.PublicKey
	err := s.withSession(func(session device.Session) error {
		raw, err := session.PublicKey()
		if err != nil {
			return signer.ProviderError("device public key", err)
		}
		pk, err = signer.NewPublicKey(signer.AlgorithmEd25519, raw)
		if err != nil {
			return signer.ProviderError("malformed device public key", err)
		}
		return nil
	})
	return pk, err
}

// Sign sends msg, typically an encoded vote record, to the device unchanged.
func (s *Signer) Sign(msg []byte) (signer.Signature, error) {
	var sig signer.Signature
	err := s.withSession(func(session device.Session) error {
		raw, err := session.Sign(msg)
		if err != nil {
			return signer.ProviderError("device sign", err)
		}
		sig, err = signer.NewSignature(signer.AlgorithmEd25519, raw)
		if err != nil {
			return signer.ProviderError("malformed device signature", err)
		}
		return nil
	})
	return sig, err
}

// Close releases the session for process teardown. It waits for an in-flight
// transaction to finish.
func (s *Signer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.session
	s.session = nil
	if c, ok := session.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
