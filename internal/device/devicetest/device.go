// Package devicetest provides an in-memory signing device for tests. It signs
// with a fixed Ed25519 seed and records how many transactions overlapped.
package devicetest

import (
	"bytes"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glinharesb/vault-signer/internal/device"
	"github.com/glinharesb/vault-signer/internal/hsm"
	"github.com/glinharesb/vault-signer/internal/secret"
)

var ErrDisconnected = errors.New("device disconnected")

var _ device.Transport = (*Device)(nil)

// Device is a fake transport with exactly one device behind it.
type Device struct {
	key *hsm.Ed25519Signer

	// Delay is held inside every transaction to widen race windows.
	Delay time.Duration

	mu         sync.Mutex
	connectErr error
	pubErr     error
	signErr    error
	messages   [][]byte

	connects    atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

// New returns a device holding the Ed25519 key for seed.
func New(seed []byte) (*Device, error) {
	sk, err := secret.FromBytes[secret.Ed25519](seed)
	if err != nil {
		return nil, err
	}
	key, err := hsm.NewEd25519Signer(sk)
	if err != nil {
		return nil, err
	}
	return &Device{key: key}, nil
}

// Seed is the fixed seed used by tests that need a well-known device key.
func Seed() []byte { return bytes.Repeat([]byte{0x1d}, 32) }

// FailConnect makes Connect return err. nil restores normal behavior.
func (d *Device) FailConnect(err error) { d.set(&d.connectErr, err) }

// FailPublicKey makes PublicKey return err. nil restores normal behavior.
func (d *Device) FailPublicKey(err error) { d.set(&d.pubErr, err) }

// FailSign makes Sign return err. nil restores normal behavior.
func (d *Device) FailSign(err error) { d.set(&d.signErr, err) }

func (d *Device) set(field *error, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	*field = err
}

func (d *Device) get(field *error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *field
}

// Connects reports how many sessions were opened.
func (d *Device) Connects() int { return int(d.connects.Load()) }

// MaxConcurrency reports the largest number of overlapping transactions seen.
func (d *Device) MaxConcurrency() int { return int(d.maxInFlight.Load()) }

// Messages returns copies of every message the device signed.
func (d *Device) Messages() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.messages))
	for i, m := range d.messages {
		out[i] = bytes.Clone(m)
	}
	return out
}

func (d *Device) Connect() (device.Session, error) {
	if err := d.get(&d.connectErr); err != nil {
		return nil, err
	}
	d.connects.Add(1)
	return &session{d: d}, nil
}

func (d *Device) enter() func() {
	n := d.inFlight.Add(1)
	for {
		m := d.maxInFlight.Load()
		if n <= m || d.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if d.Delay > 0 {
		time.Sleep(d.Delay)
	}
	return func() { d.inFlight.Add(-1) }
}

type session struct {
	d *Device
}

func (s *session) PublicKey() ([]byte, error) {
	defer s.d.enter()()

	if err := s.d.get(&s.d.pubErr); err != nil {
		return nil, err
	}
	pub, err := s.d.key.PublicKey()
	if err != nil {
		return nil, err
	}
	return pub.Bytes(), nil
}

func (s *session) Sign(msg []byte) ([]byte, error) {
	defer s.d.enter()()

	if err := s.d.get(&s.d.signErr); err != nil {
		return nil, err
	}
	sig, err := s.d.key.Sign(msg)
	if err != nil {
		return nil, err
	}

	s.d.mu.Lock()
	s.d.messages = append(s.d.messages, bytes.Clone(msg))
	s.d.mu.Unlock()

	return sig.Bytes(), nil
}
