// Package secret holds fixed-width secret scalars that are zeroed when
// destroyed.
package secret

import (
	"crypto/rand"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"

	"github.com/glinharesb/vault-signer/internal/signer"
)

// SecretKey is a raw secret scalar for curve C. Its buffer is always exactly
// C.ScalarSize() bytes.
//
// Go has no destructors: owners call Destroy when done, usually with defer.
// A key that is garbage collected without Destroy is zeroed by a runtime
// cleanup, but that is a backstop and not a substitute.
type SecretKey[C Curve] struct {
	bytes     []byte
	destroyed atomic.Bool
}

func scalarSize[C Curve]() int {
	var c C
	return c.ScalarSize()
}

func newKey[C Curve](b []byte) *SecretKey[C] {
	buf := make([]byte, len(b))
	copy(buf, b)
	k := &SecretKey[C]{bytes: buf}
	runtime.AddCleanup(k, zero, buf)
	return k
}

// New copies b into a new key. The caller guarantees len(b) is the scalar
// width; New panics otherwise.
func New[C Curve](b []byte) *SecretKey[C] {
	if len(b) != scalarSize[C]() {
		var c C
		panic(fmt.Sprintf("secret: %s key requires %d bytes, got %d", c.Name(), c.ScalarSize(), len(b)))
	}
	return newKey[C](b)
}

// FromBytes copies b into a new key, failing with a KeyInvalid error if b has
// the wrong length.
func FromBytes[C Curve](b []byte) (*SecretKey[C], error) {
	var c C
	if len(b) != c.ScalarSize() {
		return nil, signer.KeyInvalidf("invalid length for %s secret key: %d (expected %d)", c.Name(), len(b), c.ScalarSize())
	}
	return newKey[C](b), nil
}

// Generate creates a key from the system CSPRNG. It panics if the RNG is
// unavailable.
func Generate[C Curve]() *SecretKey[C] {
	k, err := GenerateFromRand[C](rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("secret: RNG failure: %v", err))
	}
	return k
}

// GenerateFromRand fills a new key from r, which must be a CSPRNG.
func GenerateFromRand[C Curve](r io.Reader) (*SecretKey[C], error) {
	buf := make([]byte, scalarSize[C]())
	defer zero(buf)

	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, signer.ProviderError("read randomness", err)
	}
	return newKey[C](buf), nil
}

// Decode reads a text-encoded key. The decoded length must equal the scalar
// width. Intermediate buffers are zeroed on every path.
func Decode[C Curve](encoded []byte, enc Encoding) (*SecretKey[C], error) {
	var c C
	buf := make([]byte, enc.MaxDecodedLen(len(encoded)))
	defer zero(buf)

	n, err := enc.DecodeToSlice(buf, encoded)
	if err != nil {
		return nil, &signer.Error{Kind: signer.KindKeyInvalid, Msg: fmt.Sprintf("decode %s secret key", c.Name()), Err: err}
	}
	if n != c.ScalarSize() {
		return nil, signer.KeyInvalidf("invalid %d-byte %s secret key (expected %d)", n, c.Name(), c.ScalarSize())
	}
	return newKey[C](buf[:n]), nil
}

// Encode returns a new allocation holding the encoded key. The result is not
// zeroed by this package.
func (k *SecretKey[C]) Encode(enc Encoding) []byte {
	return enc.Encode(k.Bytes())
}

// Bytes returns a read-only view of the scalar. Callers must not retain or
// modify it. It panics after Destroy.
func (k *SecretKey[C]) Bytes() []byte {
	if k.destroyed.Load() {
		panic("secret: use of destroyed key")
	}
	return k.bytes
}

// Curve returns the curve tag of the key.
func (k *SecretKey[C]) Curve() C {
	var c C
	return c
}

// Clone returns an independent copy that must be destroyed separately.
func (k *SecretKey[C]) Clone() *SecretKey[C] {
	return newKey[C](k.Bytes())
}

// Destroy overwrites the scalar with zeros. It is safe to call more than
// once.
func (k *SecretKey[C]) Destroy() {
	k.destroyed.Store(true)
	zero(k.bytes)
}

func (k *SecretKey[C]) String() string {
	var c C
	return fmt.Sprintf("SecretKey(%s, redacted)", c.Name())
}

func zero(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}
