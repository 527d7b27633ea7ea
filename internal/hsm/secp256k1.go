package hsm

import (
	"bytes"
	"crypto/sha256"
	"sync"

	dsecp "github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/glinharesb/vault-signer/internal/secret"
	"github.com/glinharesb/vault-signer/internal/signer"
)

var _ Software = (*Secp256k1Signer)(nil)

// Secp256k1Signer signs SHA-256 digests with RFC 6979 nonces. Signatures are
// canonical (low-S) r||s.
type Secp256k1Signer struct {
	mu  sync.RWMutex
	sk  *secret.SecretKey[secret.Secp256k1]
	key *dsecp.PrivateKey
	pub signer.PublicKey
}

// NewSecp256k1Signer takes ownership of sk.
func NewSecp256k1Signer(sk *secret.SecretKey[secret.Secp256k1]) (*Secp256k1Signer, error) {
	// Scalars are not reduced: anything outside [1, N) is rejected, as it is
	// for the NIST curves.
	var scalar dsecp.ModNScalar
	overflow := scalar.SetByteSlice(sk.Bytes())
	if overflow || scalar.IsZero() {
		scalar.Zero()
		sk.Destroy()
		return nil, signer.KeyInvalidf("secp256k1 scalar out of range")
	}
	key := dsecp.NewPrivateKey(&scalar)
	scalar.Zero()

	pub, err := signer.NewPublicKey(signer.AlgorithmECDSASecp256k1, key.PubKey().SerializeCompressed())
	if err != nil {
		key.Zero()
		sk.Destroy()
		return nil, err
	}
	return &Secp256k1Signer{sk: sk, key: key, pub: pub}, nil
}

func (s *Secp256k1Signer) PublicKey() (signer.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return signer.PublicKey{}, errClosed
	}
	return s.pub, nil
}

func (s *Secp256k1Signer) Sign(msg []byte) (signer.Signature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return signer.Signature{}, errClosed
	}
	digest := sha256.Sum256(msg)
	// [v || r || s]
	compact := ecdsa.SignCompact(s.key, digest[:], true)
	return signer.NewSignature(signer.AlgorithmECDSASecp256k1, compact[1:])
}

func (s *Secp256k1Signer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		s.key.Zero()
		s.key = nil
		s.sk.Destroy()
	}
	return nil
}

// verifySecp256k1 recovers the signer from each possible recovery code and
// compares it with pub.
func verifySecp256k1(pub, msg, sig []byte) bool {
	if len(sig) != 64 {
		return false
	}
	digest := sha256.Sum256(msg)

	compact := make([]byte, 65)
	copy(compact[1:], sig)
	for code := byte(0); code < 4; code++ {
		compact[0] = 27 + 4 + code
		recovered, _, err := ecdsa.RecoverCompact(compact, digest[:])
		if err != nil {
			continue
		}
		if bytes.Equal(recovered.SerializeCompressed(), pub) {
			return true
		}
	}
	return false
}
