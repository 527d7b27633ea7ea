package hsm

import (
	stdcrypto "crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"sync"

	"github.com/glinharesb/vault-signer/internal/crypto"
	"github.com/glinharesb/vault-signer/internal/secret"
	"github.com/glinharesb/vault-signer/internal/signer"
)

var (
	_ Software = (*Ed25519Signer)(nil)
	_ Software = (*ECDSASigner[secret.P256])(nil)
	_ Software = (*ECDSASigner[secret.P384])(nil)
)

// Ed25519Signer signs with an Ed25519 seed. Messages are signed as-is
// (PureEdDSA).
type Ed25519Signer struct {
	mu   sync.RWMutex
	seed *secret.SecretKey[secret.Ed25519]
	pub  signer.PublicKey
}

// NewEd25519Signer takes ownership of seed.
func NewEd25519Signer(seed *secret.SecretKey[secret.Ed25519]) (*Ed25519Signer, error) {
	priv := ed25519.NewKeyFromSeed(seed.Bytes())
	defer clear(priv)

	pub, err := signer.NewPublicKey(signer.AlgorithmEd25519, priv.Public().(ed25519.PublicKey))
	if err != nil {
		seed.Destroy()
		return nil, err
	}
	return &Ed25519Signer{seed: seed, pub: pub}, nil
}

func (s *Ed25519Signer) PublicKey() (signer.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.seed == nil {
		return signer.PublicKey{}, errClosed
	}
	return s.pub, nil
}

func (s *Ed25519Signer) Sign(msg []byte) (signer.Signature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.seed == nil {
		return signer.Signature{}, errClosed
	}
	priv := ed25519.NewKeyFromSeed(s.seed.Bytes())
	defer clear(priv)

	return signer.NewSignature(signer.AlgorithmEd25519, ed25519.Sign(priv, msg))
}

func (s *Ed25519Signer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seed != nil {
		s.seed.Destroy()
		s.seed = nil
	}
	return nil
}

type nistCurve interface {
	secret.Curve
	secret.P256 | secret.P384
}

// ECDSASigner signs over a NIST curve. The message is hashed with the
// curve's matching SHA-2 function and the signature is r||s.
//
// The parsed private key is kept for the signer's lifetime. Close wipes the
// scalar and the big.Int words; copies held inside the Go crypto runtime are
// outside our reach.
type ECDSASigner[C nistCurve] struct {
	mu   sync.RWMutex
	sk   *secret.SecretKey[C]
	key  *ecdsa.PrivateKey
	hash stdcrypto.Hash
	pub  signer.PublicKey
}

// NewP256Signer takes ownership of sk. Messages are hashed with SHA-256.
func NewP256Signer(sk *secret.SecretKey[secret.P256]) (*ECDSASigner[secret.P256], error) {
	return newECDSASigner(sk, elliptic.P256(), stdcrypto.SHA256)
}

// NewP384Signer takes ownership of sk. Messages are hashed with SHA-384.
func NewP384Signer(sk *secret.SecretKey[secret.P384]) (*ECDSASigner[secret.P384], error) {
	return newECDSASigner(sk, elliptic.P384(), stdcrypto.SHA384)
}

func newECDSASigner[C nistCurve](sk *secret.SecretKey[C], curve elliptic.Curve, h stdcrypto.Hash) (*ECDSASigner[C], error) {
	alg := sk.Curve().Algorithm()

	key, err := crypto.ECDSAFromScalar(curve, sk.Bytes())
	if err != nil {
		sk.Destroy()
		return nil, signer.KeyInvalidf("%s scalar out of range: %v", sk.Curve().Name(), err)
	}
	pub, err := signer.NewPublicKey(alg, crypto.CompressPublicKey(&key.PublicKey))
	if err != nil {
		crypto.WipeECDSA(key)
		sk.Destroy()
		return nil, err
	}
	return &ECDSASigner[C]{sk: sk, key: key, hash: h, pub: pub}, nil
}

func (s *ECDSASigner[C]) PublicKey() (signer.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return signer.PublicKey{}, errClosed
	}
	return s.pub, nil
}

func (s *ECDSASigner[C]) Sign(msg []byte) (signer.Signature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.key == nil {
		return signer.Signature{}, errClosed
	}
	sig, err := crypto.SignECDSA(s.key, s.hash, msg)
	if err != nil {
		return signer.Signature{}, signer.ProviderError("ecdsa sign", err)
	}
	return signer.NewSignature(s.pub.Algorithm(), sig)
}

func (s *ECDSASigner[C]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		crypto.WipeECDSA(s.key)
		s.key = nil
		s.sk.Destroy()
	}
	return nil
}

// Verify checks sig over msg against pub for every supported algorithm.
func Verify(pub signer.PublicKey, msg []byte, sig signer.Signature) bool {
	if pub.Algorithm() != sig.Algorithm() {
		return false
	}
	switch pub.Algorithm() {
	case signer.AlgorithmEd25519:
		return ed25519.Verify(pub.Bytes(), msg, sig.Bytes())
	case signer.AlgorithmECDSAP256:
		return crypto.VerifyECDSA(elliptic.P256(), stdcrypto.SHA256, pub.Bytes(), msg, sig.Bytes())
	case signer.AlgorithmECDSAP384:
		return crypto.VerifyECDSA(elliptic.P384(), stdcrypto.SHA384, pub.Bytes(), msg, sig.Bytes())
	case signer.AlgorithmECDSASecp256k1:
		return verifySecp256k1(pub.Bytes(), msg, sig.Bytes())
	default:
		return false
	}
}
