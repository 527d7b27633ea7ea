package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
	"math/big"
)

// ECDSAFromScalar builds a private key from a raw big-endian scalar.
func ECDSAFromScalar(curve elliptic.Curve, scalar []byte) (*ecdsa.PrivateKey, error) {
	key, err := ecdsa.ParseRawPrivateKey(curve, scalar)
	if err != nil {
		return nil, fmt.Errorf("parse ecdsa scalar: %w", err)
	}
	return key, nil
}

// WipeECDSA clears the words backing the private scalar.
func WipeECDSA(key *ecdsa.PrivateKey) {
	if key == nil || key.D == nil {
		return
	}
	clear(key.D.Bits())
	key.D.SetInt64(0)
}

// SignECDSA hashes data with h and returns the fixed-width r||s signature.
func SignECDSA(key *ecdsa.PrivateKey, h crypto.Hash, data []byte) ([]byte, error) {
	hasher := h.New()
	hasher.Write(data)
	digest := hasher.Sum(nil)

	r, s, err := ecdsa.Sign(rand.Reader, key, digest)
	if err != nil {
		return nil, fmt.Errorf("ecdsa sign: %w", err)
	}

	size := (key.Curve.Params().BitSize + 7) / 8
	sig := make([]byte, 2*size)
	r.FillBytes(sig[:size])
	s.FillBytes(sig[size:])
	return sig, nil
}

// VerifyECDSA checks an r||s signature over data against a SEC1 compressed
// public key.
func VerifyECDSA(curve elliptic.Curve, h crypto.Hash, compressed, data, sig []byte) bool {
	x, y := elliptic.UnmarshalCompressed(curve, compressed)
	if x == nil {
		return false
	}
	size := (curve.Params().BitSize + 7) / 8
	if len(sig) != 2*size {
		return false
	}

	hasher := h.New()
	hasher.Write(data)
	digest := hasher.Sum(nil)

	pub := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
	r := new(big.Int).SetBytes(sig[:size])
	s := new(big.Int).SetBytes(sig[size:])
	return ecdsa.Verify(pub, digest, r, s)
}

// CompressPublicKey encodes pub as a SEC1 compressed point.
func CompressPublicKey(pub *ecdsa.PublicKey) []byte {
	return elliptic.MarshalCompressed(pub.Curve, pub.X, pub.Y)
}
