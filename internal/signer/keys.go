package signer

import (
	"bytes"
	"encoding/hex"
)

// Algorithm identifies the signature scheme of a key or signature.
type Algorithm int

const (
	AlgorithmEd25519 Algorithm = iota + 1
	AlgorithmECDSAP256
	AlgorithmECDSAP384
	AlgorithmECDSASecp256k1
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmEd25519:
		return "ED25519"
	case AlgorithmECDSAP256:
		return "ECDSA_P256"
	case AlgorithmECDSAP384:
		return "ECDSA_P384"
	case AlgorithmECDSASecp256k1:
		return "ECDSA_SECP256K1"
	default:
		return "UNKNOWN"
	}
}

// ParseAlgorithm is the inverse of Algorithm.String.
func ParseAlgorithm(s string) (Algorithm, error) {
	for a := AlgorithmEd25519; a <= AlgorithmECDSASecp256k1; a++ {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, KeyInvalidf("unknown algorithm %q", s)
}

// PublicKeySize is the encoded public key length. ECDSA keys are SEC1
// compressed points.
func (a Algorithm) PublicKeySize() int {
	switch a {
	case AlgorithmEd25519:
		return 32
	case AlgorithmECDSAP256, AlgorithmECDSASecp256k1:
		return 33
	case AlgorithmECDSAP384:
		return 49
	default:
		return 0
	}
}

// SignatureSize is the fixed signature length. ECDSA signatures are r||s.
func (a Algorithm) SignatureSize() int {
	switch a {
	case AlgorithmEd25519, AlgorithmECDSAP256, AlgorithmECDSASecp256k1:
		return 64
	case AlgorithmECDSAP384:
		return 96
	default:
		return 0
	}
}

// PublicKey is an algorithm-tagged public key.
type PublicKey struct {
	alg   Algorithm
	bytes []byte
}

// NewPublicKey validates b against alg and copies it.
func NewPublicKey(alg Algorithm, b []byte) (PublicKey, error) {
	want := alg.PublicKeySize()
	if want == 0 {
		return PublicKey{}, KeyInvalidf("unsupported algorithm %v", alg)
	}
	if len(b) != want {
		return PublicKey{}, KeyInvalidf("invalid length for %v public key: %d (expected %d)", alg, len(b), want)
	}
	return PublicKey{alg: alg, bytes: bytes.Clone(b)}, nil
}

func (p PublicKey) Algorithm() Algorithm { return p.alg }

// Bytes returns a copy of the encoded key.
func (p PublicKey) Bytes() []byte { return bytes.Clone(p.bytes) }

func (p PublicKey) Equal(o PublicKey) bool {
	return p.alg == o.alg && bytes.Equal(p.bytes, o.bytes)
}

func (p PublicKey) String() string {
	return p.alg.String() + ":" + hex.EncodeToString(p.bytes)
}

// Signature is an algorithm-tagged fixed-size signature.
type Signature struct {
	alg   Algorithm
	bytes []byte
}

// NewSignature validates b against alg and copies it.
func NewSignature(alg Algorithm, b []byte) (Signature, error) {
	want := alg.SignatureSize()
	if want == 0 {
		return Signature{}, KeyInvalidf("unsupported algorithm %v", alg)
	}
	if len(b) != want {
		return Signature{}, KeyInvalidf("invalid length for %v signature: %d (expected %d)", alg, len(b), want)
	}
	return Signature{alg: alg, bytes: bytes.Clone(b)}, nil
}

func (s Signature) Algorithm() Algorithm { return s.alg }

// Bytes returns a copy of the signature.
func (s Signature) Bytes() []byte { return bytes.Clone(s.bytes) }

func (s Signature) Equal(o Signature) bool {
	return s.alg == o.alg && bytes.Equal(s.bytes, o.bytes)
}
