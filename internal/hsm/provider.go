// Package hsm implements in-process signing providers over secret.SecretKey.
// A hardware module plugs in through the ledger package instead.
package hsm

import (
	"io"

	"github.com/glinharesb/vault-signer/internal/secret"
	"github.com/glinharesb/vault-signer/internal/signer"
)

// Software is a signer.Provider that owns a secret key. Close destroys the
// key; later calls fail with a provider error.
type Software interface {
	signer.Provider
	io.Closer
}

var errClosed = signer.ProviderError("software signer closed", nil)

// FromScalar builds a software provider for alg from raw scalar bytes. The
// scalar is copied; the caller still owns raw.
func FromScalar(alg signer.Algorithm, raw []byte) (Software, error) {
	switch alg {
	case signer.AlgorithmEd25519:
		sk, err := secret.FromBytes[secret.Ed25519](raw)
		if err != nil {
			return nil, err
		}
		return NewEd25519Signer(sk)
	case signer.AlgorithmECDSAP256:
		sk, err := secret.FromBytes[secret.P256](raw)
		if err != nil {
			return nil, err
		}
		return NewP256Signer(sk)
	case signer.AlgorithmECDSAP384:
		sk, err := secret.FromBytes[secret.P384](raw)
		if err != nil {
			return nil, err
		}
		return NewP384Signer(sk)
	case signer.AlgorithmECDSASecp256k1:
		sk, err := secret.FromBytes[secret.Secp256k1](raw)
		if err != nil {
			return nil, err
		}
		return NewSecp256k1Signer(sk)
	default:
		return nil, signer.KeyInvalidf("unsupported algorithm %v", alg)
	}
}

// GenerateScalar returns fresh random scalar bytes for alg. The caller must
// zero the result.
func GenerateScalar(alg signer.Algorithm) ([]byte, error) {
	switch alg {
	case signer.AlgorithmEd25519:
		return generate[secret.Ed25519](), nil
	case signer.AlgorithmECDSAP256:
		return generate[secret.P256](), nil
	case signer.AlgorithmECDSAP384:
		return generate[secret.P384](), nil
	case signer.AlgorithmECDSASecp256k1:
		return generate[secret.Secp256k1](), nil
	default:
		return nil, signer.KeyInvalidf("unsupported algorithm %v", alg)
	}
}

func generate[C secret.Curve]() []byte {
	sk := secret.Generate[C]()
	defer sk.Destroy()
	out := make([]byte, len(sk.Bytes()))
	copy(out, sk.Bytes())
	return out
}
