package secret

import "github.com/glinharesb/vault-signer/internal/signer"

// Curve is a type-level tag fixing the scalar width of a SecretKey.
type Curve interface {
	Name() string
	ScalarSize() int
	Algorithm() signer.Algorithm
}

// Ed25519 secret keys are 32-byte seeds.
type Ed25519 struct{}

func (Ed25519) Name() string { return "Ed25519" }
func (Ed25519) ScalarSize() int { return 32 }
func (Ed25519) Algorithm() signer.Algorithm { return signer.AlgorithmEd25519 }

// P256 is NIST P-256.
type P256 struct{}

func (P256) Name() string { return "NIST P-256" }
func (P256) ScalarSize() int { return 32 }
func (P256) Algorithm() signer.Algorithm { return signer.AlgorithmECDSAP256 }

// P384 is NIST P-384.
type P384 struct{}

func (P384) Name() string { return "NIST P-384" }
func (P384) ScalarSize() int { return 48 }
func (P384) Algorithm() signer.Algorithm { return signer.AlgorithmECDSAP384 }

// Secp256k1 is the Koblitz curve used by Bitcoin and Cosmos chains.
type Secp256k1 struct{}

func (Secp256k1) Name() string { return "secp256k1" }
func (Secp256k1) ScalarSize() int { return 32 }
func (Secp256k1) Algorithm() signer.Algorithm { return signer.AlgorithmECDSASecp256k1 }
