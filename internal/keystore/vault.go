package keystore

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/glinharesb/vault-signer/internal/crypto"
	"github.com/glinharesb/vault-signer/internal/hsm"
	"github.com/glinharesb/vault-signer/internal/secret"
	"github.com/glinharesb/vault-signer/internal/signer"
)

// Vault seals secret keys under a master key and hands them out as software
// providers. Each entry is sealed with its own HKDF-derived wrapping key and
// the ciphertext is bound to the entry's ID and algorithm.
type Vault struct {
	store  Store
	master []byte
}

// NewVault copies masterKey, which must be 32 bytes.
func NewVault(store Store, masterKey []byte) (*Vault, error) {
	if len(masterKey) != 32 {
		return nil, signer.KeyInvalidf("invalid length for master key: %d (expected 32)", len(masterKey))
	}
	return &Vault{store: store, master: append([]byte(nil), masterKey...)}, nil
}

// Store returns the backing store.
func (v *Vault) Store() Store { return v.store }

// Generate creates and stores a new key for alg.
func (v *Vault) Generate(alg signer.Algorithm, labels map[string]string) (*KeyEntry, error) {
	raw, err := hsm.GenerateScalar(alg)
	if err != nil {
		return nil, err
	}
	defer clear(raw)

	return v.put(uuid.NewString(), alg, raw, labels)
}

// Import stores a text-encoded secret key for alg.
func (v *Vault) Import(alg signer.Algorithm, encoded []byte, enc secret.Encoding, labels map[string]string) (*KeyEntry, error) {
	raw, err := decodeScalar(alg, encoded, enc)
	if err != nil {
		return nil, err
	}
	defer clear(raw)

	return v.put(uuid.NewString(), alg, raw, labels)
}

func (v *Vault) put(id string, alg signer.Algorithm, raw []byte, labels map[string]string) (*KeyEntry, error) {
	p, err := hsm.FromScalar(alg, raw)
	if err != nil {
		return nil, err
	}
	pub, err := p.PublicKey()
	p.Close()
	if err != nil {
		return nil, err
	}

	sealed, err := v.seal(id, alg, raw)
	if err != nil {
		return nil, err
	}

	entry := &KeyEntry{
		ID:        id,
		Algorithm: alg,
		Status:    StatusActive,
		Sealed:    sealed,
		PublicKey: pub.Bytes(),
		CreatedAt: time.Now(),
		Labels:    labels,
	}
	if err := v.store.Put(entry); err != nil {
		return nil, fmt.Errorf("store key: %w", err)
	}
	return entry, nil
}

// PublicKey returns the stored public key without unsealing the secret.
func (v *Vault) PublicKey(id string) (signer.PublicKey, error) {
	entry, err := v.store.Get(id)
	if err != nil {
		return signer.PublicKey{}, err
	}
	return signer.NewPublicKey(entry.Algorithm, entry.PublicKey)
}

// Open unseals an active key into a software provider. The caller closes it.
func (v *Vault) Open(id string) (hsm.Software, error) {
	entry, err := v.store.Get(id)
	if err != nil {
		return nil, err
	}
	if entry.Status != StatusActive {
		return nil, ErrKeyInactive
	}

	raw, err := v.unseal(entry)
	if err != nil {
		return nil, err
	}
	defer clear(raw)

	return hsm.FromScalar(entry.Algorithm, raw)
}

// Rotate replaces an active key with a fresh one of the same algorithm and
// marks the old one rotated.
func (v *Vault) Rotate(id string) (*KeyEntry, error) {
	old, err := v.store.Get(id)
	if err != nil {
		return nil, err
	}
	if old.Status != StatusActive {
		return nil, ErrKeyInactive
	}

	labels := old.Labels
	if labels == nil {
		labels = map[string]string{}
	}
	labels["rotated_from"] = old.ID

	next, err := v.Generate(old.Algorithm, labels)
	if err != nil {
		return nil, err
	}
	if err := v.store.UpdateStatus(id, StatusRotated); err != nil {
		return nil, fmt.Errorf("update old key: %w", err)
	}
	return next, nil
}

// Deactivate prevents a key from being opened again.
func (v *Vault) Deactivate(id string) error {
	return v.store.UpdateStatus(id, StatusDeactivated)
}

func aad(id string, alg signer.Algorithm) []byte {
	return []byte(id + "/" + alg.String())
}

func (v *Vault) seal(id string, alg signer.Algorithm, raw []byte) ([]byte, error) {
	wrap, err := crypto.WrappingKey(v.master, id)
	if err != nil {
		return nil, err
	}
	defer clear(wrap)

	sealed, err := crypto.SealAESGCM(wrap, raw, aad(id, alg))
	if err != nil {
		return nil, fmt.Errorf("seal key %s: %w", id, err)
	}
	return sealed, nil
}

func (v *Vault) unseal(entry *KeyEntry) ([]byte, error) {
	wrap, err := crypto.WrappingKey(v.master, entry.ID)
	if err != nil {
		return nil, err
	}
	defer clear(wrap)

	raw, err := crypto.OpenAESGCM(wrap, entry.Sealed, aad(entry.ID, entry.Algorithm))
	if err != nil {
		return nil, fmt.Errorf("unseal key %s: %w", entry.ID, err)
	}
	return raw, nil
}

func decodeScalar(alg signer.Algorithm, encoded []byte, enc secret.Encoding) ([]byte, error) {
	switch alg {
	case signer.AlgorithmEd25519:
		return decodeAs[secret.Ed25519](encoded, enc)
	case signer.AlgorithmECDSAP256:
		return decodeAs[secret.P256](encoded, enc)
	case signer.AlgorithmECDSAP384:
		return decodeAs[secret.P384](encoded, enc)
	case signer.AlgorithmECDSASecp256k1:
		return decodeAs[secret.Secp256k1](encoded, enc)
	default:
		return nil, signer.KeyInvalidf("unsupported algorithm %v", alg)
	}
}

func decodeAs[C secret.Curve](encoded []byte, enc secret.Encoding) ([]byte, error) {
	sk, err := secret.Decode[C](encoded, enc)
	if err != nil {
		return nil, err
	}
	defer sk.Destroy()
	return append([]byte(nil), sk.Bytes()...), nil
}
