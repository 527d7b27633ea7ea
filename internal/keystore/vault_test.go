package keystore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glinharesb/vault-signer/internal/hsm"
	"github.com/glinharesb/vault-signer/internal/secret"
	"github.com/glinharesb/vault-signer/internal/signer"
)

func newVault(t *testing.T) *Vault {
	t.Helper()
	v, err := NewVault(NewMemoryStore(), bytes.Repeat([]byte{0x33}, 32))
	require.NoError(t, err)
	return v
}

func TestVaultGenerateAndOpen(t *testing.T) {
	for _, alg := range []signer.Algorithm{
		signer.AlgorithmEd25519,
		signer.AlgorithmECDSAP256,
		signer.AlgorithmECDSAP384,
		signer.AlgorithmECDSASecp256k1,
	} {
		t.Run(alg.String(), func(t *testing.T) {
			require := require.New(t)
			v := newVault(t)

			entry, err := v.Generate(alg, map[string]string{"role": "validator"})
			require.NoError(err)
			require.Equal(StatusActive, entry.Status)

			p, err := v.Open(entry.ID)
			require.NoError(err)
			defer p.Close()

			pub, err := p.PublicKey()
			require.NoError(err)
			stored, err := v.PublicKey(entry.ID)
			require.NoError(err)
			require.True(pub.Equal(stored))

			msg := []byte("vault message")
			sig, err := p.Sign(msg)
			require.NoError(err)
			require.True(hsm.Verify(stored, msg, sig))
		})
	}
}

func TestVaultNeverStoresPlaintext(t *testing.T) {
	require := require.New(t)
	v := newVault(t)

	seed := bytes.Repeat([]byte{0x5c}, 32)
	entry, err := v.Import(signer.AlgorithmEd25519, secret.Hex.Encode(seed), secret.Hex, nil)
	require.NoError(err)

	got, err := v.Store().Get(entry.ID)
	require.NoError(err)
	require.False(bytes.Contains(got.Sealed, seed))
}

func TestVaultImport(t *testing.T) {
	require := require.New(t)
	v := newVault(t)

	seed := bytes.Repeat([]byte{0x42}, 32)
	entry, err := v.Import(signer.AlgorithmEd25519, secret.Base58.Encode(seed), secret.Base58, nil)
	require.NoError(err)

	sk := secret.New[secret.Ed25519](seed)
	want, err := hsm.NewEd25519Signer(sk)
	require.NoError(err)
	defer want.Close()
	wantPub, _ := want.PublicKey()

	got, err := v.PublicKey(entry.ID)
	require.NoError(err)
	require.True(wantPub.Equal(got))

	_, err = v.Import(signer.AlgorithmEd25519, secret.Hex.Encode(seed[:16]), secret.Hex, nil)
	require.ErrorIs(err, signer.ErrKeyInvalid)
}

func TestVaultImportRejectsScalarAboveOrder(t *testing.T) {
	v := newVault(t)

	_, err := v.Import(
		signer.AlgorithmECDSASecp256k1,
		[]byte("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364142"),
		secret.Hex,
		nil,
	)
	require.ErrorIs(t, err, signer.ErrKeyInvalid)

	entries, err := v.Store().List(0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestVaultWrongMasterKey(t *testing.T) {
	require := require.New(t)

	store := NewMemoryStore()
	v1, err := NewVault(store, bytes.Repeat([]byte{1}, 32))
	require.NoError(err)
	entry, err := v1.Generate(signer.AlgorithmEd25519, nil)
	require.NoError(err)

	v2, err := NewVault(store, bytes.Repeat([]byte{2}, 32))
	require.NoError(err)
	_, err = v2.Open(entry.ID)
	require.Error(err)

	_, err = NewVault(store, make([]byte, 16))
	require.ErrorIs(err, signer.ErrKeyInvalid)
}

func TestVaultRotateAndDeactivate(t *testing.T) {
	require := require.New(t)
	v := newVault(t)

	old, err := v.Generate(signer.AlgorithmECDSAP256, nil)
	require.NoError(err)

	next, err := v.Rotate(old.ID)
	require.NoError(err)
	require.NotEqual(old.ID, next.ID)
	require.Equal(old.ID, next.Labels["rotated_from"])
	require.Equal(signer.AlgorithmECDSAP256, next.Algorithm)

	_, err = v.Open(old.ID)
	require.ErrorIs(err, ErrKeyInactive)
	_, err = v.Rotate(old.ID)
	require.ErrorIs(err, ErrKeyInactive)

	require.NoError(v.Deactivate(next.ID))
	_, err = v.Open(next.ID)
	require.ErrorIs(err, ErrKeyInactive)

	_, err = v.Open("missing")
	require.ErrorIs(err, ErrKeyNotFound)
}
