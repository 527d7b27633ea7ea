package signer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	require := require.New(t)

	cause := errors.New("usb: device disconnected")
	err := fmt.Errorf("sign vote: %w", ProviderError("ledger sign", cause))

	require.ErrorIs(err, ErrProvider)
	require.NotErrorIs(err, ErrKeyInvalid)
	require.ErrorIs(err, cause)
	require.Equal(KindProvider, KindOf(err))
	require.Contains(err.Error(), "usb: device disconnected")

	err = KeyInvalidf("invalid length for %s secret key: %d", "Ed25519", 31)
	require.ErrorIs(err, ErrKeyInvalid)
	require.Equal(KindKeyInvalid, KindOf(err))
	require.Equal("key invalid: invalid length for Ed25519 secret key: 31", err.Error())

	require.Equal(Kind(0), KindOf(cause))
}

func TestNewPublicKey(t *testing.T) {
	tests := []struct {
		alg  Algorithm
		size int
	}{
		{AlgorithmEd25519, 32},
		{AlgorithmECDSAP256, 33},
		{AlgorithmECDSAP384, 49},
		{AlgorithmECDSASecp256k1, 33},
	}
	for _, tt := range tests {
		t.Run(tt.alg.String(), func(t *testing.T) {
			require := require.New(t)

			raw := make([]byte, tt.size)
			pk, err := NewPublicKey(tt.alg, raw)
			require.NoError(err)
			require.Equal(tt.alg, pk.Algorithm())

			raw[0] = 1
			require.Equal(byte(0), pk.Bytes()[0])

			_, err = NewPublicKey(tt.alg, make([]byte, tt.size+1))
			require.ErrorIs(err, ErrKeyInvalid)
		})
	}

	_, err := NewPublicKey(Algorithm(99), make([]byte, 32))
	require.ErrorIs(t, err, ErrKeyInvalid)
}

func TestNewSignature(t *testing.T) {
	require := require.New(t)

	sig, err := NewSignature(AlgorithmECDSAP384, make([]byte, 96))
	require.NoError(err)
	require.Len(sig.Bytes(), 96)

	other, err := NewSignature(AlgorithmECDSAP384, make([]byte, 96))
	require.NoError(err)
	require.True(sig.Equal(other))

	_, err = NewSignature(AlgorithmEd25519, make([]byte, 63))
	require.ErrorIs(err, ErrKeyInvalid)
	require.Contains(err.Error(), "63 (expected 64)")
}

func TestParseAlgorithm(t *testing.T) {
	for _, alg := range []Algorithm{
		AlgorithmEd25519,
		AlgorithmECDSAP256,
		AlgorithmECDSAP384,
		AlgorithmECDSASecp256k1,
	} {
		got, err := ParseAlgorithm(alg.String())
		require.NoError(t, err)
		require.Equal(t, alg, got)
	}

	_, err := ParseAlgorithm("RSA")
	require.ErrorIs(t, err, ErrKeyInvalid)
}
