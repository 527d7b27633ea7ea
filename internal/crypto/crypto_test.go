package crypto

import (
	"bytes"
	stdcrypto "crypto"
	"crypto/elliptic"
	"testing"

	"github.com/stretchr/testify/require"
)

func p256Scalar() []byte {
	s := make([]byte, 32)
	s[31] = 0x2a
	s[0] = 0x11
	return s
}

func TestECDSAP256SignVerify(t *testing.T) {
	require := require.New(t)

	key, err := ECDSAFromScalar(elliptic.P256(), p256Scalar())
	require.NoError(err)

	data := []byte("test message for signing")
	sig, err := SignECDSA(key, stdcrypto.SHA256, data)
	require.NoError(err)
	require.Len(sig, 64)

	pub := CompressPublicKey(&key.PublicKey)
	require.Len(pub, 33)
	require.True(VerifyECDSA(elliptic.P256(), stdcrypto.SHA256, pub, data, sig))
	require.False(VerifyECDSA(elliptic.P256(), stdcrypto.SHA256, pub, []byte("tampered"), sig))
}

func TestECDSAP384SignVerify(t *testing.T) {
	require := require.New(t)

	scalar := bytes.Repeat([]byte{0x01}, 48)
	key, err := ECDSAFromScalar(elliptic.P384(), scalar)
	require.NoError(err)

	sig, err := SignECDSA(key, stdcrypto.SHA384, []byte("test message P384"))
	require.NoError(err)
	require.Len(sig, 96)

	pub := CompressPublicKey(&key.PublicKey)
	require.Len(pub, 49)
	require.True(VerifyECDSA(elliptic.P384(), stdcrypto.SHA384, pub, []byte("test message P384"), sig))
}

func TestECDSAFromScalarRejectsZero(t *testing.T) {
	_, err := ECDSAFromScalar(elliptic.P256(), make([]byte, 32))
	require.Error(t, err)
}

func TestWipeECDSA(t *testing.T) {
	require := require.New(t)

	key, err := ECDSAFromScalar(elliptic.P256(), p256Scalar())
	require.NoError(err)

	words := key.D.Bits()
	WipeECDSA(key)
	for _, w := range words {
		require.Zero(w)
	}
	WipeECDSA(nil)
}

func TestVerifyECDSAMalformed(t *testing.T) {
	require := require.New(t)

	key, err := ECDSAFromScalar(elliptic.P256(), p256Scalar())
	require.NoError(err)
	sig, err := SignECDSA(key, stdcrypto.SHA256, []byte("data"))
	require.NoError(err)
	pub := CompressPublicKey(&key.PublicKey)

	require.False(VerifyECDSA(elliptic.P256(), stdcrypto.SHA256, pub[:10], []byte("data"), sig))
	require.False(VerifyECDSA(elliptic.P256(), stdcrypto.SHA256, pub, []byte("data"), sig[:63]))
}

func TestAESGCMSealOpen(t *testing.T) {
	require := require.New(t)

	key, err := GenerateMasterKey()
	require.NoError(err)

	plaintext := []byte("secret scalar bytes")
	aad := []byte("key-1/ED25519")

	sealed, err := SealAESGCM(key, plaintext, aad)
	require.NoError(err)

	pt, err := OpenAESGCM(key, sealed, aad)
	require.NoError(err)
	require.Equal(plaintext, pt)
}

func TestAESGCMWrongKey(t *testing.T) {
	key1, _ := GenerateMasterKey()
	key2, _ := GenerateMasterKey()

	sealed, err := SealAESGCM(key1, []byte("secret"), nil)
	require.NoError(t, err)
	_, err = OpenAESGCM(key2, sealed, nil)
	require.Error(t, err)
}

func TestAESGCMWrongAAD(t *testing.T) {
	key, _ := GenerateMasterKey()

	sealed, err := SealAESGCM(key, []byte("secret"), []byte("key-1"))
	require.NoError(t, err)
	_, err = OpenAESGCM(key, sealed, []byte("key-2"))
	require.Error(t, err)
}

func TestAESGCMCiphertextTooShort(t *testing.T) {
	key, _ := GenerateMasterKey()
	_, err := OpenAESGCM(key, []byte("short"), nil)
	require.Error(t, err)
}

func TestAESGCMUniqueNonce(t *testing.T) {
	key, _ := GenerateMasterKey()
	plaintext := []byte("same data")

	ct1, _ := SealAESGCM(key, plaintext, nil)
	ct2, _ := SealAESGCM(key, plaintext, nil)
	require.NotEqual(t, ct1, ct2)
}

func TestWrappingKeyPerID(t *testing.T) {
	require := require.New(t)

	master, _ := GenerateMasterKey()

	a1, err := WrappingKey(master, "key-a")
	require.NoError(err)
	a2, err := WrappingKey(master, "key-a")
	require.NoError(err)
	b, err := WrappingKey(master, "key-b")
	require.NoError(err)

	require.Len(a1, 32)
	require.Equal(a1, a2)
	require.NotEqual(a1, b)
}

func TestHKDFInvalidLength(t *testing.T) {
	master, _ := GenerateMasterKey()

	_, err := DeriveKey(master, nil, []byte("ctx"), 0)
	require.Error(t, err)
	_, err = DeriveKey(master, nil, []byte("ctx"), 65)
	require.Error(t, err)
}

func BenchmarkECDSAP256Sign(b *testing.B) {
	key, _ := ECDSAFromScalar(elliptic.P256(), p256Scalar())
	data := []byte("benchmark data for signing")
	for b.Loop() {
		SignECDSA(key, stdcrypto.SHA256, data)
	}
}

func BenchmarkAESGCMSeal(b *testing.B) {
	key, _ := GenerateMasterKey()
	data := make([]byte, 32)
	for b.Loop() {
		SealAESGCM(key, data, nil)
	}
}
