package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/sync/errgroup"

	"github.com/glinharesb/vault-signer/internal/device/devicemock"
	"github.com/glinharesb/vault-signer/internal/device/devicetest"
	"github.com/glinharesb/vault-signer/internal/hsm"
	"github.com/glinharesb/vault-signer/internal/signer"
)

var errTest = errors.New("test")

// voteRecord is a length-prefixed prevote: type, height, round and timestamp
// fields.
func voteRecord(height, round byte) []byte {
	return []byte{
		33, 0x08,
		0x01, // prevote
		0x11,
		height, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x19,
		round, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x22,
		0x0b, 0x08, 0x80, 0x92, 0xb8, 0xc3, 0x98, 0xfe, 0xff, 0xff, 0xff, 0x01,
	}
}

func newDevice(t *testing.T) *devicetest.Device {
	t.Helper()
	d, err := devicetest.New(devicetest.Seed())
	require.NoError(t, err)
	return d
}

func TestConnect(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)

	// transport cannot reach the device
	transport := devicemock.NewTransport(ctrl)
	transport.EXPECT().Connect().Return(nil, errTest).Times(1)
	s, err := Connect(transport)
	require.ErrorIs(err, signer.ErrProvider)
	require.ErrorIs(err, errTest)
	require.Nil(s)

	// session opens but the public key request fails
	session := devicemock.NewSession(ctrl)
	session.EXPECT().PublicKey().Return(nil, errTest).Times(1)
	transport = devicemock.NewTransport(ctrl)
	transport.EXPECT().Connect().Return(session, nil).Times(1)
	s, err = Connect(transport)
	require.ErrorIs(err, signer.ErrProvider)
	require.Contains(err.Error(), "test")
	require.Nil(s)

	// device returns a key of the wrong size
	session = devicemock.NewSession(ctrl)
	session.EXPECT().PublicKey().Return(make([]byte, 31), nil).Times(1)
	transport = devicemock.NewTransport(ctrl)
	transport.EXPECT().Connect().Return(session, nil).Times(1)
	s, err = Connect(transport)
	require.ErrorIs(err, signer.ErrProvider)
	require.Nil(s)

	// good path
	session = devicemock.NewSession(ctrl)
	session.EXPECT().PublicKey().Return(make([]byte, 32), nil).Times(1)
	transport = devicemock.NewTransport(ctrl)
	transport.EXPECT().Connect().Return(session, nil).Times(1)
	s, err = Connect(transport)
	require.NoError(err)
	require.NotNil(s)
}

func TestConnectPublicKeyFailureWithFakeDevice(t *testing.T) {
	require := require.New(t)

	d := newDevice(t)
	d.FailPublicKey(devicetest.ErrDisconnected)

	s, err := Connect(d)
	require.ErrorIs(err, signer.ErrProvider)
	require.ErrorIs(err, devicetest.ErrDisconnected)
	require.Nil(s)
}

func TestPublicKeyIsStable(t *testing.T) {
	require := require.New(t)

	s, err := Connect(newDevice(t))
	require.NoError(err)

	a, err := s.PublicKey()
	require.NoError(err)
	b, err := s.PublicKey()
	require.NoError(err)

	require.Equal(a.Bytes(), b.Bytes())
	require.Equal(signer.AlgorithmEd25519, a.Algorithm())
}

func TestSignVoteRecords(t *testing.T) {
	require := require.New(t)

	d := newDevice(t)
	s, err := Connect(d)
	require.NoError(err)
	pub, err := s.PublicKey()
	require.NoError(err)

	msg1 := voteRecord(0x10, 0x01)
	msg2 := voteRecord(0x10, 0x02)
	require.Len(msg1, 33)

	sig1, err := s.Sign(msg1)
	require.NoError(err)
	sig2, err := s.Sign(msg2)
	require.NoError(err)

	require.False(sig1.Equal(sig2))
	require.True(hsm.Verify(pub, msg1, sig1))
	require.True(hsm.Verify(pub, msg2, sig2))

	// the device saw the exact payloads
	require.Equal([][]byte{msg1, msg2}, d.Messages())
}

func TestSignManyRounds(t *testing.T) {
	require := require.New(t)

	s, err := Connect(newDevice(t))
	require.NoError(err)
	pub, err := s.PublicKey()
	require.NoError(err)

	for round := 50; round < 254; round++ {
		msg := voteRecord(0x40, byte(round))
		sig, err := s.Sign(msg)
		require.NoError(err)
		require.True(hsm.Verify(pub, msg, sig))
	}
}

func TestConcurrentSignIsSerialized(t *testing.T) {
	require := require.New(t)

	d := newDevice(t)
	d.Delay = time.Millisecond
	s, err := Connect(d)
	require.NoError(err)

	var eg errgroup.Group
	for i := range 32 {
		eg.Go(func() error {
			_, err := s.Sign(voteRecord(byte(i), 0x01))
			return err
		})
		eg.Go(func() error {
			_, err := s.PublicKey()
			return err
		})
	}
	require.NoError(eg.Wait())

	require.Equal(1, d.MaxConcurrency())
	require.Len(d.Messages(), 32)
	require.Equal(1, d.Connects())
}

func TestSessionUsableAfterFailure(t *testing.T) {
	require := require.New(t)

	d := newDevice(t)
	s, err := Connect(d)
	require.NoError(err)

	d.FailSign(devicetest.ErrDisconnected)
	_, err = s.Sign(voteRecord(1, 1))
	require.ErrorIs(err, signer.ErrProvider)
	require.Contains(err.Error(), devicetest.ErrDisconnected.Error())

	d.FailSign(nil)
	_, err = s.Sign(voteRecord(1, 1))
	require.NoError(err)
}

func TestMalformedSignature(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)

	msg := voteRecord(0x10, 0x01)
	session := devicemock.NewSession(ctrl)
	session.EXPECT().PublicKey().Return(make([]byte, 32), nil).Times(1)
	gomock.InOrder(
		session.EXPECT().Sign(msg).Return(make([]byte, 10), nil).Times(1),
		session.EXPECT().Sign(msg).Return(nil, errTest).Times(1),
		session.EXPECT().Sign(msg).Return(make([]byte, 64), nil).Times(1),
	)
	transport := devicemock.NewTransport(ctrl)
	transport.EXPECT().Connect().Return(session, nil).Times(1)

	s, err := Connect(transport)
	require.NoError(err)

	_, err = s.Sign(msg)
	require.ErrorIs(err, signer.ErrProvider)
	require.Contains(err.Error(), "malformed device signature")

	_, err = s.Sign(msg)
	require.ErrorIs(err, signer.ErrProvider)
	require.ErrorIs(err, errTest)

	sig, err := s.Sign(msg)
	require.NoError(err)
	require.Len(sig.Bytes(), 64)
}

func TestClose(t *testing.T) {
	require := require.New(t)

	s, err := Connect(newDevice(t))
	require.NoError(err)
	require.NoError(s.Close())

	_, err = s.Sign(voteRecord(1, 1))
	require.ErrorIs(err, signer.ErrProvider)
	_, err = s.PublicKey()
	require.ErrorIs(err, signer.ErrProvider)
}
