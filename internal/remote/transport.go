package remote

import (
	"context"

	"google.golang.org/grpc"

	"github.com/glinharesb/vault-signer/internal/device"
)

var (
	_ device.Transport = (*Transport)(nil)
	_ device.Session   = (*session)(nil)
)

// Transport reaches a signing device attached to another host, which exposes
// it as a vaultsigner.v1.Signer service. Each Connect builds a new
// connection; reachability is established by the first transaction.
type Transport struct {
	Target      string
	Token       string
	DialOptions []grpc.DialOption
}

func (t *Transport) Connect() (device.Session, error) {
	conn, err := newConn(t.Target, t.Token, t.DialOptions...)
	if err != nil {
		return nil, err
	}
	return &session{conn: conn}, nil
}

// session hands back the bytes the remote device produced without
// interpreting them. Transactions carry no deadline.
type session struct {
	conn *grpc.ClientConn
}

func (s *session) PublicKey() ([]byte, error) {
	raw, err := invokePublicKey(context.Background(), s.conn)
	if err != nil {
		return nil, err
	}
	_, b, err := decodeTagged(raw)
	return b, err
}

func (s *session) Sign(msg []byte) ([]byte, error) {
	raw, err := invokeSign(context.Background(), s.conn, msg)
	if err != nil {
		return nil, err
	}
	_, b, err := decodeTagged(raw)
	return b, err
}

func (s *session) Close() error {
	return s.conn.Close()
}
