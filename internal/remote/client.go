package remote

import (
	"context"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/glinharesb/vault-signer/internal/signer"
)

var _ signer.Provider = (*Client)(nil)

// Client is a provider backed by a remote vaultsigner.v1.Signer service. The
// public key seen when the client is built pins the remote identity; every
// later PublicKey call asks the service again and fails if it is unreachable
// or answers with a different key.
type Client struct {
	conn   grpc.ClientConnInterface
	closer io.Closer
	pk     signer.PublicKey
}

// NewClient asks conn for the remote public key and fails if none is
// available.
func NewClient(ctx context.Context, conn grpc.ClientConnInterface) (*Client, error) {
	pk, err := fetchPublicKey(ctx, conn)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		pk:   pk,
	}, nil
}

// Dial connects to target, presenting token as a bearer credential when it
// is non-empty.
func Dial(ctx context.Context, target, token string, opts ...grpc.DialOption) (*Client, error) {
	conn, err := newConn(target, token, opts...)
	if err != nil {
		return nil, signer.ProviderError("dial signer", err)
	}
	c, err := NewClient(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.closer = conn
	return c, nil
}

func (c *Client) PublicKey() (signer.PublicKey, error) {
	pk, err := fetchPublicKey(context.TODO(), c.conn)
	if err != nil {
		return signer.PublicKey{}, err
	}
	if !pk.Equal(c.pk) {
		return signer.PublicKey{}, signer.ProviderError("remote public key changed", nil)
	}
	return pk, nil
}

func (c *Client) Sign(msg []byte) (signer.Signature, error) {
	raw, err := invokeSign(context.TODO(), c.conn, msg)
	if err != nil {
		return signer.Signature{}, err
	}
	alg, b, err := decodeTagged(raw)
	if err != nil {
		return signer.Signature{}, signer.ProviderError("malformed remote signature", err)
	}
	if alg != c.pk.Algorithm() {
		return signer.Signature{}, signer.ProviderError("remote signature algorithm "+alg.String()+" does not match key", nil)
	}
	sig, err := signer.NewSignature(alg, b)
	if err != nil {
		return signer.Signature{}, signer.ProviderError("malformed remote signature", err)
	}
	return sig, nil
}

// Close releases the connection if the client dialed it.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

func newConn(target, token string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	base := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if token != "" {
		base = append(base, grpc.WithPerRPCCredentials(bearerToken(token)))
	}
	return grpc.NewClient(target, append(base, opts...)...)
}

func fetchPublicKey(ctx context.Context, conn grpc.ClientConnInterface) (signer.PublicKey, error) {
	raw, err := invokePublicKey(ctx, conn)
	if err != nil {
		return signer.PublicKey{}, err
	}
	alg, b, err := decodeTagged(raw)
	if err != nil {
		return signer.PublicKey{}, signer.ProviderError("malformed remote public key", err)
	}
	pk, err := signer.NewPublicKey(alg, b)
	if err != nil {
		return signer.PublicKey{}, signer.ProviderError("malformed remote public key", err)
	}
	return pk, nil
}

func invokePublicKey(ctx context.Context, conn grpc.ClientConnInterface) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	if err := conn.Invoke(ctx, publicKeyMethod, &emptypb.Empty{}, out); err != nil {
		return nil, fromStatus("remote public key", err)
	}
	return out.GetValue(), nil
}

func invokeSign(ctx context.Context, conn grpc.ClientConnInterface, msg []byte) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	if err := conn.Invoke(ctx, signMethod, wrapperspb.Bytes(msg), out); err != nil {
		return nil, fromStatus("remote sign", err)
	}
	return out.GetValue(), nil
}

// fromStatus restores the error kind the server mapped to a status code.
// Anything other than a rejected argument is a provider failure.
func fromStatus(op string, err error) error {
	if status.Code(err) == codes.InvalidArgument {
		return &signer.Error{Kind: signer.KindKeyInvalid, Msg: op, Err: err}
	}
	return signer.ProviderError(op, err)
}

type bearerToken string

func (t bearerToken) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + string(t)}, nil
}

func (bearerToken) RequireTransportSecurity() bool { return false }
