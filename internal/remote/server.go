package remote

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/glinharesb/vault-signer/internal/keystore"
	"github.com/glinharesb/vault-signer/internal/signer"
)

var _ SignerServer = (*Server)(nil)

// Server serves one provider. Concurrent RPCs reach the provider
// concurrently; serialization is the provider's business.
type Server struct {
	provider signer.Provider
	log      *zap.Logger
}

func NewServer(provider signer.Provider, log *zap.Logger) *Server {
	return &Server{provider: provider, log: log}
}

func (s *Server) PublicKey(_ context.Context, _ *emptypb.Empty) (*wrapperspb.BytesValue, error) {
	pk, err := s.provider.PublicKey()
	if err != nil {
		return nil, s.toStatus("public key", err)
	}
	return wrapperspb.Bytes(encodeTagged(pk.Algorithm(), pk.Bytes())), nil
}

func (s *Server) Sign(_ context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	sig, err := s.provider.Sign(req.GetValue())
	if err != nil {
		return nil, s.toStatus("sign", err)
	}
	return wrapperspb.Bytes(encodeTagged(sig.Algorithm(), sig.Bytes())), nil
}

func (s *Server) toStatus(op string, err error) error {
	s.log.Warn("provider call failed", zap.String("op", op), zap.Error(err))

	switch {
	case signer.KindOf(err) == signer.KindKeyInvalid:
		return status.Error(codes.InvalidArgument, err.Error())
	case signer.KindOf(err) == signer.KindProvider:
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, keystore.ErrKeyNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, keystore.ErrKeyInactive):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
