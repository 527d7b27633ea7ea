// Package remote exposes a signer.Provider over gRPC and consumes one back.
//
// The service is vaultsigner.v1.Signer with two unary methods built on the
// well-known wrapper messages:
//
//	rpc PublicKey(google.protobuf.Empty) returns (google.protobuf.BytesValue);
//	rpc Sign(google.protobuf.BytesValue) returns (google.protobuf.BytesValue);
//
// Keys and signatures travel as one algorithm byte followed by the raw bytes.
package remote

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/glinharesb/vault-signer/internal/signer"
)

const (
	serviceName = "vaultsigner.v1.Signer"

	publicKeyMethod = "/" + serviceName + "/PublicKey"
	signMethod      = "/" + serviceName + "/Sign"
)

// SignerServer is the server API for the vaultsigner.v1.Signer service.
type SignerServer interface {
	PublicKey(context.Context, *emptypb.Empty) (*wrapperspb.BytesValue, error)
	Sign(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// RegisterSignerServer registers srv on s.
func RegisterSignerServer(s grpc.ServiceRegistrar, srv SignerServer) {
	s.RegisterService(&signerServiceDesc, srv)
}

var signerServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SignerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "PublicKey",
			Handler:    publicKeyHandler,
		},
		{
			MethodName: "Sign",
			Handler:    signHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vaultsigner/v1/signer.proto",
}

func publicKeyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SignerServer).PublicKey(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: publicKeyMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SignerServer).PublicKey(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func signHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SignerServer).Sign(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: signMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SignerServer).Sign(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func encodeTagged(alg signer.Algorithm, b []byte) []byte {
	out := make([]byte, 0, 1+len(b))
	out = append(out, byte(alg))
	return append(out, b...)
}

func decodeTagged(b []byte) (signer.Algorithm, []byte, error) {
	if len(b) == 0 {
		return 0, nil, signer.KeyInvalidf("empty tagged value")
	}
	return signer.Algorithm(b[0]), b[1:], nil
}
