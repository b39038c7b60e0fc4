package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bayardsearch/bayard/internal/bayarderr"
)

// UnaryErrorInterceptor translates the error kinds handlers return into
// the coarse outer codes callers see: resource-lookup failures surface as
// NotFound, everything else as Internal, keeping the original message
// human-readable. Handlers themselves stay free to return plain wrapped
// sentinel errors.
func UnaryErrorInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		switch bayarderr.ToCode(err) {
		case bayarderr.CodeNotFound:
			return nil, status.Error(codes.NotFound, err.Error())
		default:
			return nil, status.Error(codes.Internal, err.Error())
		}
	}
}
