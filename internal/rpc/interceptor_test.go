package rpc

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bayardsearch/bayard/internal/bayarderr"
)

func invokeWith(t *testing.T, handlerErr error) error {
	t.Helper()
	interceptor := UnaryErrorInterceptor()
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{},
		func(context.Context, interface{}) (interface{}, error) {
			if handlerErr != nil {
				return nil, handlerErr
			}
			return &GetIndexResponse{}, nil
		})
	return err
}

func TestInterceptorPassesSuccessThrough(t *testing.T) {
	assert.NoError(t, invokeWith(t, nil))
}

func TestInterceptorMapsMissingResourceToNotFound(t *testing.T) {
	err := invokeWith(t, fmt.Errorf("%w: articles", bayarderr.ErrIndexNotFound))
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())
	assert.Contains(t, st.Message(), "articles")
}

func TestInterceptorMapsEverythingElseToInternal(t *testing.T) {
	err := invokeWith(t, bayarderr.ErrIndexCommit)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st.Code())
}
