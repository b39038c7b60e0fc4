package router

import (
	"context"

	"github.com/bayardsearch/bayard/internal/clientpool"
	"github.com/bayardsearch/bayard/internal/metadata"
	"github.com/bayardsearch/bayard/internal/rpc"
)

// IndexServiceClient is the subset of rpc.Client's methods the router
// calls on a replica. Narrower than the full rpc.Server contract since the
// router never issues the admin RPCs (create/get/delete/modify_index) —
// those go directly from a caller to the local Node. Defined here so tests
// can substitute an in-memory fake instead of a real gRPC channel.
type IndexServiceClient interface {
	PutDocuments(ctx context.Context, req *rpc.PutDocumentsRequest) (*rpc.PutDocumentsResponse, error)
	DeleteDocuments(ctx context.Context, req *rpc.DeleteDocumentsRequest) (*rpc.DeleteDocumentsResponse, error)
	Commit(ctx context.Context, req *rpc.CommitRequest) (*rpc.CommitResponse, error)
	Rollback(ctx context.Context, req *rpc.RollbackRequest) (*rpc.RollbackResponse, error)
	Search(ctx context.Context, req *rpc.SearchRequest) (*rpc.SearchResponse, error)
}

// ClientSource resolves candidate replicas for a routing key.
// clientpool.Pool satisfies this via the poolSource adapter below; tests
// supply a fake.
type ClientSource interface {
	LookupClients(key []byte, n int) []IndexServiceClient
	Rotate(key []byte, n int) (IndexServiceClient, bool)
}

// MetadataSource resolves an index's current metadata. *node.Node
// satisfies this directly (it already caches the metastore's latest
// snapshot).
type MetadataSource interface {
	Metadata(indexName string) (*metadata.Metadata, bool)
}

// poolSource adapts a *clientpool.Pool (which deals in raw gRPC channels)
// to ClientSource (which deals in typed IndexService callers).
type poolSource struct {
	pool *clientpool.Pool
}

// NewClientSource wraps pool for use by Router.
func NewClientSource(pool *clientpool.Pool) ClientSource {
	return poolSource{pool: pool}
}

func (s poolSource) LookupClients(key []byte, n int) []IndexServiceClient {
	conns := s.pool.LookupClients(key, n)
	out := make([]IndexServiceClient, len(conns))
	for i, c := range conns {
		out[i] = rpc.NewClient(c)
	}
	return out
}

func (s poolSource) Rotate(key []byte, n int) (IndexServiceClient, bool) {
	conn, ok := s.pool.Rotate(key, n)
	if !ok {
		return nil, false
	}
	return rpc.NewClient(conn), true
}
