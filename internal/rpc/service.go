package rpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"

	"github.com/bayardsearch/bayard/internal/metadata"
)

// ServiceName is the gRPC service path component.
const ServiceName = "bayard.IndexService"

// CreateIndexRequest is the payload for create_index.
type CreateIndexRequest struct {
	Name          string                               `json:"name"`
	Fields        []metadata.Field                     `json:"fields"`
	Analyzers     map[string]metadata.AnalyzerPipeline `json:"analyzers,omitempty"`
	IndexSettings json.RawMessage                      `json:"index_settings,omitempty"`
	WriterThreads int                                  `json:"writer_threads"`
	WriterMemSize int                                  `json:"writer_mem_size"`
	NumReplicas   int                                  `json:"num_replicas"`
	NumShards     int                                  `json:"num_shards"`
}

// CreateIndexResponse carries the metadata that was actually persisted,
// including server-generated shard ids.
type CreateIndexResponse struct {
	Meta json.RawMessage `json:"meta"`
}

// DeleteIndexRequest is the payload for delete_index.
type DeleteIndexRequest struct {
	Name string `json:"name"`
}

// DeleteIndexResponse is empty; success is the absence of an error.
type DeleteIndexResponse struct{}

// GetIndexRequest is the payload for get_index.
type GetIndexRequest struct {
	Name string `json:"name"`
}

// GetIndexResponse carries the index's persisted metadata.
type GetIndexResponse struct {
	Meta json.RawMessage `json:"meta"`
}

// ModifyIndexRequest is the payload for modify_index. Only non-nil pointer
// fields are applied; IndexSettings is accepted only so the server can
// detect and refuse an attempted change.
type ModifyIndexRequest struct {
	Name          string          `json:"name"`
	WriterThreads *int            `json:"writer_threads,omitempty"`
	WriterMemSize *int            `json:"writer_mem_size,omitempty"`
	NumReplicas   *int            `json:"num_replicas,omitempty"`
	NumShards     *int            `json:"num_shards,omitempty"`
	IndexSettings json.RawMessage `json:"index_settings,omitempty"`
}

// ModifyIndexResponse reports whether anything changed, so a caller that
// wants to broadcast the update only does so on a real change.
type ModifyIndexResponse struct {
	Changed bool            `json:"changed"`
	Meta    json.RawMessage `json:"meta,omitempty"`
}

// PutDocumentsRequest is one shard's worth of put_documents, already routed
// to the shard that owns doc.id.
type PutDocumentsRequest struct {
	Index   string   `json:"index"`
	ShardID string   `json:"shard_id"`
	Docs    [][]byte `json:"docs"`
}

// PutDocumentsResponse is empty; success is the absence of an error.
type PutDocumentsResponse struct{}

// DeleteDocumentsRequest is one shard's worth of delete_documents.
type DeleteDocumentsRequest struct {
	Index   string   `json:"index"`
	ShardID string   `json:"shard_id"`
	IDs     []string `json:"ids"`
}

// DeleteDocumentsResponse is empty; success is the absence of an error.
type DeleteDocumentsResponse struct{}

// CommitRequest commits the in-flight batch of one shard.
type CommitRequest struct {
	Index   string `json:"index"`
	ShardID string `json:"shard_id"`
}

// CommitResponse is empty; success is the absence of an error.
type CommitResponse struct{}

// RollbackRequest discards the in-flight batch of one shard.
type RollbackRequest struct {
	Index   string `json:"index"`
	ShardID string `json:"shard_id"`
}

// RollbackResponse is empty; success is the absence of an error.
type RollbackResponse struct{}

// SortSpec mirrors engine.Sort over the wire: Order is "asc" or "desc".
type SortSpec struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// SearchRequest is one shard-local search. CollectionKind is one of
// "count_and_top_docs", "count", "top_docs".
type SearchRequest struct {
	Index          string    `json:"index"`
	ShardID        string    `json:"shard_id"`
	Query          string    `json:"query"`
	CollectionKind string    `json:"collection_kind"`
	Sort           *SortSpec `json:"sort,omitempty"`
	Fields         []string  `json:"fields,omitempty"`
	Offset         int       `json:"offset"`
	Hits           int       `json:"hits"`
}

// SearchResponse is (total_hits, documents); TotalHits is -1 when
// collection_kind is top_docs. IDs and Scores are index-aligned with
// Documents, carried alongside the field projection for the router's
// sort-merge stage.
type SearchResponse struct {
	TotalHits int64                    `json:"total_hits"`
	Documents []map[string]interface{} `json:"documents"`
	IDs       []string                 `json:"ids,omitempty"`
	Scores    []float64                `json:"scores,omitempty"`
}

// Server is the set of handlers a gRPC IndexService implementation
// provides; internal/node.Server adapts *node.Node to it (see
// node/rpcserver.go).
type Server interface {
	CreateIndex(ctx context.Context, req *CreateIndexRequest) (*CreateIndexResponse, error)
	DeleteIndex(ctx context.Context, req *DeleteIndexRequest) (*DeleteIndexResponse, error)
	GetIndex(ctx context.Context, req *GetIndexRequest) (*GetIndexResponse, error)
	ModifyIndex(ctx context.Context, req *ModifyIndexRequest) (*ModifyIndexResponse, error)
	PutDocuments(ctx context.Context, req *PutDocumentsRequest) (*PutDocumentsResponse, error)
	DeleteDocuments(ctx context.Context, req *DeleteDocumentsRequest) (*DeleteDocumentsResponse, error)
	Commit(ctx context.Context, req *CommitRequest) (*CommitResponse, error)
	Rollback(ctx context.Context, req *RollbackRequest) (*RollbackResponse, error)
	Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error)
}

// RegisterIndexServiceServer registers srv's handlers on s, the way a
// generated RegisterIndexServiceServer function would.
func RegisterIndexServiceServer(s *grpc.Server, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateIndex", Handler: createIndexHandler},
		{MethodName: "DeleteIndex", Handler: deleteIndexHandler},
		{MethodName: "GetIndex", Handler: getIndexHandler},
		{MethodName: "ModifyIndex", Handler: modifyIndexHandler},
		{MethodName: "PutDocuments", Handler: putDocumentsHandler},
		{MethodName: "DeleteDocuments", Handler: deleteDocumentsHandler},
		{MethodName: "Commit", Handler: commitHandler},
		{MethodName: "Rollback", Handler: rollbackHandler},
		{MethodName: "Search", Handler: searchHandler},
	},
	Metadata: "bayard/index_service.proto",
}

func createIndexHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(CreateIndexRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).CreateIndex(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/CreateIndex"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).CreateIndex(ctx, req.(*CreateIndexRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func deleteIndexHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(DeleteIndexRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).DeleteIndex(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/DeleteIndex"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).DeleteIndex(ctx, req.(*DeleteIndexRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func getIndexHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(GetIndexRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).GetIndex(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetIndex"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).GetIndex(ctx, req.(*GetIndexRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func modifyIndexHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ModifyIndexRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).ModifyIndex(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ModifyIndex"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).ModifyIndex(ctx, req.(*ModifyIndexRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func putDocumentsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(PutDocumentsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).PutDocuments(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/PutDocuments"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).PutDocuments(ctx, req.(*PutDocumentsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func deleteDocumentsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(DeleteDocumentsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).DeleteDocuments(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/DeleteDocuments"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).DeleteDocuments(ctx, req.(*DeleteDocumentsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func commitHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(CommitRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Commit(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Commit"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Commit(ctx, req.(*CommitRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func rollbackHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(RollbackRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Rollback(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Rollback"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Rollback(ctx, req.(*RollbackRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func searchHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(SearchRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Search(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Search"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).Search(ctx, req.(*SearchRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// ClientServiceName is the gRPC service path for the client-facing,
// router-fronted surface: any member can take a ClientService call for any
// index and it fans out to the owning shards/replicas internally. Unlike
// IndexService's data-plane methods, requests here carry no shard_id.
const ClientServiceName = "bayard.ClientService"

// ClientPutDocumentsRequest is put_documents addressed to the index as a
// whole; the receiving node's router groups docs by shard.
type ClientPutDocumentsRequest struct {
	Index string   `json:"index"`
	Docs  [][]byte `json:"docs"`
}

// ClientPutDocumentsResponse is empty; success is the absence of an error.
type ClientPutDocumentsResponse struct{}

// ClientDeleteDocumentsRequest is delete_documents addressed to the index.
type ClientDeleteDocumentsRequest struct {
	Index string   `json:"index"`
	IDs   []string `json:"ids"`
}

// ClientDeleteDocumentsResponse is empty; success is the absence of an error.
type ClientDeleteDocumentsResponse struct{}

// ClientCommitRequest commits every shard of Index on every replica.
type ClientCommitRequest struct {
	Index string `json:"index"`
}

// ClientCommitResponse is empty; success is the absence of an error.
type ClientCommitResponse struct{}

// ClientRollbackRequest rolls back every shard of Index on every replica.
type ClientRollbackRequest struct {
	Index string `json:"index"`
}

// ClientRollbackResponse is empty; success is the absence of an error.
type ClientRollbackResponse struct{}

// ClientSearchRequest is a whole-index search; the receiving node's router
// scatters it across every shard and merges the results.
type ClientSearchRequest struct {
	Index          string    `json:"index"`
	Query          string    `json:"query"`
	CollectionKind string    `json:"collection_kind"`
	Sort           *SortSpec `json:"sort,omitempty"`
	Fields         []string  `json:"fields,omitempty"`
	Offset         int       `json:"offset"`
	Hits           int       `json:"hits"`
}

// ClientSearchDoc is one merged, ranked document in a ClientSearchResponse.
type ClientSearchDoc struct {
	ID     string                 `json:"id"`
	Score  float64                `json:"score"`
	Fields map[string]interface{} `json:"fields"`
}

// ClientSearchResponse is the router's merged result across every shard.
type ClientSearchResponse struct {
	TotalHits int64             `json:"total_hits"`
	Documents []ClientSearchDoc `json:"documents"`
}

// ClientServer is the set of handlers a gRPC ClientService implementation
// provides; internal/router.Server adapts *router.Router to this (see
// router/server.go).
type ClientServer interface {
	PutDocuments(ctx context.Context, req *ClientPutDocumentsRequest) (*ClientPutDocumentsResponse, error)
	DeleteDocuments(ctx context.Context, req *ClientDeleteDocumentsRequest) (*ClientDeleteDocumentsResponse, error)
	Commit(ctx context.Context, req *ClientCommitRequest) (*ClientCommitResponse, error)
	Rollback(ctx context.Context, req *ClientRollbackRequest) (*ClientRollbackResponse, error)
	Search(ctx context.Context, req *ClientSearchRequest) (*ClientSearchResponse, error)
}

// RegisterClientServiceServer registers srv's handlers on s, the way a
// generated RegisterClientServiceServer function would.
func RegisterClientServiceServer(s *grpc.Server, srv ClientServer) {
	s.RegisterService(&clientServiceDesc, srv)
}

var clientServiceDesc = grpc.ServiceDesc{
	ServiceName: ClientServiceName,
	HandlerType: (*ClientServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PutDocuments", Handler: clientPutDocumentsHandler},
		{MethodName: "DeleteDocuments", Handler: clientDeleteDocumentsHandler},
		{MethodName: "Commit", Handler: clientCommitHandler},
		{MethodName: "Rollback", Handler: clientRollbackHandler},
		{MethodName: "Search", Handler: clientSearchHandler},
	},
	Metadata: "bayard/client_service.proto",
}

func clientPutDocumentsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ClientPutDocumentsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServer).PutDocuments(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ClientServiceName + "/PutDocuments"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClientServer).PutDocuments(ctx, req.(*ClientPutDocumentsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func clientDeleteDocumentsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ClientDeleteDocumentsRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServer).DeleteDocuments(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ClientServiceName + "/DeleteDocuments"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClientServer).DeleteDocuments(ctx, req.(*ClientDeleteDocumentsRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func clientCommitHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ClientCommitRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServer).Commit(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ClientServiceName + "/Commit"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClientServer).Commit(ctx, req.(*ClientCommitRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func clientRollbackHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ClientRollbackRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServer).Rollback(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ClientServiceName + "/Rollback"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClientServer).Rollback(ctx, req.(*ClientRollbackRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func clientSearchHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(ClientSearchRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClientServer).Search(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ClientServiceName + "/Search"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClientServer).Search(ctx, req.(*ClientSearchRequest))
	}
	return interceptor(ctx, req, info, handler)
}
