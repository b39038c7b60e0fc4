package router

import (
	"context"

	"github.com/bayardsearch/bayard/internal/engine"
	"github.com/bayardsearch/bayard/internal/rpc"
)

// Server adapts a *Router to rpc.ClientServer, the client-facing
// ClientService a gRPC server registers: any member takes these calls for
// any index and fans them out internally, the same way node.Server adapts
// a *node.Node to rpc.Server for the node-local IndexService.
type Server struct {
	router *Router
}

// NewServer wraps router for gRPC ClientService registration.
func NewServer(router *Router) *Server { return &Server{router: router} }

var _ rpc.ClientServer = (*Server)(nil)

func (s *Server) PutDocuments(ctx context.Context, req *rpc.ClientPutDocumentsRequest) (*rpc.ClientPutDocumentsResponse, error) {
	if err := s.router.PutDocuments(ctx, req.Index, req.Docs); err != nil {
		return nil, err
	}
	return &rpc.ClientPutDocumentsResponse{}, nil
}

func (s *Server) DeleteDocuments(ctx context.Context, req *rpc.ClientDeleteDocumentsRequest) (*rpc.ClientDeleteDocumentsResponse, error) {
	if err := s.router.DeleteDocuments(ctx, req.Index, req.IDs); err != nil {
		return nil, err
	}
	return &rpc.ClientDeleteDocumentsResponse{}, nil
}

func (s *Server) Commit(ctx context.Context, req *rpc.ClientCommitRequest) (*rpc.ClientCommitResponse, error) {
	if err := s.router.Commit(ctx, req.Index); err != nil {
		return nil, err
	}
	return &rpc.ClientCommitResponse{}, nil
}

func (s *Server) Rollback(ctx context.Context, req *rpc.ClientRollbackRequest) (*rpc.ClientRollbackResponse, error) {
	if err := s.router.Rollback(ctx, req.Index); err != nil {
		return nil, err
	}
	return &rpc.ClientRollbackResponse{}, nil
}

func (s *Server) Search(ctx context.Context, req *rpc.ClientSearchRequest) (*rpc.ClientSearchResponse, error) {
	res, err := s.router.Search(ctx, req.Index, SearchRequest{
		Query:          req.Query,
		CollectionKind: collectionKindFromWire(req.CollectionKind),
		Sort:           sortFromWire(req.Sort),
		Fields:         req.Fields,
		Offset:         req.Offset,
		Hits:           req.Hits,
	})
	if err != nil {
		return nil, err
	}

	docs := make([]rpc.ClientSearchDoc, len(res.Docs))
	for i, d := range res.Docs {
		docs[i] = rpc.ClientSearchDoc{ID: d.ID, Score: d.Score, Fields: d.Fields}
	}
	return &rpc.ClientSearchResponse{TotalHits: res.TotalHits, Documents: docs}, nil
}

func collectionKindFromWire(kind string) engine.CollectionKind {
	switch kind {
	case "count":
		return engine.Count
	case "top_docs":
		return engine.TopDocs
	default:
		return engine.CountAndTopDocs
	}
}

func sortFromWire(s *rpc.SortSpec) *engine.Sort {
	if s == nil {
		return nil
	}
	order := engine.Asc
	if s.Order == "desc" {
		order = engine.Desc
	}
	return &engine.Sort{Field: s.Field, Order: order}
}
