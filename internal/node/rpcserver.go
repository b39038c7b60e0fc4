package node

import (
	"context"
	"fmt"

	"github.com/bayardsearch/bayard/internal/bayarderr"
	"github.com/bayardsearch/bayard/internal/cluster"
	"github.com/bayardsearch/bayard/internal/engine"
	"github.com/bayardsearch/bayard/internal/metadata"
	"github.com/bayardsearch/bayard/internal/rpc"
)

// Broadcaster is the subset of *cluster.Membership the RPC server needs:
// announcing an admin change to the rest of the cluster once it has been
// durably written locally — write first, broadcast second.
type Broadcaster interface {
	Broadcast(msg cluster.Message) error
}

// Server adapts Node to rpc.Server, the handler set a gRPC IndexService
// registers. The admin RPCs (create/delete/get/modify_index) delegate to
// Node's own CreateIndex/DeleteIndex/GetIndex/ModifyIndex and then
// broadcast the resulting message so every other member's reconciler
// picks up the change; the data-plane RPCs (put/delete_documents, commit,
// rollback, search) look the target shard up in the local registry and
// fail ShardNotFound if this node does not currently hold it.
type Server struct {
	n           *Node
	broadcaster Broadcaster
}

// NewServer wraps n for gRPC registration, broadcasting admin changes
// through b.
func NewServer(n *Node, b Broadcaster) *Server { return &Server{n: n, broadcaster: b} }

var _ rpc.Server = (*Server)(nil)

func (s *Server) engineFor(index, shardID string) (*engine.Engine, error) {
	e, ok := s.n.Engine(index, shardID)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", bayarderr.ErrShardNotFound, index, shardID)
	}
	return e, nil
}

func (s *Server) CreateIndex(_ context.Context, req *rpc.CreateIndexRequest) (*rpc.CreateIndexResponse, error) {
	md, err := metadata.New(req.Fields, req.Analyzers, req.IndexSettings, req.WriterThreads, req.WriterMemSize, req.NumReplicas, req.NumShards)
	if err != nil {
		return nil, err
	}
	msg, err := s.n.CreateIndex(req.Name, md)
	if err != nil {
		return nil, err
	}
	if err := s.broadcaster.Broadcast(msg); err != nil {
		return nil, err
	}
	return &rpc.CreateIndexResponse{Meta: msg.Meta}, nil
}

func (s *Server) DeleteIndex(_ context.Context, req *rpc.DeleteIndexRequest) (*rpc.DeleteIndexResponse, error) {
	msg, err := s.n.DeleteIndex(req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.broadcaster.Broadcast(msg); err != nil {
		return nil, err
	}
	return &rpc.DeleteIndexResponse{}, nil
}

func (s *Server) GetIndex(_ context.Context, req *rpc.GetIndexRequest) (*rpc.GetIndexResponse, error) {
	md, err := s.n.GetIndex(req.Name)
	if err != nil {
		return nil, err
	}
	data, err := md.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return &rpc.GetIndexResponse{Meta: data}, nil
}

func (s *Server) ModifyIndex(_ context.Context, req *rpc.ModifyIndexRequest) (*rpc.ModifyIndexResponse, error) {
	msg, changed, err := s.n.ModifyIndex(req.Name, ModifyRequest{
		WriterThreads: req.WriterThreads,
		WriterMemSize: req.WriterMemSize,
		NumReplicas:   req.NumReplicas,
		NumShards:     req.NumShards,
		IndexSettings: req.IndexSettings,
	})
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.broadcaster.Broadcast(msg); err != nil {
			return nil, err
		}
	}
	return &rpc.ModifyIndexResponse{Changed: changed, Meta: msg.Meta}, nil
}

func (s *Server) PutDocuments(_ context.Context, req *rpc.PutDocumentsRequest) (*rpc.PutDocumentsResponse, error) {
	e, err := s.engineFor(req.Index, req.ShardID)
	if err != nil {
		return nil, err
	}
	md, ok := s.n.Metadata(req.Index)
	if !ok {
		return nil, fmt.Errorf("%w: %s", bayarderr.ErrIndexNotFound, req.Index)
	}
	e.PutDocs(md.Schema(), req.Docs)
	return &rpc.PutDocumentsResponse{}, nil
}

func (s *Server) DeleteDocuments(_ context.Context, req *rpc.DeleteDocumentsRequest) (*rpc.DeleteDocumentsResponse, error) {
	e, err := s.engineFor(req.Index, req.ShardID)
	if err != nil {
		return nil, err
	}
	e.DeleteDocs(req.IDs)
	return &rpc.DeleteDocumentsResponse{}, nil
}

func (s *Server) Commit(_ context.Context, req *rpc.CommitRequest) (*rpc.CommitResponse, error) {
	e, err := s.engineFor(req.Index, req.ShardID)
	if err != nil {
		return nil, err
	}
	if err := e.Commit(); err != nil {
		return nil, err
	}
	return &rpc.CommitResponse{}, nil
}

func (s *Server) Rollback(_ context.Context, req *rpc.RollbackRequest) (*rpc.RollbackResponse, error) {
	e, err := s.engineFor(req.Index, req.ShardID)
	if err != nil {
		return nil, err
	}
	e.Rollback()
	return &rpc.RollbackResponse{}, nil
}

func (s *Server) Search(_ context.Context, req *rpc.SearchRequest) (*rpc.SearchResponse, error) {
	e, err := s.engineFor(req.Index, req.ShardID)
	if err != nil {
		return nil, err
	}
	md, ok := s.n.Metadata(req.Index)
	if !ok {
		return nil, fmt.Errorf("%w: %s", bayarderr.ErrIndexNotFound, req.Index)
	}

	var sortSpec *engine.Sort
	if req.Sort != nil {
		order := engine.Asc
		if req.Sort.Order == "desc" {
			order = engine.Desc
		}
		sortSpec = &engine.Sort{Field: req.Sort.Field, Order: order}
	}

	res, err := e.Search(md.Schema(), engine.SearchRequest{
		Query:          req.Query,
		CollectionKind: collectionKindFromWire(req.CollectionKind),
		Sort:           sortSpec,
		Fields:         req.Fields,
		Offset:         req.Offset,
		Hits:           req.Hits,
	})
	if err != nil {
		return nil, err
	}
	return &rpc.SearchResponse{TotalHits: res.TotalHits, Documents: res.Documents, IDs: res.IDs, Scores: res.Scores}, nil
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
