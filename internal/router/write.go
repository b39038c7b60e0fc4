package router

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bayardsearch/bayard/internal/bayarderr"
	"github.com/bayardsearch/bayard/internal/metadata"
	"github.com/bayardsearch/bayard/internal/metrics"
	"github.com/bayardsearch/bayard/internal/rpc"
)

// Router fans requests for one index out across its shards and replicas.
type Router struct {
	clients  ClientSource
	metadata MetadataSource
	logger   *zap.Logger
	metrics  metrics.Sink
}

// New builds a Router over clients (typically NewClientSource wrapping a
// *clientpool.Pool) and metadata (typically a *node.Node). A nil sink
// records nothing.
func New(clients ClientSource, metadata MetadataSource, logger *zap.Logger, sink metrics.Sink) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = metrics.Noop{}
	}
	return &Router{clients: clients, metadata: metadata, logger: logger, metrics: sink}
}

// incomingDoc is the minimal shape the router parses to place a document;
// the full bytes are forwarded to the shard unparsed.
type incomingDoc struct {
	ID string `json:"id"`
}

func (r *Router) indexMetadata(indexName string) (*metadata.Metadata, error) {
	md, ok := r.metadata.Metadata(indexName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", bayarderr.ErrIndexNotFound, indexName)
	}
	return md, nil
}

// groupByShard partitions docs by the shard their id hashes to, dropping
// (and logging) documents without an id or whose shard cannot be
// assigned; a bad document never fails the batch.
func (r *Router) groupByShard(md *metadata.Metadata, docs [][]byte) map[string][][]byte {
	groups := map[string][][]byte{}
	for _, raw := range docs {
		var d incomingDoc
		if err := json.Unmarshal(raw, &d); err != nil || d.ID == "" {
			r.logger.Warn("router: dropping document without id", zap.Error(err))
			continue
		}
		sh, ok := md.Shards().LookupShard([]byte(d.ID))
		if !ok {
			r.logger.Warn("router: dropping document with no assignable shard", zap.String("id", d.ID))
			continue
		}
		groups[sh.ID()] = append(groups[sh.ID()], raw)
	}
	return groups
}

// fanOutShard spawns one retrying task per replica of shardID and awaits
// all of them; a single replica's failure (after retry exhaustion) fails
// the whole shard.
func (r *Router) fanOutShard(ctx context.Context, shardID string, numReplicas int, call func(IndexServiceClient) error) error {
	targets := r.clients.LookupClients([]byte(shardID), numReplicas)
	if len(targets) == 0 {
		return fmt.Errorf("%w: no replicas available for shard %s", bayarderr.ErrMemberNotFound, shardID)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		target := target
		g.Go(func() error {
			return retryWrite(gctx, r.metrics, "write", func() error { return call(target) })
		})
	}
	return g.Wait()
}

// PutDocuments implements put_documents: group docs by shard, then fan
// each shard's batch out to its replicas concurrently.
func (r *Router) PutDocuments(ctx context.Context, indexName string, docs [][]byte) error {
	md, err := r.indexMetadata(indexName)
	if err != nil {
		return err
	}
	groups := r.groupByShard(md, docs)

	g, gctx := errgroup.WithContext(ctx)
	for shardID, shardDocs := range groups {
		shardID, shardDocs := shardID, shardDocs
		g.Go(func() error {
			return r.fanOutShard(gctx, shardID, md.NumReplicas(), func(c IndexServiceClient) error {
				_, err := c.PutDocuments(gctx, &rpc.PutDocumentsRequest{Index: indexName, ShardID: shardID, Docs: shardDocs})
				return err
			})
		})
	}
	return g.Wait()
}

// DeleteDocuments implements delete_documents, grouping ids by shard the
// same way PutDocuments groups documents.
func (r *Router) DeleteDocuments(ctx context.Context, indexName string, ids []string) error {
	md, err := r.indexMetadata(indexName)
	if err != nil {
		return err
	}
	groups := map[string][]string{}
	for _, id := range ids {
		sh, ok := md.Shards().LookupShard([]byte(id))
		if !ok {
			r.logger.Warn("router: dropping delete for id with no assignable shard", zap.String("id", id))
			continue
		}
		groups[sh.ID()] = append(groups[sh.ID()], id)
	}

	g, gctx := errgroup.WithContext(ctx)
	for shardID, shardIDs := range groups {
		shardID, shardIDs := shardID, shardIDs
		g.Go(func() error {
			return r.fanOutShard(gctx, shardID, md.NumReplicas(), func(c IndexServiceClient) error {
				_, err := c.DeleteDocuments(gctx, &rpc.DeleteDocumentsRequest{Index: indexName, ShardID: shardID, IDs: shardIDs})
				return err
			})
		})
	}
	return g.Wait()
}

// Commit implements commit: every shard of the index is committed on every
// one of its replicas.
func (r *Router) Commit(ctx context.Context, indexName string) error {
	return r.forEachShard(ctx, indexName, func(gctx context.Context, shardID string, numReplicas int) error {
		return r.fanOutShard(gctx, shardID, numReplicas, func(c IndexServiceClient) error {
			_, err := c.Commit(gctx, &rpc.CommitRequest{Index: indexName, ShardID: shardID})
			return err
		})
	})
}

// Rollback implements rollback, mirroring Commit.
func (r *Router) Rollback(ctx context.Context, indexName string) error {
	return r.forEachShard(ctx, indexName, func(gctx context.Context, shardID string, numReplicas int) error {
		return r.fanOutShard(gctx, shardID, numReplicas, func(c IndexServiceClient) error {
			_, err := c.Rollback(gctx, &rpc.RollbackRequest{Index: indexName, ShardID: shardID})
			return err
		})
	})
}

func (r *Router) forEachShard(ctx context.Context, indexName string, do func(ctx context.Context, shardID string, numReplicas int) error) error {
	md, err := r.indexMetadata(indexName)
	if err != nil {
		return err
	}
	shards := md.Shards().Iter()
	numReplicas := md.NumReplicas()

	g, gctx := errgroup.WithContext(ctx)
	for _, sh := range shards {
		shardID := sh.ID()
		g.Go(func() error { return do(gctx, shardID, numReplicas) })
	}
	return g.Wait()
}
