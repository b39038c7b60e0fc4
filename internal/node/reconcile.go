package node

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/bayardsearch/bayard/internal/bayarderr"
	"github.com/bayardsearch/bayard/internal/cluster"
	"github.com/bayardsearch/bayard/internal/engine"
	"github.com/bayardsearch/bayard/internal/metadata"
)

// Run drives the metadata-stream and membership-stream reconciler tasks
// from a single goroutine: each snapshot on either channel updates the
// corresponding cache and reruns Reconcile over both caches together.
// Run returns when ctx is done or both channels are closed.
func (n *Node) Run(ctx context.Context, metaWatch <-chan map[string]*metadata.Metadata, memberWatch <-chan *cluster.Members) {
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-metaWatch:
			if !ok {
				metaWatch = nil
				continue
			}
			n.mu.Lock()
			n.metadatas = snapshot
			n.mu.Unlock()
			n.Reconcile()
		case snapshot, ok := <-memberWatch:
			if !ok {
				memberWatch = nil
				continue
			}
			n.mu.Lock()
			n.members = snapshot
			n.mu.Unlock()
			n.Reconcile()
		}
		if metaWatch == nil && memberWatch == nil {
			return
		}
	}
}

// Reconcile recomputes the local shard assignment against the most
// recently cached metadata and membership snapshots. It is safe to call
// concurrently with Run (Run already serializes its own
// calls, but Reconcile takes its own snapshot copy under n.mu so a direct
// call — e.g. from a test, or to force a tick — cannot race it).
func (n *Node) Reconcile() {
	n.mu.Lock()
	metadatas := n.metadatas
	members := n.members
	n.mu.Unlock()

	if members == nil {
		return
	}

	liveShardIDs := map[string]map[string]struct{}{} // index name -> shard ids present in metadata

	for indexName, md := range metadatas {
		ids := map[string]struct{}{}
		for _, s := range md.Shards().Iter() {
			ids[s.ID()] = struct{}{}
			n.reconcileShard(indexName, s.ID(), md, members)
		}
		liveShardIDs[indexName] = ids

		// Drop any local triple for this index whose shard id is no longer
		// in metadata; its shard directory is removed in the prune below.
		for _, key := range n.registry.KeysForIndex(indexName) {
			if _, ok := ids[key.ShardID]; ok {
				continue
			}
			n.dropShard(key)
		}
	}

	// Drop local triples for indices that have disappeared from the
	// metadata snapshot entirely (metastore deletion already removed them
	// from `metadatas`, so liveShardIDs simply has no entry for them).
	for _, key := range n.registry.Keys() {
		if _, ok := liveShardIDs[key.IndexName]; ok {
			continue
		}
		n.dropShard(key)
	}

	n.pruneOrphanedDirectories(liveShardIDs)

	n.ready.Store(true)
}

// reconcileShard computes one shard's replica set and opens or drops the
// local engine depending on whether the local address is among them.
func (n *Node) reconcileShard(indexName, shardID string, md *metadata.Metadata, members *cluster.Members) {
	replicas := members.LookupMembers([]byte(shardID), md.NumReplicas())
	assigned := false
	for _, r := range replicas {
		if r.SocketAddress == n.localAddr {
			assigned = true
			break
		}
	}

	key := Key{IndexName: indexName, ShardID: shardID}
	_, exists := n.registry.Get(key)

	switch {
	case assigned && !exists:
		e, err := n.openOrCreateShard(indexName, shardID, md)
		if err != nil {
			n.logger.Warn("reconcile: failed to open shard",
				zap.String("index", indexName), zap.String("shard", shardID), zap.Error(err))
			return
		}
		e.SetMetrics(n.metrics, indexName, shardID)
		n.registry.Store(key, e)
		n.metrics.IncReconcilerAction("assign")
	case !assigned && exists:
		n.dropShard(key) // files stay; another node may still own this replica
		n.metrics.IncReconcilerAction("unassign")
	}
}

// openOrCreateShard opens the on-disk shard directory if present, or
// creates a fresh one under the index's current schema and analyzers.
func (n *Node) openOrCreateShard(indexName, shardID string, md *metadata.Metadata) (*engine.Engine, error) {
	dir := n.shardDir(indexName, shardID)
	if _, err := os.Stat(dir); err == nil {
		return engine.Open(dir, n.logger)
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return nil, bayarderr.ErrDirCreate
	}
	return engine.Create(dir, md.Schema(), md.Analyzers(), n.logger)
}

// dropShard removes the in-memory engine for key without touching disk;
// another node may still own this replica's files.
func (n *Node) dropShard(key Key) {
	e, ok := n.registry.Delete(key)
	if !ok {
		return
	}
	if err := e.Close(); err != nil {
		n.logger.Warn("reconcile: error closing dropped shard engine",
			zap.String("index", key.IndexName), zap.String("shard", key.ShardID), zap.Error(err))
	}
}

// pruneOrphanedDirectories scans disk under indicesDir and removes any
// shard directory whose id is absent from the live set for its index
// (this also catches shard directories never tracked in the registry,
// e.g. left over from a crash before this reconcile pass), and any index
// directory whose name is absent from the metadata snapshot entirely.
// By this point every in-memory
// engine for a disappearing shard or index has already been dropped and
// closed by the loops in Reconcile, so it is always safe to remove the
// files.
func (n *Node) pruneOrphanedDirectories(liveShardIDs map[string]map[string]struct{}) {
	entries, err := os.ReadDir(n.indicesDir)
	if err != nil {
		if !os.IsNotExist(err) {
			n.logger.Warn("reconcile: failed to list indices dir", zap.Error(err))
		}
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		indexName := entry.Name()
		liveShards, ok := liveShardIDs[indexName]
		if !ok {
			if err := os.RemoveAll(n.indexDir(indexName)); err != nil {
				n.logger.Warn("reconcile: failed to remove orphaned index directory",
					zap.String("index", indexName), zap.Error(err))
			}
			continue
		}

		shardsDir := filepath.Join(n.indexDir(indexName), "shards")
		shardEntries, err := os.ReadDir(shardsDir)
		if err != nil {
			continue
		}
		for _, se := range shardEntries {
			if !se.IsDir() {
				continue
			}
			if _, ok := liveShards[se.Name()]; ok {
				continue
			}
			if err := os.RemoveAll(filepath.Join(shardsDir, se.Name())); err != nil {
				n.logger.Warn("reconcile: failed to remove orphaned shard directory",
					zap.String("index", indexName), zap.String("shard", se.Name()), zap.Error(err))
			}
		}
	}
}

func (n *Node) shardDir(indexName, shardID string) string {
	return filepath.Join(n.indicesDir, indexName, "shards", shardID)
}

func (n *Node) indexDir(indexName string) string {
	return filepath.Join(n.indicesDir, indexName)
}
