package node

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/bayardsearch/bayard/internal/cluster"
	"github.com/bayardsearch/bayard/internal/engine"
	"github.com/bayardsearch/bayard/internal/metadata"
	"github.com/bayardsearch/bayard/internal/metrics"
)

// Node is the single local owner of this machine's shard engines. It is
// driven by Run (the metadata/membership reconciler) and RunMessages
// (the broadcast-apply dispatcher); both may run concurrently with
// request handlers reading the registry.
type Node struct {
	indicesDir string
	localAddr  string
	logger     *zap.Logger
	metrics    metrics.Sink

	registry *registry

	mu          sync.Mutex // guards the two cached snapshots and lastApplied below
	metadatas   map[string]*metadata.Metadata
	members     *cluster.Members
	lastApplied map[string]appliedRecord // index name -> last message applied, for broadcast ordering

	ready atomic.Bool // set once Reconcile has completed a full pass against a membership snapshot
}

// New builds a Node rooted at indicesDir (the same directory the
// metastore watches) representing the local member at localAddr (its
// gossip socket address, matching cluster.Member.SocketAddress). A nil
// sink records nothing.
func New(indicesDir, localAddr string, logger *zap.Logger, sink metrics.Sink) *Node {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = metrics.Noop{}
	}
	return &Node{
		indicesDir:  indicesDir,
		localAddr:   localAddr,
		logger:      logger,
		metrics:     sink,
		registry:    newRegistry(),
		metadatas:   map[string]*metadata.Metadata{},
		lastApplied: map[string]appliedRecord{},
	}
}

// Engine returns the locally-open engine for (indexName, shardID), if the
// reconciler has assigned and opened it. Request handlers (the router,
// the gRPC service) use this to reach the local replica of a shard.
func (n *Node) Engine(indexName, shardID string) (*engine.Engine, bool) {
	return n.registry.Get(Key{IndexName: indexName, ShardID: shardID})
}

// LocalAddr returns the member socket address this Node reconciles
// assignments against.
func (n *Node) LocalAddr() string { return n.localAddr }

// Readiness reports whether Reconcile has completed at least one full pass
// against a membership snapshot. cmd/bayard's /healthz handler gates on this
// so a node is only marked ready once it has had a chance to open the
// shards it's assigned.
func (n *Node) Readiness() bool { return n.ready.Load() }

// Metadata returns the cached metadata for indexName from the most recent
// snapshot Run received, if any.
func (n *Node) Metadata(indexName string) (*metadata.Metadata, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	md, ok := n.metadatas[indexName]
	return md, ok
}
