package clientpool

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/bayardsearch/bayard/internal/bayarderr"
	"github.com/bayardsearch/bayard/internal/cluster"
	"github.com/bayardsearch/bayard/internal/rendezvous"
)

// addrNode ranks pool entries by socket address, independent of whatever
// Member metadata happens to be attached.
type addrNode string

func (a addrNode) RendezvousID() string { return string(a) }

// Pool is a socket-address-keyed map of lazily-connected gRPC channels,
// kept in step with cluster membership. It is safe for concurrent use.
type Pool struct {
	mu    sync.RWMutex
	conns map[string]*grpc.ClientConn
	ring  *rendezvous.Ring[addrNode]

	logger *zap.Logger
}

// New builds an empty Pool. Callers drive it by feeding membership
// snapshots to Reconcile, typically from a loop reading
// cluster.Membership.WatchMembers().
func New(logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		conns:  map[string]*grpc.ClientConn{},
		ring:   rendezvous.New[addrNode](nil),
		logger: logger,
	}
}

// Reconcile brings the pool's channel set to match members: a member whose
// socket address has no channel yet gets one dialed lazily against its
// advertised GRPCAddress; a channel whose member is no longer present is
// closed and dropped. New channels are created before stale ones are
// torn down, so a concurrent lookup during a tick never sees an
// artificially empty pool.
func (p *Pool) Reconcile(members *cluster.Members) {
	want := map[string]string{} // socket addr -> grpc addr
	for _, m := range members.All() {
		if m.Metadata == nil || m.Metadata.GRPCAddress == "" {
			continue
		}
		want[m.SocketAddress] = m.Metadata.GRPCAddress
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for addr, grpcAddr := range want {
		if _, ok := p.conns[addr]; ok {
			continue
		}
		conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			p.logger.Warn("clientpool: dial failed", zap.String("addr", addr), zap.Error(err))
			continue
		}
		p.conns[addr] = conn
	}

	for addr, conn := range p.conns {
		if _, ok := want[addr]; ok {
			continue
		}
		_ = conn.Close()
		delete(p.conns, addr)
	}

	p.rebuildRingLocked()
}

func (p *Pool) rebuildRingLocked() {
	nodes := make([]addrNode, 0, len(p.conns))
	for addr := range p.conns {
		nodes = append(nodes, addrNode(addr))
	}
	p.ring = rendezvous.New(nodes)
}

// Get returns the channel for a known socket address.
func (p *Pool) Get(addr string) (*grpc.ClientConn, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	conn, ok := p.conns[addr]
	return conn, ok
}

// Lookup returns the channel for the single top-ranked member for key.
func (p *Pool) Lookup(key []byte) (*grpc.ClientConn, error) {
	clients := p.LookupClients(key, 1)
	if len(clients) == 0 {
		return nil, fmt.Errorf("%w: no members available for key", bayarderr.ErrMemberNotFound)
	}
	return clients[0], nil
}

// LookupClients returns up to n channels for the top-ranked members for
// key. Used by write fan-out, which dials every replica of a shard
// concurrently.
func (p *Pool) LookupClients(key []byte, n int) []*grpc.ClientConn {
	p.mu.RLock()
	defer p.mu.RUnlock()
	addrs := p.ring.CalcTopNCandidates(key, n)
	out := make([]*grpc.ClientConn, 0, len(addrs))
	for _, a := range addrs {
		if conn, ok := p.conns[string(a)]; ok {
			out = append(out, conn)
		}
	}
	return out
}

// Rotate returns one channel from the top-n candidates for key,
// round-robining across calls with the same (key, n). Used by read-side
// scatter-gather to spread load across a shard's replicas without
// retrying the same replica twice in a row.
func (p *Pool) Rotate(key []byte, n int) (*grpc.ClientConn, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	node, ok := p.ring.Rotate(key, n)
	if !ok {
		return nil, false
	}
	conn, ok := p.conns[string(node)]
	return conn, ok
}

// Close tears down every channel in the pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for addr, conn := range p.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.conns, addr)
	}
	p.rebuildRingLocked()
	return firstErr
}
