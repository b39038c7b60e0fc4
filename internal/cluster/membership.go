package cluster

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/memberlist"
	"go.uber.org/zap"

	"github.com/bayardsearch/bayard/internal/bayarderr"
	"github.com/bayardsearch/bayard/internal/metrics"
)

// Config configures a Membership instance. BindAddr/BindPort are the UDP
// gossip socket; GRPCAddress/HTTPAddress are advertised to peers as this
// member's metadata so the client pool and the admin surface can reach it.
type Config struct {
	NodeName      string
	BindAddr      string
	BindPort      int
	AdvertiseAddr string
	AdvertisePort int
	GRPCAddress   string
	HTTPAddress   string
	MembersFile   string
	Logger        *zap.Logger
	Metrics       metrics.Sink
}

// Membership owns the gossip layer and the authoritative Members set. It
// wraps hashicorp/memberlist's SWIM implementation — a UDP reader, a UDP
// writer, and a single-threaded protocol driver that is the sole mutator
// of gossip state — and supplies the Delegate/EventDelegate glue plus the
// watch-stream contract.
type Membership struct {
	ml         *memberlist.Memberlist
	broadcasts *memberlist.TransmitLimitedQueue
	members    *Members
	localAddr  string
	localMeta  *MemberMetadata

	membersFile string
	logger      *zap.Logger
	metrics     metrics.Sink

	mu         sync.Mutex
	memberSubs []chan *Members
	msgSubs    []chan Message
}

// New starts gossip membership and blocks until the local node has joined
// its own memberlist instance (it always succeeds in joining itself;
// joining the rest of the cluster is a separate Join call).
func New(cfg Config) (*Membership, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop{}
	}

	m := &Membership{
		members:     NewMembers(),
		localMeta:   &MemberMetadata{GRPCAddress: cfg.GRPCAddress, HTTPAddress: cfg.HTTPAddress},
		membersFile: cfg.MembersFile,
		logger:      cfg.Logger.With(zap.String("component", "cluster")),
		metrics:     cfg.Metrics,
	}
	// The transmit queue must exist before Create: memberlist's gossip
	// scheduler starts immediately and polls GetBroadcasts.
	m.broadcasts = &memberlist.TransmitLimitedQueue{
		NumNodes: func() int {
			if m.ml == nil {
				return 1
			}
			return m.ml.NumMembers()
		},
		RetransmitMult: 3,
	}

	mlConfig := memberlist.DefaultLANConfig()
	mlConfig.Name = cfg.NodeName
	mlConfig.BindAddr = cfg.BindAddr
	mlConfig.BindPort = cfg.BindPort
	mlConfig.AdvertiseAddr = cfg.AdvertiseAddr
	mlConfig.AdvertisePort = cfg.AdvertisePort
	mlConfig.Delegate = m
	mlConfig.Events = m
	mlConfig.LogOutput = zapWriter{m.logger}

	ml, err := memberlist.Create(mlConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", bayarderr.ErrSocketBinding, err)
	}
	m.ml = ml
	// Key the local member by the advertise address memberlist actually
	// resolved: when cfg.AdvertiseAddr is unset or 0.0.0.0, this is the
	// detected interface address peers will see in their rings, and the
	// reconciler's "am I a replica" check depends on the two matching.
	m.localAddr = nodeAddr(ml.LocalNode())

	m.members.Push(Member{SocketAddress: m.localAddr, Metadata: m.localMeta, Version: 1})
	m.persist()
	return m, nil
}

// Join contacts the given peer addresses to join the cluster. At least one
// must succeed.
func (m *Membership) Join(addrs []string) (int, error) {
	n, err := m.ml.Join(addrs)
	if err != nil {
		return n, fmt.Errorf("%w: %v", bayarderr.ErrSocketBinding, err)
	}
	return n, nil
}

// Shutdown leaves the cluster gracefully and tears down the gossip socket.
func (m *Membership) Shutdown() error {
	_ = m.ml.Leave(leaveTimeout)
	return m.ml.Shutdown()
}

// LocalMember returns this node's own Member entry.
func (m *Membership) LocalMember() Member {
	mem, _ := m.members.Get(m.localAddr)
	return mem
}

// RemoteMembers returns every member other than the local one.
func (m *Membership) RemoteMembers() []Member {
	all := m.members.All()
	out := make([]Member, 0, len(all))
	for _, mem := range all {
		if mem.SocketAddress != m.localAddr {
			out = append(out, mem)
		}
	}
	return out
}

// Members returns a point-in-time snapshot of the full member set.
func (m *Membership) Members() *Members {
	return m.members.Snapshot()
}

// WatchMembers returns a lazy hot stream of Members snapshots, one per
// membership transition, seeded with the current snapshot. The returned
// channel is buffered (1); a slow subscriber only ever sees the most recent
// snapshot, never a backlog.
func (m *Membership) WatchMembers() <-chan *Members {
	ch := make(chan *Members, 1)
	ch <- m.members.Snapshot()
	m.mu.Lock()
	m.memberSubs = append(m.memberSubs, ch)
	m.mu.Unlock()
	return ch
}

// WatchMessage returns a stream of inbound application broadcast messages.
func (m *Membership) WatchMessage() <-chan Message {
	ch := make(chan Message, 16)
	m.mu.Lock()
	m.msgSubs = append(m.msgSubs, ch)
	m.mu.Unlock()
	return ch
}

// Broadcast enqueues msg for gossip dissemination, stamping Version with the
// current unix time when the caller left it zero. It fails BroadcastFailure
// only if the message cannot be encoded; enqueuing onto the transmit queue
// itself cannot fail.
func (m *Membership) Broadcast(msg Message) error {
	if msg.Version == 0 {
		msg.Version = time.Now().Unix()
	}
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("%w: %v", bayarderr.ErrBroadcast, err)
	}
	m.broadcasts.QueueBroadcast(controlBroadcast{msg: data})
	m.metrics.IncBroadcastSent(string(msg.Kind))
	return nil
}

func (m *Membership) publishMembers() {
	snap := m.members.Snapshot()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.memberSubs {
		select {
		case <-ch: // drop stale snapshot, keep the stream hot not backlogged
		default:
		}
		ch <- snap
	}
}

func (m *Membership) publishMessage(msg Message) {
	m.metrics.IncBroadcastReceived(string(msg.Kind))
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.msgSubs {
		select {
		case ch <- msg:
		default:
			m.logger.Warn("dropping control message, subscriber channel full", zap.String("kind", string(msg.Kind)))
		}
	}
}

// persist writes the current Members snapshot to membersFile with
// write-temp-then-rename semantics so a reader (or a crash mid-write)
// never observes a partially written file. Failures are logged, never
// propagated — persistence must not block the membership stream.
func (m *Membership) persist() {
	if m.membersFile == "" {
		return
	}
	all := m.members.All()
	sort.Slice(all, func(i, j int) bool { return all[i].SocketAddress < all[j].SocketAddress })

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		m.logger.Warn("marshal members.json failed", zap.Error(err))
		return
	}

	dir := filepath.Dir(m.membersFile)
	tmp, err := os.CreateTemp(dir, ".members-*.json.tmp")
	if err != nil {
		m.logger.Warn("create temp members file failed", zap.Error(err))
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		m.logger.Warn("write members.json failed", zap.Error(err))
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		m.logger.Warn("close temp members file failed", zap.Error(err))
		return
	}
	if err := os.Rename(tmpName, m.membersFile); err != nil {
		os.Remove(tmpName)
		m.logger.Warn("rename members.json failed", zap.Error(err))
	}
}

const leaveTimeout = 5 * time.Second
