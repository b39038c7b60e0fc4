package cluster

import (
	"encoding/json"
	"net"
	"strconv"

	"github.com/hashicorp/memberlist"
	"go.uber.org/zap"
)

// controlBroadcast adapts an encoded Message to memberlist.Broadcast.
type controlBroadcast struct {
	msg []byte
}

func (b controlBroadcast) Invalidates(memberlist.Broadcast) bool { return false }
func (b controlBroadcast) Message() []byte                       { return b.msg }
func (b controlBroadcast) Finished()                             {}

// NodeMeta returns this node's advertised metadata, gossiped alongside its
// alive message so peers learn grpc_address/http_address without a
// separate round trip.
func (m *Membership) NodeMeta(limit int) []byte {
	data, err := json.Marshal(m.localMeta)
	if err != nil || len(data) > limit {
		return nil
	}
	return data
}

// NotifyMsg handles an inbound application broadcast piggybacked on
// gossip traffic.
func (m *Membership) NotifyMsg(buf []byte) {
	msg, err := DecodeMessage(buf)
	if err != nil {
		m.logger.Warn("discarding malformed control message", zap.Error(err))
		return
	}
	m.publishMessage(msg)
}

// GetBroadcasts drains the transmit-limited queue of pending control
// messages for piggybacking onto the next gossip round.
func (m *Membership) GetBroadcasts(overhead, limit int) [][]byte {
	return m.broadcasts.GetBroadcasts(overhead, limit)
}

// LocalState and MergeRemoteState are unused: this membership layer relies
// entirely on per-node metadata (NodeMeta) and broadcasts for state
// exchange, not memberlist's push/pull state sync.
func (m *Membership) LocalState(join bool) []byte            { return nil }
func (m *Membership) MergeRemoteState(buf []byte, join bool) {}

// NotifyJoin implements memberlist.EventDelegate: a MemberUp transition.
func (m *Membership) NotifyJoin(node *memberlist.Node) {
	m.upsertNode(node)
}

// NotifyUpdate implements memberlist.EventDelegate: the node's metadata
// changed (e.g. grpc_address changed across a restart).
func (m *Membership) NotifyUpdate(node *memberlist.Node) {
	m.upsertNode(node)
}

// NotifyLeave implements memberlist.EventDelegate: a MemberDown transition.
func (m *Membership) NotifyLeave(node *memberlist.Node) {
	addr := nodeAddr(node)
	if _, ok := m.members.Remove(addr); ok {
		m.persist()
		m.publishMembers()
	}
}

func (m *Membership) upsertNode(node *memberlist.Node) {
	addr := nodeAddr(node)
	var meta *MemberMetadata
	if len(node.Meta) > 0 {
		meta = &MemberMetadata{}
		if err := json.Unmarshal(node.Meta, meta); err != nil {
			m.logger.Warn("discarding malformed node metadata", zap.String("addr", addr), zap.Error(err))
			meta = nil
		}
	}
	if _, changed := m.members.Push(Member{SocketAddress: addr, Metadata: meta}); changed {
		m.persist()
		m.publishMembers()
	}
}

func nodeAddr(node *memberlist.Node) string {
	return net.JoinHostPort(node.Addr.String(), strconv.Itoa(int(node.Port)))
}

// zapWriter adapts *zap.Logger to io.Writer for memberlist's LogOutput,
// which otherwise expects a *log.Logger.
type zapWriter struct {
	logger *zap.Logger
}

func (w zapWriter) Write(p []byte) (int, error) {
	w.logger.Info(string(p))
	return len(p), nil
}
