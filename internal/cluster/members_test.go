package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembersPushNewMember(t *testing.T) {
	s := NewMembers()
	m, changed := s.Push(Member{SocketAddress: "10.0.0.1:7946"})
	assert.True(t, changed)
	assert.Equal(t, uint64(1), m.Version)
	assert.Equal(t, 1, s.Len())
}

func TestMembersPushIdenticalMetadataIsNoop(t *testing.T) {
	s := NewMembers()
	meta := &MemberMetadata{GRPCAddress: "10.0.0.1:9000"}
	s.Push(Member{SocketAddress: "10.0.0.1:7946", Metadata: meta})

	_, changed := s.Push(Member{SocketAddress: "10.0.0.1:7946", Metadata: &MemberMetadata{GRPCAddress: "10.0.0.1:9000"}})
	assert.False(t, changed, "identical metadata must not report a change")
}

func TestMembersPushDifferentMetadataBumpsVersion(t *testing.T) {
	s := NewMembers()
	s.Push(Member{SocketAddress: "10.0.0.1:7946", Metadata: &MemberMetadata{GRPCAddress: "10.0.0.1:9000"}})
	m, changed := s.Push(Member{SocketAddress: "10.0.0.1:7946", Metadata: &MemberMetadata{GRPCAddress: "10.0.0.1:9001"}})
	require.True(t, changed)
	assert.Equal(t, uint64(2), m.Version)
}

func TestMembersRemove(t *testing.T) {
	s := NewMembers()
	s.Push(Member{SocketAddress: "10.0.0.1:7946"})
	m, ok := s.Remove("10.0.0.1:7946")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1:7946", m.SocketAddress)
	assert.Equal(t, 0, s.Len())

	_, ok = s.Remove("10.0.0.1:7946")
	assert.False(t, ok)
}

func TestMembersLookupMembersIsDeterministic(t *testing.T) {
	s := NewMembers()
	for _, addr := range []string{"a:1", "b:2", "c:3", "d:4"} {
		s.Push(Member{SocketAddress: addr})
	}
	key := []byte("shard-xyz")
	first := s.LookupMembers(key, 2)
	second := s.LookupMembers(key, 2)
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestMembersSnapshotIsIndependent(t *testing.T) {
	s := NewMembers()
	s.Push(Member{SocketAddress: "a:1"})
	snap := s.Snapshot()

	s.Push(Member{SocketAddress: "b:2"})
	assert.Equal(t, 1, snap.Len(), "mutating the source after Snapshot must not affect the snapshot")
	assert.Equal(t, 2, s.Len())
}
