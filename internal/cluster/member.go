package cluster

// MemberMetadata carries the optional routable addresses a member
// advertises to the rest of the cluster, beyond the gossip socket address
// itself.
type MemberMetadata struct {
	GRPCAddress string `json:"grpc_address,omitempty"`
	HTTPAddress string `json:"http_address,omitempty"`
}

// Member is the immutable composite (socket_address, metadata?, version).
// Equality for placement purposes is by SocketAddress; Version only
// disambiguates two members sharing an address during a fast restart, the
// higher one winning.
type Member struct {
	SocketAddress string          `json:"socket_address"`
	Metadata      *MemberMetadata `json:"metadata,omitempty"`
	Version       uint64          `json:"version"`
}

// RendezvousID satisfies rendezvous.Node so Members can rank members by HRW
// against a shard id.
func (m Member) RendezvousID() string { return m.SocketAddress }

// metadataEqual reports whether two (possibly nil) metadata pointers carry
// the same advertised addresses.
func metadataEqual(a, b *MemberMetadata) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
