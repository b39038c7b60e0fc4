package cluster

import (
	"sync"

	"github.com/bayardsearch/bayard/internal/rendezvous"
)

// Members is the address → Member map plus an HRW ring over addresses.
// All mutation goes through Push/Remove, which rebuild
// the ring under the same lock so LookupMembers never observes a ring that
// disagrees with the map.
type Members struct {
	mu     sync.RWMutex
	byAddr map[string]Member
	ring   *rendezvous.Ring[Member]
}

// NewMembers builds an empty Members set.
func NewMembers() *Members {
	return &Members{byAddr: make(map[string]Member), ring: rendezvous.New[Member](nil)}
}

// Push inserts or replaces the member at m.SocketAddress. If an entry
// already exists with identical metadata, this is a no-op and Push returns
// (Member{}, false). Otherwise the entry is replaced (its version bumped
// rather than taken verbatim, so two pushes for the same address always
// produce a strictly increasing version) and Push returns (the new member,
// true).
func (s *Members) Push(m Member) (Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byAddr[m.SocketAddress]
	if ok && metadataEqual(existing.Metadata, m.Metadata) {
		return Member{}, false
	}
	if ok {
		m.Version = existing.Version + 1
	} else if m.Version == 0 {
		m.Version = 1
	}
	s.byAddr[m.SocketAddress] = m
	s.rebuildRingLocked()
	return m, true
}

// Remove deletes the member at addr, if present, returning it.
func (s *Members) Remove(addr string) (Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byAddr[addr]
	if !ok {
		return Member{}, false
	}
	delete(s.byAddr, addr)
	s.rebuildRingLocked()
	return m, true
}

// Get returns the member at addr.
func (s *Members) Get(addr string) (Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byAddr[addr]
	return m, ok
}

// Len reports the current member count.
func (s *Members) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byAddr)
}

// All returns a snapshot of every member; order is not significant.
func (s *Members) All() []Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Member, 0, len(s.byAddr))
	for _, m := range s.byAddr {
		out = append(out, m)
	}
	return out
}

// LookupMembers returns the top n members ranked by HRW for key (used by
// the node reconciler to compute a shard's replica set; the router picks
// its targets through the client pool's own ring instead).
func (s *Members) LookupMembers(key []byte, n int) []Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ring.CalcTopNCandidates(key, n)
}

// Snapshot returns a deep copy of the set, used when publishing to
// watch_members() subscribers so a later mutation of s cannot be observed
// by a holder of an older snapshot.
func (s *Members) Snapshot() *Members {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := NewMembers()
	for _, m := range s.byAddr {
		cp.byAddr[m.SocketAddress] = m
	}
	cp.rebuildRingLocked()
	return cp
}

func (s *Members) rebuildRingLocked() {
	members := make([]Member, 0, len(s.byAddr))
	for _, m := range s.byAddr {
		members = append(members, m)
	}
	s.ring = rendezvous.New(members)
}
