// Package shard implements the Shard value type and the shard Catalog. See
// doc.go for package documentation.
package shard

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"sync"

	"github.com/bayardsearch/bayard/internal/bayarderr"
	"github.com/bayardsearch/bayard/internal/rendezvous"
)

// State is a Shard's lifecycle state.
type State string

const (
	// Serving shards accept reads and writes.
	Serving State = "serving"
	// Draining shards still accept reads but are being retired from the
	// write path ahead of removal.
	Draining State = "draining"
	// Drained shards accept neither reads nor writes and are ready to be
	// popped from the catalog.
	Drained State = "drained"
)

// Shard is (id, state, version): an opaque 8-char token, a lifecycle state,
// and a monotonic version bumped on every state transition. It owns no
// storage of its own — the writer/reader pair for a shard lives in
// internal/engine, keyed by (index name, shard id).
type Shard struct {
	id      string
	state   State
	version uint64
}

// idEncoding renders shard ids as standard uppercase base32 (A-Z, 2-7) so they are
// filesystem-safe and URL-safe without further escaping.
var idEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewID generates a fresh opaque 8-char shard id. Ids are never reused
// across shards of the same index; the odds of a random collision across
// a realistic shard count are negligible, so callers are not expected to
// check for collisions beyond Catalog.Push's idempotence-by-id guard.
func NewID() (string, error) {
	buf := make([]byte, 5) // base32 of 5 bytes = 8 chars, no padding
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: %v", bayarderr.ErrInvalidArgument, err)
	}
	return idEncoding.EncodeToString(buf)[:8], nil
}

// New creates a Shard in the Serving state at version 1.
func New(id string) Shard {
	return Shard{id: id, state: Serving, version: 1}
}

// FromParts reconstructs a Shard with explicit state and version, used when
// deserializing a persisted shard entry (metadata.UnmarshalJSON) where the
// state and version were already recorded on disk.
func FromParts(id string, state State, version uint64) Shard {
	return Shard{id: id, state: state, version: version}
}

// ID returns the shard's immutable id.
func (s Shard) ID() string { return s.id }

// State returns the shard's current lifecycle state.
func (s Shard) State() State { return s.state }

// Version returns the shard's monotonic version counter.
func (s Shard) Version() uint64 { return s.version }

// WithState returns a copy of s transitioned to state with version bumped by
// one. It does not validate the transition; callers are responsible for
// only requesting legal transitions.
func (s Shard) WithState(state State) Shard {
	return Shard{id: s.id, state: state, version: s.version + 1}
}

// RendezvousID satisfies rendezvous.Node so a Catalog can rank its shards by
// HRW against arbitrary keys.
func (s Shard) RendezvousID() string { return s.id }

// Catalog is the insertion-ordered set of shards belonging to one index,
// plus an HRW ring over their ids. All mutation goes through a single
// mutex so the ordered slice, the id map, and the ring are always rebuilt
// together and never observed out of sync with one another.
type Catalog struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Shard
	ring  *rendezvous.Ring[Shard]
}

// NewCatalog builds a Catalog from shards in the given order. Duplicate ids
// are collapsed, keeping the first occurrence's position — mirroring Push's
// idempotence.
func NewCatalog(shards ...Shard) *Catalog {
	c := &Catalog{byID: make(map[string]Shard, len(shards))}
	for _, s := range shards {
		c.pushLocked(s)
	}
	c.rebuildRingLocked()
	return c
}

// Push appends s to the catalog. It is a no-op if s.ID() is already present
// — the existing entry (including its state and version) is left untouched.
func (c *Catalog) Push(s Shard) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[s.id]; ok {
		return
	}
	c.pushLocked(s)
	c.rebuildRingLocked()
}

func (c *Catalog) pushLocked(s Shard) {
	if c.byID == nil {
		c.byID = make(map[string]Shard)
	}
	if _, ok := c.byID[s.id]; ok {
		return
	}
	c.order = append(c.order, s.id)
	c.byID[s.id] = s
}

// Pop removes and returns the last shard in insertion order. ok is false if
// the catalog is empty.
func (c *Catalog) Pop() (s Shard, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.order) == 0 {
		return Shard{}, false
	}
	lastID := c.order[len(c.order)-1]
	s = c.byID[lastID]
	c.order = c.order[:len(c.order)-1]
	delete(c.byID, lastID)
	c.rebuildRingLocked()
	return s, true
}

// Remove deletes the shard with the given id, wherever it sits in the
// order. ok is false if no such shard exists.
func (c *Catalog) Remove(id string) (s Shard, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok = c.byID[id]
	if !ok {
		return Shard{}, false
	}
	delete(c.byID, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.rebuildRingLocked()
	return s, true
}

// Update replaces the stored shard for s.ID() with s (e.g. after a state
// transition produced by Shard.WithState). It is a no-op if s.ID() is not
// present — callers should Push first if the shard is new.
func (c *Catalog) Update(s Shard) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byID[s.id]; !ok {
		return
	}
	c.byID[s.id] = s
	c.rebuildRingLocked()
}

// Get returns the shard with the given id.
func (c *Catalog) Get(id string) (Shard, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[id]
	return s, ok
}

// Len reports how many shards the catalog holds.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Iter returns all shards in insertion order.
func (c *Catalog) Iter() []Shard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.iterLocked(func(Shard) bool { return true })
}

// IterServing returns Serving shards in insertion order.
func (c *Catalog) IterServing() []Shard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.iterLocked(func(s Shard) bool { return s.state == Serving })
}

// IterDraining returns Draining shards in insertion order.
func (c *Catalog) IterDraining() []Shard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.iterLocked(func(s Shard) bool { return s.state == Draining })
}

// IterDrained returns Drained shards in insertion order.
func (c *Catalog) IterDrained() []Shard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.iterLocked(func(s Shard) bool { return s.state == Drained })
}

func (c *Catalog) iterLocked(keep func(Shard) bool) []Shard {
	out := make([]Shard, 0, len(c.order))
	for _, id := range c.order {
		if s := c.byID[id]; keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// LookupShard returns the top HRW candidate for key, regardless of state.
// Callers that need only serving shards must use LookupServingShard.
func (c *Catalog) LookupShard(key []byte) (Shard, bool) {
	top := c.LookupShards(key, 1)
	if len(top) == 0 {
		return Shard{}, false
	}
	return top[0], true
}

// LookupShards returns the top n HRW candidates for key, regardless of
// state.
func (c *Catalog) LookupShards(key []byte, n int) []Shard {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ring == nil {
		return nil
	}
	return c.ring.CalcTopNCandidates(key, n)
}

// LookupServingShard returns the top HRW candidate among Serving shards
// only.
func (c *Catalog) LookupServingShard(key []byte) (Shard, bool) {
	top := c.LookupServingShards(key, 1)
	if len(top) == 0 {
		return Shard{}, false
	}
	return top[0], true
}

// LookupServingShards returns the top n HRW candidates among Serving shards
// only, post-filtering the full ranking by state.
func (c *Catalog) LookupServingShards(key []byte, n int) []Shard {
	return c.lookupFiltered(key, n, func(s Shard) bool { return s.state == Serving })
}

func (c *Catalog) lookupFiltered(key []byte, n int, keep func(Shard) bool) []Shard {
	c.mu.RLock()
	ring := c.ring
	c.mu.RUnlock()
	if ring == nil {
		return nil
	}
	out := make([]Shard, 0, n)
	for _, s := range ring.CalcCandidates(key) {
		if !keep(s) {
			continue
		}
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}

func (c *Catalog) rebuildRingLocked() {
	shards := make([]Shard, len(c.order))
	for i, id := range c.order {
		shards[i] = c.byID[id]
	}
	c.ring = rendezvous.New(shards)
}

// MarshalIDs returns the shard ids in insertion order, the order
// Metadata's serialization persists them in.
func (c *Catalog) MarshalIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
