package rendezvous

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// Node is anything that can be ranked by the ring: a stable identity
// string that is fed into the hash after the item key.
type Node interface {
	RendezvousID() string
}

// Ring ranks a fixed set of nodes for arbitrary keys using HRW (highest
// random weight) hashing. A Ring is safe for concurrent use: CalcCandidates
// and CalcTopN are pure reads over the immutable node slice, and Rotate's
// counters are stored in a sync.Map of *atomic.Uint64, one per (key, n)
// pair ever rotated.
type Ring[N Node] struct {
	nodes    []N
	counters sync.Map // rotateKey -> *atomic.Uint64
}

// New builds a ring over nodes. The slice is copied; later mutation of the
// caller's slice does not affect the ring. Rings are cheap to rebuild from
// scratch whenever the node set changes — callers are not expected to
// mutate a Ring in place.
func New[N Node](nodes []N) *Ring[N] {
	cp := make([]N, len(nodes))
	copy(cp, nodes)
	return &Ring[N]{nodes: cp}
}

// candidate pairs a node with its score against one key, kept around only
// long enough to sort.
type candidate[N Node] struct {
	node  N
	id    string
	score uint64
}

// score computes H(H_init . key . node_id): the item bytes are hashed
// first, then the node id, through xxhash's streaming 64-bit hash. Feeding
// the key before the id (rather than hashing them independently and
// combining) is what makes the score a function of the pair as a whole,
// not of either input alone.
func score(key []byte, nodeID string) uint64 {
	h := xxhash.New()
	h.Write(key)
	h.Write([]byte(nodeID))
	return h.Sum64()
}

// CalcCandidates returns every node ranked for key, highest score first,
// with node id (descending) breaking ties so the ordering is total. The
// result is a deterministic function of (key, the set of node ids): the
// order nodes were supplied to New does not affect it.
func (r *Ring[N]) CalcCandidates(key []byte) []N {
	cands := make([]candidate[N], len(r.nodes))
	for i, n := range r.nodes {
		id := n.RendezvousID()
		cands[i] = candidate[N]{node: n, id: id, score: score(key, id)}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].id > cands[j].id
	})
	out := make([]N, len(cands))
	for i, c := range cands {
		out[i] = c.node
	}
	return out
}

// CalcTopNCandidates returns the top n ranked nodes for key (or fewer, if
// the ring has fewer than n nodes).
func (r *Ring[N]) CalcTopNCandidates(key []byte, n int) []N {
	all := r.CalcCandidates(key)
	if n < len(all) {
		return all[:n]
	}
	return all
}

// Len reports how many nodes the ring holds.
func (r *Ring[N]) Len() int { return len(r.nodes) }

// Rotate returns the ranking's i-th entry among the top n candidates for
// key and atomically advances i := (i+1) mod n for the next call with the
// same (key, n) pair: n consecutive calls visit each of the top-n exactly
// once, spreading read load evenly. Returns false if the ring is empty.
func (r *Ring[N]) Rotate(key []byte, n int) (N, bool) {
	var zero N
	top := r.CalcTopNCandidates(key, n)
	if len(top) == 0 {
		return zero, false
	}
	counter := r.counterFor(string(key), n)
	idx := counter.Add(1) - 1
	return top[int(idx)%len(top)], true
}

func (r *Ring[N]) counterFor(key string, n int) *atomic.Uint64 {
	rotateKey := key + "\x00" + strconv.Itoa(n)
	actual, _ := r.counters.LoadOrStore(rotateKey, new(atomic.Uint64))
	return actual.(*atomic.Uint64)
}
