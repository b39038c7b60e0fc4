package rendezvous

import (
	"math"
	"sort"
)

// WeightedNode additionally exposes a capacity used to bias HRW scoring
// toward nodes with more room, for heterogeneous fleets. Capacity must
// be > 0.
type WeightedNode interface {
	Node
	RendezvousCapacity() float64
}

// WeightedRing is the weighted variant of Ring: the top-N contract is
// unchanged, only the score function differs. It suits the member ring
// when members have heterogeneous capacity; shards always use the
// unweighted Ring.
type WeightedRing[N WeightedNode] struct {
	nodes []N
}

// NewWeighted builds a weighted ring over nodes.
func NewWeighted[N WeightedNode](nodes []N) *WeightedRing[N] {
	cp := make([]N, len(nodes))
	copy(cp, nodes)
	return &WeightedRing[N]{nodes: cp}
}

type weightedCandidate[N WeightedNode] struct {
	node  N
	id    string
	score float64
}

// weightedScore derives the classical -w/ln(u) transform: u is the plain
// HRW hash normalized into (0, 1], and w is the node's capacity. As
// capacity grows, -w/ln(u) grows (ln(u) is negative), so higher-capacity
// nodes are more likely to rank first for a uniformly random key
// proportional to their share of total capacity.
func weightedScore(key []byte, nodeID string, capacity float64) float64 {
	h := score(key, nodeID)
	// Map the 64-bit hash onto (0, 1]. 2^64 as a float64 loses precision
	// but the tail bits don't matter for this transform's purpose.
	u := (float64(h) + 1) / (math.MaxUint64 + 1.0)
	return -capacity / math.Log(u)
}

// CalcCandidates ranks every node for key by weighted score, descending,
// breaking ties on node id descending.
func (r *WeightedRing[N]) CalcCandidates(key []byte) []N {
	cands := make([]weightedCandidate[N], len(r.nodes))
	for i, n := range r.nodes {
		id := n.RendezvousID()
		cands[i] = weightedCandidate[N]{node: n, id: id, score: weightedScore(key, id, n.RendezvousCapacity())}
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

// CalcTopNCandidates returns the top n ranked nodes for key.
func (r *WeightedRing[N]) CalcTopNCandidates(key []byte, n int) []N {
	all := r.CalcCandidates(key)
	if n < len(all) {
		return all[:n]
	}
	return all
}
