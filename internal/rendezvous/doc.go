// Package rendezvous implements highest-random-weight (HRW) hashing, the
// deterministic node-selection primitive shared by the shard catalog
// (rendezvous over shard ids), the member set (rendezvous over node
// addresses), and the client pool's read-side rotation.
//
// # Determinism
//
// calc_candidates(key, nodes) is a pure function of (key, the set of node
// ids) — independent of iteration order, insertion order, or any other
// incidental ordering of the input slice. Every node scores independently
// against the key via a stable 64-bit hash; ties break on node id so the
// final ranking is total. This is what gives HRW its defining property:
// removing one node only ever changes that node's own slot in every other
// node's ranking, never the relative order of the survivors (minimal
// disruption).
//
// # Rotation
//
// Rotate layers a lock-free round-robin counter on top of the ranking,
// used by read-side request spraying to spread load evenly
// across the top-N replicas of a shard without retrying the same replica
// twice in a row.
package rendezvous
