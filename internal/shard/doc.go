// Package shard defines the Shard value type and the Catalog that owns
// an index's ordered set of shards. A shard here has no local storage of
// its own — that lives in internal/engine — it is only an id, a lifecycle
// state, and a version, tracked by the owning index's Metadata.
//
// Catalog keeps three views over the same shard set in sync: an
// insertion-ordered id slice (for stable serialization order), an id to
// Shard map (for O(1) lookup), and a rendezvous.Ring (for HRW placement
// lookups). All three are rebuilt together under a single mutex whenever the
// set changes, so a reader never observes the slice and the ring
// disagreeing about membership.
package shard
