// Package metadata implements the per-index Metadata entity: schema,
// analyzer pipelines, writer tuning, replica/shard counts, and the shard
// catalog itself, plus JSON (de)serialization matching the on-disk
// meta.json format the metastore watches.
//
// Each Metadata is guarded by a single RWMutex rather than one lock per
// field: num_shards and shards are not independent (SetNumShards mutates
// shards), and separate locks for the two would let a reader observe a
// num_shards/shards pair that never existed together. A single RWMutex
// still lets any number of concurrent reconcilers read while an
// administrator mutates.
package metadata
