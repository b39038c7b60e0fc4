// Package node implements the per-node reconciler and message
// dispatcher: the single owner of every local (index, shard)
// writer/reader/index triple, kept in step with the metastore's metadata
// stream and the cluster's membership stream, plus the handler that
// applies incoming CreateIndex/DeleteIndex/ModifyIndex broadcasts to disk.
//
// Writer, reader, and the in-memory index handle collapse into one value
// here: an *engine.Engine already bundles bleve's write batch and its
// live index handle behind one mutex (internal/engine), so there is no
// separate reader object to track — opening or dropping an Engine is both
// operations at once.
//
// # Reconciliation
//
// Reconcile is a pure function of its two inputs — the latest metadata
// snapshot and the latest membership snapshot — run again in full on
// every tick of either stream — a membership-only change (a node
// leaving, its shards becoming under-replicated) triggers a full
// recompute the same way a metadata change does. For
// every shard of every index it asks the member ring who the replicas are
// (rendezvous over the shard id), opens or creates a local Engine if the
// local address is among them and none exists yet, and drops (but never
// deletes) the local Engine otherwise. A shard id or index name that
// disappears from the metadata snapshot entirely is cleaned up from disk
// — deletion is always driven by absence from metadata, never by
// membership alone, so a node can never delete a replica another node
// still depends on just because of a transient membership blip.
//
// # Message dispatch
//
// Each broadcast message carries a unix-seconds version, and conflicting
// messages about the same index name are resolved by (version, then kind
// priority Delete > Modify > Create): gossip does not guarantee causal
// order across message kinds, so a total order has to be imposed at the
// point of application.
package node
