// Package router implements the distributed request router: a
// per-request fan-out that uses the rendezvous ring (via the client pool)
// to pick target shards and replicas, issues sub-requests with retry, and
// merges per-shard search results.
//
// Write-side ops (put_documents, delete_documents, commit, rollback) fan
// out to every replica of the affected shard(s) and require every replica
// task to succeed — this is intentionally
// at-least-once, relying on the shard engine's idempotent upsert and
// idempotent commit/rollback. Read-side search fans out once per shard and
// rotates across replicas rather than retrying the same one, merging
// per-shard results by score or by a requested sort field.
package router
