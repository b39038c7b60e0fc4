// Package cluster implements gossip membership and the Member/Members data
// model: every node discovers and tracks every other node via a SWIM-style
// protocol, piggybacking application control messages (create/delete/modify
// index) on the same gossip traffic.
//
// # Architecture
//
// Membership wraps hashicorp/memberlist, which runs three long-lived
// tasks internally (a UDP reader, a UDP writer, and a single-threaded
// protocol driver that is the sole mutator of gossip state): this
// package supplies the Delegate/EventDelegate glue and
// re-exposes memberlist's callback-driven API as the watch-stream contract
// the rest of the system expects.
//
//	┌──────────────┐   MemberUp/Down    ┌──────────────┐
//	│  memberlist  │ ─────────────────▶ │  eventDeleg  │
//	│  (gossip)    │                    │  (this pkg)  │
//	│              │ ◀───────────────── │              │
//	└──────────────┘   GetBroadcasts    └──────┬───────┘
//	                                           │ watchMembers() / watchMessage()
//	                                           ▼
//	                                   Metastore, Node reconciler, router
//
// # Ordering
//
// Membership is input-serial: memberlist's event delegate callbacks fire
// from its own single-threaded driver goroutine, so every watcher observes
// MemberUp/MemberDown notifications (and thus Members snapshots) in the
// same order they were produced.
//
// # Persistence
//
// On every membership transition, Membership writes the current Members
// snapshot to members.json with write-temp-then-rename semantics so a
// concurrent reader (or a crash mid-write) never observes a partial file.
// Failures to persist are logged and do not block the watch stream.
package cluster
