// Package clientpool holds one lazily-connected gRPC channel per cluster
// member, keyed by socket address, and keeps that map in step with the
// membership watch stream: a member appearing creates a channel, a member
// disappearing drops it.
//
// The pool layers two more operations on top of the map: Lookup, which
// asks a rendezvous.Ring for the single top-ranked member for a key, and
// LookupClients/Rotate, which ask for the top-n and either return all n or
// round-robin through them one at a time. These back both halves of the
// request router: write fan-out dials every replica of a shard
// concurrently, read scatter-gather rotates through a shard's replicas to
// spread load and fail over.
//
// Channels are created with grpc.NewClient, which does not dial on
// construction — the "lazy connect, no round-trip until first RPC"
// semantics come from gRPC's own lazy subchannel behavior, not from any
// connect step this package performs itself.
package clientpool
