// Package bayarderr enumerates the error kinds used across Bayard's core
// components (cluster, metadata, metastore, node, router, engine) as
// sentinel values that can be matched with errors.Is, and a small Code type
// used to translate those kinds into the coarse outer codes the router and
// gRPC boundary return to callers.
package bayarderr

import "errors"

// Configuration-kind errors. Returned by mutators and loaders that reject
// malformed input before any I/O happens.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrMetadata        = errors.New("metadata error")
	ErrInvalidPath     = errors.New("invalid path")
	ErrSchema          = errors.New("schema error")
	ErrConfigNotExist  = errors.New("config does not exist")
)

// Resource-lookup errors. Returned when a named resource is well-formed but
// absent.
var (
	ErrIndexNotFound  = errors.New("index not found")
	ErrShardNotFound  = errors.New("shard not found")
	ErrFieldNotFound  = errors.New("field not found")
	ErrMemberNotFound = errors.New("member not found")
)

// Concurrency errors. ErrLockPoisoned surfaces to callers as Internal:
// code that detects an invariant violation under a lock (a field left in
// a half-updated state by a prior panic recovery) has a single error to
// return.
var ErrLockPoisoned = errors.New("lock poisoned")

// Persistence errors.
var (
	ErrFileRead             = errors.New("file read failed")
	ErrFileWrite            = errors.New("file write failed")
	ErrFileRemove           = errors.New("file remove failed")
	ErrDirCreate            = errors.New("directory create failed")
	ErrDirRead              = errors.New("directory read failed")
	ErrSerializationFailure = errors.New("serialization failed")
	ErrDeserialization      = errors.New("deserialization failed")
)

// Index lifecycle errors, surfaced by the shard engine.
var (
	ErrIndexCreate   = errors.New("index create failed")
	ErrIndexOpen     = errors.New("index open failed")
	ErrIndexDelete   = errors.New("index delete failed")
	ErrIndexCommit   = errors.New("index commit failed")
	ErrIndexRollback = errors.New("index rollback failed")
	ErrIndexSearch   = errors.New("index search failed")
)

// Transport errors.
var (
	ErrURICreation         = errors.New("uri creation failed")
	ErrMetadataNotFound    = errors.New("rpc metadata not found")
	ErrGRPCAddressNotFound = errors.New("grpc address not found")
	ErrSocketBinding       = errors.New("socket binding failed")
	ErrBroadcast           = errors.New("broadcast failed")
)

// Document errors.
var (
	ErrDocumentDeserialize = errors.New("document deserialize failed")
	ErrDocumentSerialize   = errors.New("document serialize failed")
	ErrDocumentParse       = errors.New("document parse failed")
)

// Code is the coarse outer code a request-handling boundary (the router,
// the gRPC service) maps an internal error onto: background loops log and
// continue; per-request errors propagate with one of these.
type Code int

const (
	// CodeInternal is returned for any failure that is not a well-known
	// missing-resource case.
	CodeInternal Code = iota
	// CodeNotFound is returned when a named resource (index, shard) is
	// confirmed absent.
	CodeNotFound
)

// ToCode maps an error produced anywhere in the core onto the outer code a
// caller-facing boundary should return. Resource-lookup errors map to
// CodeNotFound; everything else maps to CodeInternal.
func ToCode(err error) Code {
	switch {
	case errors.Is(err, ErrIndexNotFound), errors.Is(err, ErrShardNotFound),
		errors.Is(err, ErrFieldNotFound), errors.Is(err, ErrMemberNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}
