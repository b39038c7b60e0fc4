// Package engine implements the per-shard read/write façade: a thin
// layer over the underlying full-text index library that exposes
// put_docs/delete_docs/commit/rollback and a search path supporting
// count, top-N, and fast-field orderings.
//
// This implementation backs that black box with bleve (blevesearch/bleve/v2):
// Schema fields become a bleve document mapping, Metadata's named analyzer
// pipelines become bleve custom analyzers (tokenizer plus ordered token
// filters), and put/delete/commit compose onto one bleve.Batch so the
// delete-then-add upsert discipline commits atomically as a single batch
// application.
package engine
