// Package metastore implements the file-backed, change-notifying catalog
// of index definitions: at startup it scans indices_dir/*/meta.json into
// an index_name → Metadata map, then a
// recursive filesystem watcher keeps that map live and republishes a
// snapshot on every change.
//
// # Layout
//
//	indices_dir/
//	  articles/
//	    meta.json     <- watched
//	    shards/
//	      <shard_id>/ <- shard directories, owned by internal/node
//	  products/
//	    meta.json
//
// # Failure policy
//
// A file read or deserialization error on a single index's meta.json is
// logged and that index is skipped; the watch stream continues unaffected,
// so one malformed index can never take down the whole metastore.
package metastore
