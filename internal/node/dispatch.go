package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/bayardsearch/bayard/internal/bayarderr"
	"github.com/bayardsearch/bayard/internal/cluster"
	"github.com/bayardsearch/bayard/internal/metadata"
)

// appliedRecord is the (version, kind) of the last message this Node
// applied for one index name, used to order conflicting broadcasts about
// the same name.
type appliedRecord struct {
	version int64
	kind    cluster.MessageKind
}

// kindPriority breaks ties between messages carrying equal versions:
// Delete > Modify > Create.
var kindPriority = map[cluster.MessageKind]int{
	cluster.CreateIndex: 0,
	cluster.ModifyIndex: 1,
	cluster.DeleteIndex: 2,
}

// RunMessages consumes msgWatch until ctx is done, applying each inbound
// broadcast to disk. Errors are logged, never fatal — a background stream
// must not terminate on a single bad message.
func (n *Node) RunMessages(ctx context.Context, msgWatch <-chan cluster.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgWatch:
			if !ok {
				return
			}
			n.ApplyMessage(msg)
		}
	}
}

// ApplyMessage applies one inbound broadcast to local disk, after checking
// it is not stale relative to the last message this Node already applied
// for the same index name.
func (n *Node) ApplyMessage(msg cluster.Message) {
	n.mu.Lock()
	rec, seen := n.lastApplied[msg.Name]
	stale := seen && (msg.Version < rec.version ||
		(msg.Version == rec.version && kindPriority[msg.Kind] <= kindPriority[rec.kind]))
	if !stale {
		n.lastApplied[msg.Name] = appliedRecord{version: msg.Version, kind: msg.Kind}
	}
	n.mu.Unlock()

	if stale {
		n.logger.Info("dispatch: dropping stale message",
			zap.String("index", msg.Name), zap.String("kind", string(msg.Kind)), zap.Int64("version", msg.Version))
		return
	}

	var err error
	switch msg.Kind {
	case cluster.CreateIndex:
		err = n.applyCreateIndex(msg.Name, msg.Meta)
	case cluster.DeleteIndex:
		err = n.applyDeleteIndex(msg.Name)
	case cluster.ModifyIndex:
		err = n.applyModifyIndex(msg.Name, msg.Meta)
	default:
		n.logger.Warn("dispatch: unknown message kind", zap.String("kind", string(msg.Kind)))
		return
	}
	if err != nil {
		n.logger.Warn("dispatch: failed to apply message",
			zap.String("index", msg.Name), zap.String("kind", string(msg.Kind)), zap.Error(err))
	}
}

// applyCreateIndex creates indices/<name>/ and writes meta.json if either
// is absent; existing files are left alone, making replay idempotent.
func (n *Node) applyCreateIndex(name string, meta []byte) error {
	dir := n.indexDir(name)
	metaPath := filepath.Join(dir, "meta.json")
	if _, err := os.Stat(metaPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return bayarderr.ErrDirCreate
	}
	return writeFileAtomic(metaPath, meta)
}

// applyDeleteIndex deletes meta.json if present; the metastore then
// propagates the deletion through the metadata stream, which drives the
// reconciler's directory cleanup (steps 4-6).
func (n *Node) applyDeleteIndex(name string) error {
	metaPath := filepath.Join(n.indexDir(name), "meta.json")
	if err := os.Remove(metaPath); err != nil && !os.IsNotExist(err) {
		return bayarderr.ErrFileRemove
	}
	return nil
}

// applyModifyIndex overwrites meta.json with the incoming payload.
func (n *Node) applyModifyIndex(name string, meta []byte) error {
	metaPath := filepath.Join(n.indexDir(name), "meta.json")
	return writeFileAtomic(metaPath, meta)
}

// ModifyRequest is the set of fields Node.ModifyIndex is permitted to
// change: writer_threads, writer_mem_size, num_replicas, and num_shards.
// IndexSettings is accepted only to detect an attempted change; it is
// never applied.
type ModifyRequest struct {
	WriterThreads *int
	WriterMemSize *int
	NumReplicas   *int
	NumShards     *int
	IndexSettings []byte
}

// ModifyIndex is the entry point a gRPC handler calls for modify_index. It
// loads the current on-disk metadata, refuses any attempted index_settings
// change (logs a warning, no-ops on that one field), applies the remaining
// requested fields, and reports whether anything actually changed, so an
// unchanged modification returns Ok without being broadcast. On a real
// change it persists the new meta.json and returns the ModifyIndex
// message the caller should broadcast.
func (n *Node) ModifyIndex(name string, req ModifyRequest) (cluster.Message, bool, error) {
	metaPath := filepath.Join(n.indexDir(name), "meta.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return cluster.Message{}, false, fmt.Errorf("%w: %v", bayarderr.ErrIndexNotFound, err)
	}

	md := &metadata.Metadata{}
	if err := md.UnmarshalJSON(data); err != nil {
		return cluster.Message{}, false, err
	}
	before, err := md.MarshalJSON()
	if err != nil {
		return cluster.Message{}, false, err
	}

	if len(req.IndexSettings) > 0 {
		n.logger.Warn("modify_index: refusing index_settings change", zap.String("index", name))
	}
	if req.WriterThreads != nil {
		if err := md.SetWriterThreads(*req.WriterThreads); err != nil {
			return cluster.Message{}, false, err
		}
	}
	if req.WriterMemSize != nil {
		if err := md.SetWriterMemSize(*req.WriterMemSize); err != nil {
			return cluster.Message{}, false, err
		}
	}
	if req.NumReplicas != nil {
		if err := md.SetNumReplicas(*req.NumReplicas); err != nil {
			return cluster.Message{}, false, err
		}
	}
	if req.NumShards != nil {
		if err := md.SetNumShards(*req.NumShards); err != nil {
			return cluster.Message{}, false, err
		}
	}

	after, err := md.MarshalJSON()
	if err != nil {
		return cluster.Message{}, false, err
	}
	if string(before) == string(after) {
		return cluster.Message{}, false, nil
	}

	if err := writeFileAtomic(metaPath, after); err != nil {
		return cluster.Message{}, false, err
	}
	return cluster.Message{Kind: cluster.ModifyIndex, Name: name, Meta: after}, true, nil
}

// writeFileAtomic writes data to path via write-temp-then-rename, the same
// idiom internal/cluster uses for members.json.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return bayarderr.ErrFileWrite
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return bayarderr.ErrFileWrite
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return bayarderr.ErrFileWrite
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return bayarderr.ErrFileWrite
	}
	return nil
}
