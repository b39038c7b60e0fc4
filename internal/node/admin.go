package node

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bayardsearch/bayard/internal/bayarderr"
	"github.com/bayardsearch/bayard/internal/cluster"
	"github.com/bayardsearch/bayard/internal/metadata"
)

// CreateIndex is the entry point a gRPC handler calls for create_index. It
// writes indices/<name>/meta.json and returns the CreateIndex message the
// caller should broadcast; it fails InvalidArgument if meta.json already
// exists for name.
func (n *Node) CreateIndex(name string, md *metadata.Metadata) (cluster.Message, error) {
	dir := n.indexDir(name)
	metaPath := filepath.Join(dir, "meta.json")
	if _, err := os.Stat(metaPath); err == nil {
		return cluster.Message{}, fmt.Errorf("%w: index %q already exists", bayarderr.ErrInvalidArgument, name)
	}

	data, err := md.MarshalJSON()
	if err != nil {
		return cluster.Message{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cluster.Message{}, bayarderr.ErrDirCreate
	}
	if err := writeFileAtomic(metaPath, data); err != nil {
		return cluster.Message{}, err
	}
	return cluster.Message{Kind: cluster.CreateIndex, Name: name, Meta: data}, nil
}

// DeleteIndex is the entry point a gRPC handler calls for delete_index. It
// fails IndexNotFound if meta.json is already absent, otherwise removes it
// and returns the DeleteIndex message to broadcast. Directory cleanup
// follows later, driven by the reconciler once the metastore republishes
// without this index.
func (n *Node) DeleteIndex(name string) (cluster.Message, error) {
	metaPath := filepath.Join(n.indexDir(name), "meta.json")
	if _, err := os.Stat(metaPath); err != nil {
		return cluster.Message{}, fmt.Errorf("%w: %v", bayarderr.ErrIndexNotFound, err)
	}
	if err := os.Remove(metaPath); err != nil {
		return cluster.Message{}, bayarderr.ErrFileRemove
	}
	return cluster.Message{Kind: cluster.DeleteIndex, Name: name}, nil
}

// GetIndex returns the cached metadata for name, failing IndexNotFound if
// the metastore has no entry for it.
func (n *Node) GetIndex(name string) (*metadata.Metadata, error) {
	md, ok := n.Metadata(name)
	if !ok {
		return nil, bayarderr.ErrIndexNotFound
	}
	return md, nil
}
