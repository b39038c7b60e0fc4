package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bayardsearch/bayard/internal/cluster"
	"github.com/bayardsearch/bayard/internal/metadata"
	"github.com/bayardsearch/bayard/internal/rpc"
)

type fakeBroadcaster struct {
	msgs []cluster.Message
}

func (f *fakeBroadcaster) Broadcast(msg cluster.Message) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

func TestServerCreateIndexBroadcastsOnSuccess(t *testing.T) {
	dir := t.TempDir()
	n := New(dir, "local:1", nil, nil)
	bc := &fakeBroadcaster{}
	s := NewServer(n, bc)

	resp, err := s.CreateIndex(context.Background(), &rpc.CreateIndexRequest{
		Name:          "idx",
		Fields:        []metadata.Field{{Name: "title", Type: metadata.FieldText, Stored: true, Indexed: true}},
		WriterThreads: 1,
		WriterMemSize: 1 << 20,
		NumReplicas:   1,
		NumShards:     1,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Meta)
	require.Len(t, bc.msgs, 1)
	assert.Equal(t, cluster.CreateIndex, bc.msgs[0].Kind)
	assert.Equal(t, "idx", bc.msgs[0].Name)
}

func TestServerDeleteIndexBroadcastsOnSuccess(t *testing.T) {
	dir := t.TempDir()
	n := New(dir, "local:1", nil, nil)
	bc := &fakeBroadcaster{}
	s := NewServer(n, bc)

	_, err := s.CreateIndex(context.Background(), &rpc.CreateIndexRequest{
		Name: "idx", WriterThreads: 1, WriterMemSize: 1 << 20, NumReplicas: 1, NumShards: 1,
	})
	require.NoError(t, err)

	_, err = s.DeleteIndex(context.Background(), &rpc.DeleteIndexRequest{Name: "idx"})
	require.NoError(t, err)
	require.Len(t, bc.msgs, 2)
	assert.Equal(t, cluster.DeleteIndex, bc.msgs[1].Kind)
}

func TestServerDeleteIndexDoesNotBroadcastOnFailure(t *testing.T) {
	dir := t.TempDir()
	n := New(dir, "local:1", nil, nil)
	bc := &fakeBroadcaster{}
	s := NewServer(n, bc)

	_, err := s.DeleteIndex(context.Background(), &rpc.DeleteIndexRequest{Name: "missing"})
	assert.Error(t, err)
	assert.Empty(t, bc.msgs)
}

func TestServerSearchFailsWhenShardNotLocal(t *testing.T) {
	dir := t.TempDir()
	n := New(dir, "local:1", nil, nil)
	s := NewServer(n, &fakeBroadcaster{})

	_, err := s.Search(context.Background(), &rpc.SearchRequest{Index: "idx", ShardID: "shard-0", Query: "*"})
	assert.Error(t, err)
}
