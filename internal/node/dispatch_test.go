package node

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bayardsearch/bayard/internal/cluster"
	"github.com/bayardsearch/bayard/internal/metadata"
)

func TestApplyCreateIndexIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	n := New(dir, "local:1", nil, nil)

	meta := json.RawMessage(`{"num_shards":1}`)
	n.ApplyMessage(cluster.Message{Kind: cluster.CreateIndex, Name: "idx", Meta: meta, Version: 1})
	first, err := os.ReadFile(filepath.Join(dir, "idx", "meta.json"))
	require.NoError(t, err)

	n.ApplyMessage(cluster.Message{Kind: cluster.CreateIndex, Name: "idx", Meta: json.RawMessage(`{"num_shards":99}`), Version: 2})
	second, err := os.ReadFile(filepath.Join(dir, "idx", "meta.json"))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second), "existing meta.json is left alone by a replayed create")
}

func TestApplyDeleteIndexRemovesMetaFile(t *testing.T) {
	dir := t.TempDir()
	n := New(dir, "local:1", nil, nil)
	n.ApplyMessage(cluster.Message{Kind: cluster.CreateIndex, Name: "idx", Meta: json.RawMessage(`{}`), Version: 1})

	n.ApplyMessage(cluster.Message{Kind: cluster.DeleteIndex, Name: "idx", Version: 2})

	_, err := os.Stat(filepath.Join(dir, "idx", "meta.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestApplyMessageDropsStaleVersion(t *testing.T) {
	dir := t.TempDir()
	n := New(dir, "local:1", nil, nil)

	n.ApplyMessage(cluster.Message{Kind: cluster.CreateIndex, Name: "idx", Meta: json.RawMessage(`{"num_shards":1}`), Version: 5})
	n.ApplyMessage(cluster.Message{Kind: cluster.ModifyIndex, Name: "idx", Meta: json.RawMessage(`{"num_shards":2}`), Version: 3})

	data, err := os.ReadFile(filepath.Join(dir, "idx", "meta.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"num_shards":1}`, string(data), "a lower-version message must not overwrite a newer one")
}

func TestApplyMessageDeletePriorityBeatsModifyAtEqualVersion(t *testing.T) {
	dir := t.TempDir()
	n := New(dir, "local:1", nil, nil)
	n.ApplyMessage(cluster.Message{Kind: cluster.CreateIndex, Name: "idx", Meta: json.RawMessage(`{}`), Version: 1})

	n.ApplyMessage(cluster.Message{Kind: cluster.ModifyIndex, Name: "idx", Meta: json.RawMessage(`{"num_shards":9}`), Version: 1})
	n.ApplyMessage(cluster.Message{Kind: cluster.DeleteIndex, Name: "idx", Version: 1})

	_, err := os.Stat(filepath.Join(dir, "idx", "meta.json"))
	assert.True(t, os.IsNotExist(err), "delete must win over modify at an equal version")
}

func TestCreateIndexRejectsDuplicateName(t *testing.T) {
	dir := t.TempDir()
	n := New(dir, "local:1", nil, nil)

	md, err := metadata.New(testSchema(), nil, nil, 1, 1<<20, 1, 1)
	require.NoError(t, err)

	_, err = n.CreateIndex("idx", md)
	require.NoError(t, err)

	_, err = n.CreateIndex("idx", md)
	assert.Error(t, err)
}

func TestModifyIndexNoopReturnsNoMessage(t *testing.T) {
	dir := t.TempDir()
	n := New(dir, "local:1", nil, nil)
	md, err := metadata.New(testSchema(), nil, nil, 1, 1<<20, 1, 1)
	require.NoError(t, err)
	_, err = n.CreateIndex("idx", md)
	require.NoError(t, err)

	same := md.WriterThreads()
	_, changed, err := n.ModifyIndex("idx", ModifyRequest{WriterThreads: &same})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestModifyIndexRefusesIndexSettingsChange(t *testing.T) {
	dir := t.TempDir()
	n := New(dir, "local:1", nil, nil)
	md, err := metadata.New(testSchema(), nil, nil, 1, 1<<20, 1, 1)
	require.NoError(t, err)
	_, err = n.CreateIndex("idx", md)
	require.NoError(t, err)

	newThreads := 4
	_, changed, err := n.ModifyIndex("idx", ModifyRequest{
		WriterThreads: &newThreads,
		IndexSettings: []byte(`{"merge_policy":"log"}`),
	})
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(filepath.Join(dir, "idx", "meta.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "merge_policy")
}
