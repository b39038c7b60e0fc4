package metastore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMeta = `{"schema":[{"name":"title","type":"text","stored":true,"indexed":true}],"writer_threads":1,"writer_mem_size":1,"num_replicas":1,"num_shards":2}`

func writeIndex(t *testing.T, dir, name, body string) {
	t.Helper()
	idxDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(idxDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(idxDir, "meta.json"), []byte(body), 0o644))
}

func TestOpenScansExistingIndices(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, "articles", sampleMeta)
	writeIndex(t, dir, "broken", "not json")

	ms, err := Open(dir, nil)
	require.NoError(t, err)
	defer ms.watcher.Close()

	snap := ms.Snapshot()
	assert.Contains(t, snap, "articles")
	assert.NotContains(t, snap, "broken", "malformed index must be skipped, not fail startup")
	assert.Equal(t, 2, snap["articles"].NumShards())
}

func TestRunPicksUpNewIndex(t *testing.T) {
	dir := t.TempDir()
	ms, err := Open(dir, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ms.Run(ctx)

	writeIndex(t, dir, "products", sampleMeta)

	assert.Eventually(t, func() bool {
		_, ok := ms.Snapshot()["products"]
		return ok
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRunRemovesDeletedIndex(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, "articles", sampleMeta)

	ms, err := Open(dir, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ms.Run(ctx)

	require.NoError(t, os.Remove(filepath.Join(dir, "articles", "meta.json")))

	assert.Eventually(t, func() bool {
		_, ok := ms.Snapshot()["articles"]
		return !ok
	}, 2*time.Second, 20*time.Millisecond)
}

func TestIndexNameForEventToleratesSuffixesAndSlashes(t *testing.T) {
	ms := &Metastore{indicesDir: "/data/indices"}
	name, isMeta := ms.indexNameForEvent("/data/indices/articles/meta.json")
	assert.Equal(t, "articles", name)
	assert.True(t, isMeta)

	name, isMeta = ms.indexNameForEvent("/data/indices/articles/")
	assert.Equal(t, "articles", name)
	assert.False(t, isMeta)

	name, isMeta = ms.indexNameForEvent("/data/indices/articles/shard-aaaaaaaa/segment.bin")
	assert.Equal(t, "articles", name)
	assert.False(t, isMeta)
}
