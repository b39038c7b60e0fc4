package metadata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bayardsearch/bayard/internal/shard"
)

func userField(name string, typ FieldType) Field {
	return Field{Name: name, Type: typ, Stored: true, Indexed: true}
}

func freshShards(t *testing.T, n int) []shard.Shard {
	t.Helper()
	out := make([]shard.Shard, n)
	for i := range out {
		id, err := shard.NewID()
		require.NoError(t, err)
		out[i] = shard.New(id)
	}
	return out
}

func TestNewRejectsZeroThresholds(t *testing.T) {
	_, err := New(nil, nil, nil, 0, 1, 1, 1)
	assert.Error(t, err)
	_, err = New(nil, nil, nil, 1, 0, 1, 1)
	assert.Error(t, err)
	_, err = New(nil, nil, nil, 1, 1, 0, 1)
	assert.Error(t, err)
	_, err = New(nil, nil, nil, 1, 1, 1, 0)
	assert.Error(t, err)
}

func TestNewGeneratesFreshShards(t *testing.T) {
	md, err := New([]Field{userField("title", FieldText)}, nil, nil, 2, 64<<20, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, md.NumShards())
	assert.Equal(t, 3, md.NumReplicas())

	schema := md.Schema()
	_, hasID := schema.FieldByName(ReservedID)
	_, hasTS := schema.FieldByName(ReservedTimestamp)
	assert.True(t, hasID)
	assert.True(t, hasTS)
}

func TestNewWithShardsAlignsNumShards(t *testing.T) {
	md, err := NewWithShards(nil, nil, nil, 1, 1, 1, freshShards(t, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, md.NumShards())
}

func TestSetNumShardsGrowsWithoutRenaming(t *testing.T) {
	md, err := New(nil, nil, nil, 1, 1, 1, 3)
	require.NoError(t, err)
	original := md.Shards().MarshalIDs()

	require.NoError(t, md.SetNumShards(5))
	grown := md.Shards().MarshalIDs()
	require.Len(t, grown, 5)
	assert.Equal(t, original, grown[:3])
}

func TestSetNumShardsShrinksFromTail(t *testing.T) {
	md, err := New(nil, nil, nil, 1, 1, 1, 5)
	require.NoError(t, err)
	original := md.Shards().MarshalIDs()

	require.NoError(t, md.SetNumShards(2))
	shrunk := md.Shards().MarshalIDs()
	assert.Equal(t, original[:2], shrunk)
}

func TestSetNumShardsNoopWhenUnchanged(t *testing.T) {
	md, err := New(nil, nil, nil, 1, 1, 1, 3)
	require.NoError(t, err)
	before := md.Shards().MarshalIDs()
	require.NoError(t, md.SetNumShards(3))
	assert.Equal(t, before, md.Shards().MarshalIDs())
}

func TestSetNumShardsRejectsZero(t *testing.T) {
	md, err := New(nil, nil, nil, 1, 1, 1, 1)
	require.NoError(t, err)
	assert.Error(t, md.SetNumShards(0))
}

func TestMarshalStripsReservedFields(t *testing.T) {
	md, err := New([]Field{userField("title", FieldText)}, nil, nil, 1, 1, 1, 1)
	require.NoError(t, err)

	data, err := json.Marshal(md)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	fields := raw["schema"].([]interface{})
	for _, f := range fields {
		name := f.(map[string]interface{})["name"].(string)
		assert.NotEqual(t, ReservedID, name)
		assert.NotEqual(t, ReservedTimestamp, name)
	}
}

func TestRoundTripPreservesShardsAndReprependsReserved(t *testing.T) {
	md, err := New([]Field{userField("body", FieldText)}, nil, nil, 2, 128<<20, 2, 3)
	require.NoError(t, err)
	originalIDs := md.Shards().MarshalIDs()

	data, err := json.Marshal(md)
	require.NoError(t, err)

	var loaded Metadata
	require.NoError(t, json.Unmarshal(data, &loaded))

	assert.Equal(t, originalIDs, loaded.Shards().MarshalIDs())
	assert.Equal(t, md.WriterThreads(), loaded.WriterThreads())
	assert.Equal(t, md.NumReplicas(), loaded.NumReplicas())

	schema := loaded.Schema()
	_, hasID := schema.FieldByName(ReservedID)
	assert.True(t, hasID, "reserved fields must be re-prepended on load")
}

func TestUnmarshalDefaultsWhenFieldsAbsent(t *testing.T) {
	var loaded Metadata
	require.NoError(t, json.Unmarshal([]byte(`{}`), &loaded))
	assert.Equal(t, defaultWriterThreads, loaded.WriterThreads())
	assert.Equal(t, defaultNumReplicas, loaded.NumReplicas())
	assert.Equal(t, defaultNumShards, loaded.NumShards())
}
