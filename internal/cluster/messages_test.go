package cluster

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{Kind: CreateIndex, Name: "articles", Meta: json.RawMessage(`{"num_shards":3}`)}
	data, err := msg.Encode()
	require.NoError(t, err)

	got, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, msg.Kind, got.Kind)
	assert.Equal(t, msg.Name, got.Name)
	assert.JSONEq(t, string(msg.Meta), string(got.Meta))
}

func TestDecodeMessageRejectsGarbage(t *testing.T) {
	_, err := DecodeMessage([]byte("not json"))
	assert.Error(t, err)
}

func TestDeleteIndexMessageHasNoMeta(t *testing.T) {
	msg := Message{Kind: DeleteIndex, Name: "articles"}
	data, err := msg.Encode()
	require.NoError(t, err)

	got, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, DeleteIndex, got.Kind)
	assert.Empty(t, got.Meta)
}
