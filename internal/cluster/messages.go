package cluster

import (
	"encoding/json"

	"github.com/bayardsearch/bayard/internal/bayarderr"
)

// MessageKind distinguishes the three control events the node's message
// dispatcher reacts to.
type MessageKind string

const (
	CreateIndex MessageKind = "create_index"
	DeleteIndex MessageKind = "delete_index"
	ModifyIndex MessageKind = "modify_index"
)

// Message is the application-level payload piggybacked on gossip
// traffic. Meta is the raw meta.json bytes for CreateIndex/ModifyIndex;
// it is empty for DeleteIndex. Version is a unix-seconds timestamp used
// to order conflicting messages about the same index name when they
// interleave.
type Message struct {
	Kind    MessageKind     `json:"kind"`
	Name    string          `json:"name"`
	Meta    json.RawMessage `json:"meta,omitempty"`
	Version int64           `json:"version"`
}

// Encode serializes a Message for broadcast.
func (m Message) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, bayarderr.ErrDocumentSerialize
	}
	return data, nil
}

// DecodeMessage parses a broadcast payload back into a Message.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, bayarderr.ErrDocumentDeserialize
	}
	return m, nil
}
