// Package rpc defines the wire contract for the IndexService:
// create_index, delete_index, get_index, modify_index, put_documents,
// delete_documents, commit, rollback, search.
//
// Rather than generating the service from a .proto file, the gRPC
// transport (google.golang.org/grpc) is driven directly: codec.go
// registers a JSON
// codec under the content-subtype "json" instead of the default protobuf
// codec, and service.go hand-writes the grpc.ServiceDesc a protoc-gen-go-grpc
// plugin would otherwise emit. Messages are plain Go structs tagged for
// encoding/json — there is no protobuf dependency anywhere in this package.
// Every RPC still goes over HTTP/2 framing, flow control, and deadlines the
// same as a protobuf-codec service would; only the payload encoding
// differs.
package rpc
