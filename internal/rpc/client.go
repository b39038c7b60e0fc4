package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

// Client is a typed IndexService caller bound to one gRPC channel. The
// router holds one per target replica, looked up fresh from the client
// pool on every sub-request since channels are cheap, cloneable handles.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient wraps an already-dialed (lazily-connected) channel.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, req, reply interface{}) error {
	fullMethod := fmt.Sprintf("/%s/%s", ServiceName, method)
	return c.conn.Invoke(ctx, fullMethod, req, reply, grpc.CallContentSubtype(codecName))
}

func (c *Client) CreateIndex(ctx context.Context, req *CreateIndexRequest) (*CreateIndexResponse, error) {
	resp := new(CreateIndexResponse)
	if err := c.invoke(ctx, "CreateIndex", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) DeleteIndex(ctx context.Context, req *DeleteIndexRequest) (*DeleteIndexResponse, error) {
	resp := new(DeleteIndexResponse)
	if err := c.invoke(ctx, "DeleteIndex", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetIndex(ctx context.Context, req *GetIndexRequest) (*GetIndexResponse, error) {
	resp := new(GetIndexResponse)
	if err := c.invoke(ctx, "GetIndex", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) ModifyIndex(ctx context.Context, req *ModifyIndexRequest) (*ModifyIndexResponse, error) {
	resp := new(ModifyIndexResponse)
	if err := c.invoke(ctx, "ModifyIndex", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) PutDocuments(ctx context.Context, req *PutDocumentsRequest) (*PutDocumentsResponse, error) {
	resp := new(PutDocumentsResponse)
	if err := c.invoke(ctx, "PutDocuments", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) DeleteDocuments(ctx context.Context, req *DeleteDocumentsRequest) (*DeleteDocumentsResponse, error) {
	resp := new(DeleteDocumentsResponse)
	if err := c.invoke(ctx, "DeleteDocuments", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Commit(ctx context.Context, req *CommitRequest) (*CommitResponse, error) {
	resp := new(CommitResponse)
	if err := c.invoke(ctx, "Commit", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Rollback(ctx context.Context, req *RollbackRequest) (*RollbackResponse, error) {
	resp := new(RollbackResponse)
	if err := c.invoke(ctx, "Rollback", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	resp := new(SearchResponse)
	if err := c.invoke(ctx, "Search", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// ClientServiceClient is a typed ClientService caller bound to one gRPC
// channel, the surface bayardctl's data-plane subcommands use: unlike
// Client, every call here names an index only and lets the receiving
// node's router do the fan-out.
type ClientServiceClient struct {
	conn *grpc.ClientConn
}

// NewClientServiceClient wraps an already-dialed channel.
func NewClientServiceClient(conn *grpc.ClientConn) *ClientServiceClient {
	return &ClientServiceClient{conn: conn}
}

func (c *ClientServiceClient) invoke(ctx context.Context, method string, req, reply interface{}) error {
	fullMethod := fmt.Sprintf("/%s/%s", ClientServiceName, method)
	return c.conn.Invoke(ctx, fullMethod, req, reply, grpc.CallContentSubtype(codecName))
}

func (c *ClientServiceClient) PutDocuments(ctx context.Context, req *ClientPutDocumentsRequest) (*ClientPutDocumentsResponse, error) {
	resp := new(ClientPutDocumentsResponse)
	if err := c.invoke(ctx, "PutDocuments", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *ClientServiceClient) DeleteDocuments(ctx context.Context, req *ClientDeleteDocumentsRequest) (*ClientDeleteDocumentsResponse, error) {
	resp := new(ClientDeleteDocumentsResponse)
	if err := c.invoke(ctx, "DeleteDocuments", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *ClientServiceClient) Commit(ctx context.Context, req *ClientCommitRequest) (*ClientCommitResponse, error) {
	resp := new(ClientCommitResponse)
	if err := c.invoke(ctx, "Commit", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *ClientServiceClient) Rollback(ctx context.Context, req *ClientRollbackRequest) (*ClientRollbackResponse, error) {
	resp := new(ClientRollbackResponse)
	if err := c.invoke(ctx, "Rollback", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *ClientServiceClient) Search(ctx context.Context, req *ClientSearchRequest) (*ClientSearchResponse, error) {
	resp := new(ClientSearchResponse)
	if err := c.invoke(ctx, "Search", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
