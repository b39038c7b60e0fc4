package main

import (
	"github.com/urfave/cli/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/bayardsearch/bayard/internal/rpc"
)

// rootAddr reads the --addr flag declared on the root command, regardless
// of how deep the subcommand invoking it is nested.
func rootAddr(cmd *cli.Command) string { return cmd.Root().String("addr") }

// dialIndexService opens a channel to addr and wraps it for the
// admin/data-plane IndexService calls that target a specific node and
// (for the data-plane ones) a specific shard directly.
func dialIndexService(addr string) (*rpc.Client, func(), error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return rpc.NewClient(conn), func() { conn.Close() }, nil
}

// dialClientService opens a channel to addr and wraps it for the
// client-facing, router-fronted ClientService calls: index-addressed only,
// no shard id, fanned out internally by whichever node is dialed.
func dialClientService(addr string) (*rpc.ClientServiceClient, func(), error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return rpc.NewClientServiceClient(conn), func() { conn.Close() }, nil
}
