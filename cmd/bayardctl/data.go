package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/bayardsearch/bayard/internal/rpc"
)

var putCommand = &cli.Command{
	Name:      "put",
	Usage:     "upsert documents into an index, one JSON object per line on stdin",
	ArgsUsage: "INDEX",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		index := cmd.Args().First()
		if index == "" {
			return fmt.Errorf("put: INDEX is required")
		}
		docs, err := readJSONLines(os.Stdin)
		if err != nil {
			return err
		}

		client, closeFn, err := dialClientService(rootAddr(cmd))
		if err != nil {
			return err
		}
		defer closeFn()

		_, err = client.PutDocuments(ctx, &rpc.ClientPutDocumentsRequest{Index: index, Docs: docs})
		return err
	},
}

var deleteCommand = &cli.Command{
	Name:      "delete",
	Usage:     "delete documents from an index by id, one id per line on stdin",
	ArgsUsage: "INDEX",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		index := cmd.Args().First()
		if index == "" {
			return fmt.Errorf("delete: INDEX is required")
		}
		ids, err := readLines(os.Stdin)
		if err != nil {
			return err
		}

		client, closeFn, err := dialClientService(rootAddr(cmd))
		if err != nil {
			return err
		}
		defer closeFn()

		_, err = client.DeleteDocuments(ctx, &rpc.ClientDeleteDocumentsRequest{Index: index, IDs: ids})
		return err
	},
}

var commitCommand = &cli.Command{
	Name:      "commit",
	Usage:     "commit the in-flight batch of every shard of an index",
	ArgsUsage: "INDEX",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		index := cmd.Args().First()
		if index == "" {
			return fmt.Errorf("commit: INDEX is required")
		}
		client, closeFn, err := dialClientService(rootAddr(cmd))
		if err != nil {
			return err
		}
		defer closeFn()

		_, err = client.Commit(ctx, &rpc.ClientCommitRequest{Index: index})
		return err
	},
}

var rollbackCommand = &cli.Command{
	Name:      "rollback",
	Usage:     "discard the in-flight batch of every shard of an index",
	ArgsUsage: "INDEX",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		index := cmd.Args().First()
		if index == "" {
			return fmt.Errorf("rollback: INDEX is required")
		}
		client, closeFn, err := dialClientService(rootAddr(cmd))
		if err != nil {
			return err
		}
		defer closeFn()

		_, err = client.Rollback(ctx, &rpc.ClientRollbackRequest{Index: index})
		return err
	},
}

var searchCommand = &cli.Command{
	Name:      "search",
	Usage:     "run a query against an index and print merged results as JSON",
	ArgsUsage: "INDEX QUERY",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "offset", Value: 0},
		&cli.IntFlag{Name: "hits", Value: 10},
		&cli.StringFlag{Name: "collection-kind", Value: "count_and_top_docs", Usage: "count | top_docs | count_and_top_docs"},
		&cli.StringFlag{Name: "sort-field"},
		&cli.StringFlag{Name: "sort-order", Value: "asc", Usage: "asc | desc"},
		&cli.StringSliceFlag{Name: "field", Usage: "field to project in results (repeatable)"},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		args := cmd.Args()
		if args.Len() < 2 {
			return fmt.Errorf("search: INDEX and QUERY are required")
		}
		index, query := args.Get(0), args.Get(1)

		req := &rpc.ClientSearchRequest{
			Index:          index,
			Query:          query,
			CollectionKind: cmd.String("collection-kind"),
			Fields:         cmd.StringSlice("field"),
			Offset:         cmd.Int("offset"),
			Hits:           cmd.Int("hits"),
		}
		if f := cmd.String("sort-field"); f != "" {
			req.Sort = &rpc.SortSpec{Field: f, Order: cmd.String("sort-order")}
		}

		client, closeFn, err := dialClientService(rootAddr(cmd))
		if err != nil {
			return err
		}
		defer closeFn()

		resp, err := client.Search(ctx, req)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
