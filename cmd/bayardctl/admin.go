package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/bayardsearch/bayard/internal/metadata"
	"github.com/bayardsearch/bayard/internal/rpc"
)

var createIndexCommand = &cli.Command{
	Name:      "create-index",
	Usage:     "create an index on the cluster",
	ArgsUsage: "NAME",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "fields", Usage: "JSON array of field definitions", Required: true},
		&cli.StringFlag{Name: "analyzers", Usage: "JSON object mapping analyzer name to pipeline"},
		&cli.StringFlag{Name: "settings", Usage: "opaque JSON index settings"},
		&cli.IntFlag{Name: "writer-threads", Value: 1},
		&cli.IntFlag{Name: "writer-mem-size", Value: 64 << 20},
		&cli.IntFlag{Name: "num-replicas", Value: 1},
		&cli.IntFlag{Name: "num-shards", Value: 1},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		name := cmd.Args().First()
		if name == "" {
			return fmt.Errorf("create-index: NAME is required")
		}

		var fields []metadata.Field
		if err := json.Unmarshal([]byte(cmd.String("fields")), &fields); err != nil {
			return fmt.Errorf("create-index: parsing --fields: %w", err)
		}
		var analyzers map[string]metadata.AnalyzerPipeline
		if raw := cmd.String("analyzers"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &analyzers); err != nil {
				return fmt.Errorf("create-index: parsing --analyzers: %w", err)
			}
		}
		var settings json.RawMessage
		if raw := cmd.String("settings"); raw != "" {
			settings = json.RawMessage(raw)
		}

		client, closeFn, err := dialIndexService(rootAddr(cmd))
		if err != nil {
			return err
		}
		defer closeFn()

		resp, err := client.CreateIndex(ctx, &rpc.CreateIndexRequest{
			Name:          name,
			Fields:        fields,
			Analyzers:     analyzers,
			IndexSettings: settings,
			WriterThreads: cmd.Int("writer-threads"),
			WriterMemSize: cmd.Int("writer-mem-size"),
			NumReplicas:   cmd.Int("num-replicas"),
			NumShards:     cmd.Int("num-shards"),
		})
		if err != nil {
			return err
		}
		return printJSON(resp.Meta)
	},
}

var deleteIndexCommand = &cli.Command{
	Name:      "delete-index",
	Usage:     "delete an index from the cluster",
	ArgsUsage: "NAME",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		name := cmd.Args().First()
		if name == "" {
			return fmt.Errorf("delete-index: NAME is required")
		}
		client, closeFn, err := dialIndexService(rootAddr(cmd))
		if err != nil {
			return err
		}
		defer closeFn()

		_, err = client.DeleteIndex(ctx, &rpc.DeleteIndexRequest{Name: name})
		return err
	},
}

var getIndexCommand = &cli.Command{
	Name:      "get-index",
	Usage:     "print an index's persisted metadata",
	ArgsUsage: "NAME",
	Action: func(ctx context.Context, cmd *cli.Command) error {
		name := cmd.Args().First()
		if name == "" {
			return fmt.Errorf("get-index: NAME is required")
		}
		client, closeFn, err := dialIndexService(rootAddr(cmd))
		if err != nil {
			return err
		}
		defer closeFn()

		resp, err := client.GetIndex(ctx, &rpc.GetIndexRequest{Name: name})
		if err != nil {
			return err
		}
		return printJSON(resp.Meta)
	},
}

var modifyIndexCommand = &cli.Command{
	Name:      "modify-index",
	Usage:     "change writer tuning, replica count, or shard count of an index",
	ArgsUsage: "NAME",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "writer-threads"},
		&cli.IntFlag{Name: "writer-mem-size"},
		&cli.IntFlag{Name: "num-replicas"},
		&cli.IntFlag{Name: "num-shards"},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		name := cmd.Args().First()
		if name == "" {
			return fmt.Errorf("modify-index: NAME is required")
		}
		req := &rpc.ModifyIndexRequest{Name: name}
		if cmd.IsSet("writer-threads") {
			v := cmd.Int("writer-threads")
			req.WriterThreads = &v
		}
		if cmd.IsSet("writer-mem-size") {
			v := cmd.Int("writer-mem-size")
			req.WriterMemSize = &v
		}
		if cmd.IsSet("num-replicas") {
			v := cmd.Int("num-replicas")
			req.NumReplicas = &v
		}
		if cmd.IsSet("num-shards") {
			v := cmd.Int("num-shards")
			req.NumShards = &v
		}

		client, closeFn, err := dialIndexService(rootAddr(cmd))
		if err != nil {
			return err
		}
		defer closeFn()

		resp, err := client.ModifyIndex(ctx, req)
		if err != nil {
			return err
		}
		if !resp.Changed {
			fmt.Fprintln(os.Stderr, "modify-index: no change")
			return nil
		}
		return printJSON(resp.Meta)
	},
}

func printJSON(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}
