// Command bayardctl is a one-shot administrative client for a Bayard
// cluster: it dials a single member's gRPC address and issues exactly one
// IndexService or ClientService call per invocation. It does not run a
// server and holds no state between commands.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "bayardctl",
		Usage: "administrative client for a Bayard cluster member",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "gRPC address of the member to contact",
				Sources: cli.EnvVars("BAYARDCTL_ADDR"),
				Value:   "127.0.0.1:7070",
			},
		},
		Commands: []*cli.Command{
			createIndexCommand,
			deleteIndexCommand,
			getIndexCommand,
			modifyIndexCommand,
			putCommand,
			deleteCommand,
			commitCommand,
			rollbackCommand,
			searchCommand,
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "bayardctl:", err)
		os.Exit(1)
	}
}
