// Package config reads the environment-variable configuration of the
// bayard binaries. There is no flag parsing or config-file syntax, just
// a struct and its defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Node holds everything a single bayard process needs to join the
// cluster and serve its IndexService.
type Node struct {
	// NodeName is this member's unique gossip identity (memberlist.Config.Name).
	NodeName string
	// BindAddr/BindPort is the local gossip (SWIM) socket.
	BindAddr string
	BindPort int
	// AdvertiseAddr/AdvertisePort is what this member tells its peers to
	// dial for gossip; defaults to BindAddr/BindPort.
	AdvertiseAddr string
	AdvertisePort int
	// JoinAddrs are seed members' gossip socket addresses ("host:port"),
	// used once at startup to join the cluster.
	JoinAddrs []string

	// GRPCAddr is the local IndexService listen address.
	GRPCAddr string
	// AdminAddr serves /metrics and /healthz.
	AdminAddr string

	// IndicesDir is the root metastore/shard-storage directory.
	IndicesDir string
	// MembersFile persists the last-known Members snapshot for
	// faster rejoin after a restart.
	MembersFile string

	// MetricsEnabled turns on the Prometheus registry; when false every
	// component uses metrics.Noop.
	MetricsEnabled bool
}

// FromEnv reads a Node configuration from the environment.
//
// Required:
//   - BAYARD_NODE_NAME
//
// Optional (with defaults):
//   - BAYARD_BIND_ADDR (0.0.0.0), BAYARD_BIND_PORT (7946)
//   - BAYARD_ADVERTISE_ADDR (BAYARD_BIND_ADDR), BAYARD_ADVERTISE_PORT (BAYARD_BIND_PORT)
//   - BAYARD_JOIN_ADDRS (comma-separated, empty = bootstrap alone)
//   - BAYARD_GRPC_ADDR (:7070), BAYARD_ADMIN_ADDR (:7080)
//   - BAYARD_INDICES_DIR (./data), BAYARD_MEMBERS_FILE (<indices_dir>/members.json)
//   - BAYARD_METRICS_ENABLED (false)
func FromEnv() (Node, error) {
	nodeName := os.Getenv("BAYARD_NODE_NAME")
	if nodeName == "" {
		return Node{}, fmt.Errorf("missing required env BAYARD_NODE_NAME")
	}

	bindAddr := getenv("BAYARD_BIND_ADDR", "0.0.0.0")
	bindPort, err := getenvInt("BAYARD_BIND_PORT", 7946)
	if err != nil {
		return Node{}, err
	}
	advertiseAddr := getenv("BAYARD_ADVERTISE_ADDR", bindAddr)
	advertisePort, err := getenvInt("BAYARD_ADVERTISE_PORT", bindPort)
	if err != nil {
		return Node{}, err
	}

	indicesDir := getenv("BAYARD_INDICES_DIR", "./data")
	membersFile := getenv("BAYARD_MEMBERS_FILE", indicesDir+"/members.json")

	return Node{
		NodeName:       nodeName,
		BindAddr:       bindAddr,
		BindPort:       bindPort,
		AdvertiseAddr:  advertiseAddr,
		AdvertisePort:  advertisePort,
		JoinAddrs:      splitNonEmpty(os.Getenv("BAYARD_JOIN_ADDRS")),
		GRPCAddr:       getenv("BAYARD_GRPC_ADDR", ":7070"),
		AdminAddr:      getenv("BAYARD_ADMIN_ADDR", ":7080"),
		IndicesDir:     indicesDir,
		MembersFile:    membersFile,
		MetricsEnabled: getenvBool("BAYARD_METRICS_ENABLED", false),
	}, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return n, nil
}

func getenvBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
