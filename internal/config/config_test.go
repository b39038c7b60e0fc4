package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BAYARD_NODE_NAME", "BAYARD_BIND_ADDR", "BAYARD_BIND_PORT",
		"BAYARD_ADVERTISE_ADDR", "BAYARD_ADVERTISE_PORT", "BAYARD_JOIN_ADDRS",
		"BAYARD_GRPC_ADDR", "BAYARD_ADMIN_ADDR", "BAYARD_INDICES_DIR",
		"BAYARD_MEMBERS_FILE", "BAYARD_METRICS_ENABLED",
	} {
		os.Unsetenv(k)
	}
}

func TestFromEnvRequiresNodeName(t *testing.T) {
	clearEnv(t)
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvAppliesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BAYARD_NODE_NAME", "node-1")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "node-1", cfg.NodeName)
	assert.Equal(t, "0.0.0.0", cfg.BindAddr)
	assert.Equal(t, 7946, cfg.BindPort)
	assert.Equal(t, cfg.BindAddr, cfg.AdvertiseAddr)
	assert.Equal(t, cfg.BindPort, cfg.AdvertisePort)
	assert.Equal(t, ":7070", cfg.GRPCAddr)
	assert.Equal(t, ":7080", cfg.AdminAddr)
	assert.Equal(t, "./data", cfg.IndicesDir)
	assert.Equal(t, "./data/members.json", cfg.MembersFile)
	assert.False(t, cfg.MetricsEnabled)
	assert.Nil(t, cfg.JoinAddrs)
}

func TestFromEnvOverridesAndJoinAddrs(t *testing.T) {
	clearEnv(t)
	t.Setenv("BAYARD_NODE_NAME", "node-2")
	t.Setenv("BAYARD_BIND_PORT", "9000")
	t.Setenv("BAYARD_JOIN_ADDRS", "10.0.0.1:7946, 10.0.0.2:7946 ,")
	t.Setenv("BAYARD_METRICS_ENABLED", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.BindPort)
	assert.Equal(t, 9000, cfg.AdvertisePort, "advertise port defaults to the overridden bind port")
	assert.Equal(t, []string{"10.0.0.1:7946", "10.0.0.2:7946"}, cfg.JoinAddrs)
	assert.True(t, cfg.MetricsEnabled)
}

func TestFromEnvRejectsInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("BAYARD_NODE_NAME", "node-1")
	t.Setenv("BAYARD_BIND_PORT", "not-a-port")

	_, err := FromEnv()
	assert.Error(t, err)
}
