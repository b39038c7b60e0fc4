// Package integration black-box tests a small real Bayard cluster: it
// builds the cmd/bayard binary once, launches several processes wired
// together by gossip, and drives them only through the same gRPC surface
// an external client or bayardctl would use.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/bayardsearch/bayard/internal/metadata"
	"github.com/bayardsearch/bayard/internal/rpc"
)

// testNode is one running cmd/bayard process.
type testNode struct {
	t         *testing.T
	name      string
	proc      *exec.Cmd
	grpcAddr  string
	adminAddr string
}

// testCluster is a fleet of testNodes sharing one gossip ring.
type testCluster struct {
	t       *testing.T
	binPath string
	dataDir string
	nodes   []*testNode
}

// buildBayardBinary builds ./cmd/bayard once per test run.
func buildBayardBinary(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "bayard")
	cmd := exec.Command("go", "build", "-o", bin, "../../cmd/bayard")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("failed to build cmd/bayard: %v", err)
	}
	return bin
}

func newTestCluster(t *testing.T, size int) *testCluster {
	t.Helper()
	c := &testCluster{t: t, binPath: buildBayardBinary(t), dataDir: t.TempDir()}

	basePort := 18000 + (os.Getpid()%100)*100
	var seed string
	for i := 0; i < size; i++ {
		n := &testNode{
			t:         t,
			name:      fmt.Sprintf("node-%d", i+1),
			grpcAddr:  fmt.Sprintf("127.0.0.1:%d", basePort+i*10+1),
			adminAddr: fmt.Sprintf("127.0.0.1:%d", basePort+i*10+2),
		}
		bindPort := basePort + i*10 + 3

		env := append(os.Environ(),
			"BAYARD_NODE_NAME="+n.name,
			"BAYARD_BIND_ADDR=127.0.0.1",
			fmt.Sprintf("BAYARD_BIND_PORT=%d", bindPort),
			"BAYARD_GRPC_ADDR="+n.grpcAddr,
			"BAYARD_ADMIN_ADDR="+n.adminAddr,
			"BAYARD_INDICES_DIR="+filepath.Join(c.dataDir, n.name),
		)
		if seed == "" {
			seed = fmt.Sprintf("127.0.0.1:%d", bindPort)
		} else {
			env = append(env, "BAYARD_JOIN_ADDRS="+seed)
		}

		n.proc = exec.Command(c.binPath)
		n.proc.Env = env
		n.proc.Stdout = os.Stdout
		n.proc.Stderr = os.Stderr
		if err := n.proc.Start(); err != nil {
			t.Fatalf("failed to start %s: %v", n.name, err)
		}
		c.nodes = append(c.nodes, n)
	}

	for _, n := range c.nodes {
		n.waitHealthy(t)
	}
	// Give the reconciler a moment to settle once every node has joined,
	// since readiness only requires one membership snapshot, not a
	// converged one.
	time.Sleep(2 * time.Second)
	return c
}

func (c *testCluster) stop() {
	for _, n := range c.nodes {
		if n.proc != nil && n.proc.Process != nil {
			n.proc.Process.Kill()
			n.proc.Wait()
		}
	}
}

func (n *testNode) waitHealthy(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(15 * time.Second)
	url := "http://" + n.adminAddr + "/healthz"
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	t.Fatalf("%s never became healthy at %s", n.name, url)
}

func (n *testNode) dialIndexService(t *testing.T) (*rpc.Client, func()) {
	t.Helper()
	conn, err := grpc.NewClient(n.grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial %s: %v", n.name, err)
	}
	return rpc.NewClient(conn), func() { conn.Close() }
}

func (n *testNode) dialClientService(t *testing.T) (*rpc.ClientServiceClient, func()) {
	t.Helper()
	conn, err := grpc.NewClient(n.grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial %s: %v", n.name, err)
	}
	return rpc.NewClientServiceClient(conn), func() { conn.Close() }
}

func requireBayardBuildable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("skipping integration test: go toolchain not on PATH")
	}
}

// TestDistributedIndexLifecycle exercises create_index, a replicated,
// sharded put/commit, a scatter-gather search from a node that did not
// receive the write directly, a delete, and delete_index end to end
// across three real gossiping processes.
func TestDistributedIndexLifecycle(t *testing.T) {
	requireBayardBuildable(t)

	cluster := newTestCluster(t, 3)
	defer cluster.stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	admin, closeAdmin := cluster.nodes[0].dialIndexService(t)
	defer closeAdmin()

	fields := []metadata.Field{
		{Name: "title", Type: metadata.FieldText, Stored: true, Indexed: true},
		{Name: "body", Type: metadata.FieldText, Stored: true, Indexed: true},
	}
	createResp, err := admin.CreateIndex(ctx, &rpc.CreateIndexRequest{
		Name:          "articles",
		Fields:        fields,
		WriterThreads: 1,
		WriterMemSize: 32 << 20,
		NumReplicas:   2,
		NumShards:     4,
	})
	if err != nil {
		t.Fatalf("create_index: %v", err)
	}
	if len(createResp.Meta) == 0 {
		t.Fatal("create_index returned no metadata")
	}

	// The control message must have been broadcast: every node's
	// reconciler should eventually agree the index exists.
	waitForIndexEverywhere(t, ctx, cluster, "articles")

	writer, closeWriter := cluster.nodes[0].dialClientService(t)
	defer closeWriter()

	docs := [][]byte{
		mustJSON(t, map[string]interface{}{"id": "doc-1", "fields": map[string]interface{}{"title": "first article", "body": "alpha bravo"}}),
		mustJSON(t, map[string]interface{}{"id": "doc-2", "fields": map[string]interface{}{"title": "second article", "body": "charlie delta"}}),
		mustJSON(t, map[string]interface{}{"id": "doc-3", "fields": map[string]interface{}{"title": "third article", "body": "alpha delta"}}),
	}
	if _, err := writer.PutDocuments(ctx, &rpc.ClientPutDocumentsRequest{Index: "articles", Docs: docs}); err != nil {
		t.Fatalf("put_documents: %v", err)
	}
	if _, err := writer.Commit(ctx, &rpc.ClientCommitRequest{Index: "articles"}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Search from the last node in the fleet, which never fielded the
	// write directly — this only succeeds if the reconciler opened the
	// shards that landed on it and the router can reach every replica.
	reader, closeReader := cluster.nodes[len(cluster.nodes)-1].dialClientService(t)
	defer closeReader()

	var res *rpc.ClientSearchResponse
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		res, err = reader.Search(ctx, &rpc.ClientSearchRequest{Index: "articles", Query: "alpha", Hits: 10})
		if err == nil && res.TotalHits == 2 {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.TotalHits != 2 {
		t.Fatalf("expected 2 hits for 'alpha', got %d (%+v)", res.TotalHits, res.Documents)
	}

	if _, err := writer.DeleteDocuments(ctx, &rpc.ClientDeleteDocumentsRequest{Index: "articles", IDs: []string{"doc-1"}}); err != nil {
		t.Fatalf("delete_documents: %v", err)
	}
	if _, err := writer.Commit(ctx, &rpc.ClientCommitRequest{Index: "articles"}); err != nil {
		t.Fatalf("commit after delete: %v", err)
	}

	deadline = time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		res, err = reader.Search(ctx, &rpc.ClientSearchRequest{Index: "articles", Query: "alpha", Hits: 10})
		if err == nil && res.TotalHits == 1 {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("search after delete: %v", err)
	}
	if res.TotalHits != 1 {
		t.Fatalf("expected 1 hit for 'alpha' after delete, got %d", res.TotalHits)
	}

	if _, err := admin.DeleteIndex(ctx, &rpc.DeleteIndexRequest{Name: "articles"}); err != nil {
		t.Fatalf("delete_index: %v", err)
	}
}

// waitForIndexEverywhere polls get_index on every node until it succeeds
// or the test's context is done, tolerating the gossip propagation delay
// of a freshly broadcast create_index message.
func waitForIndexEverywhere(t *testing.T, ctx context.Context, c *testCluster, name string) {
	t.Helper()
	for _, n := range c.nodes {
		client, closeFn := n.dialIndexService(t)
		defer closeFn()

		deadline := time.Now().Add(10 * time.Second)
		var lastErr error
		for time.Now().Before(deadline) {
			if _, err := client.GetIndex(ctx, &rpc.GetIndexRequest{Name: name}); err == nil {
				lastErr = nil
				break
			} else {
				lastErr = err
			}
			time.Sleep(200 * time.Millisecond)
		}
		if lastErr != nil {
			t.Fatalf("%s never saw index %q: %v", n.name, name, lastErr)
		}
	}
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
