package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Keekuun/nexus-studio-sub001/internal/comment"
	"github.com/Keekuun/nexus-studio-sub001/internal/config"
)

// writeConfig writes a config file backed by a file store in a temp dir.
func writeConfig(t *testing.T) (cfgPath, dataPath string) {
	t.Helper()

	dir := t.TempDir()
	dataPath = filepath.Join(dir, "comments.json")
	cfgPath = filepath.Join(dir, "config.yaml")

	content := fmt.Sprintf(`env: local
http:
  port: "0"
  shutdown_timeout: 2s
storage:
  driver: file
  path: %s
sse:
  interval: 50ms
log:
  level: error
`, dataPath)

	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	return cfgPath, dataPath
}

func run(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer

	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	require.NoError(t, cmd.ExecuteContext(context.Background()), out.String())

	return out.String()
}

func TestCommentsCommands(t *testing.T) {
	t.Parallel()

	cfgPath, dataPath := writeConfig(t)

	out := run(t, "--config", cfgPath, "comments", "add", "--node", "n1", "--content", "first")

	var created comment.Comment
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.Equal(t, "first", created.Content)
	require.Equal(t, comment.GuestAuthor(), created.Author)

	run(t, "--config", cfgPath, "comments", "add", "--node", "n1", "--content", "second",
		"--author-id", "u1", "--author-name", "Ada")
	run(t, "--config", cfgPath, "comments", "add", "--node", "n2", "--content", "elsewhere")

	t.Run("list node", func(t *testing.T) {
		out := run(t, "--config", cfgPath, "comments", "list", "--node", "n1")

		var listed []comment.Comment
		require.NoError(t, json.Unmarshal([]byte(out), &listed))
		require.Len(t, listed, 2)
		require.Equal(t, "first", listed[0].Content)
		require.Equal(t, comment.Author{ID: "u1", Name: "Ada"}, listed[1].Author)
	})

	t.Run("list all", func(t *testing.T) {
		out := run(t, "--config", cfgPath, "comments", "list")

		var threads map[string][]comment.Comment
		require.NoError(t, json.Unmarshal([]byte(out), &threads))
		require.Len(t, threads, 2)
	})

	t.Run("export yaml", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "export.yaml")
		run(t, "--config", cfgPath, "comments", "export", "--format", "yaml", "--out", target)

		data, err := os.ReadFile(target)
		require.NoError(t, err)

		var doc map[string][]map[string]any
		require.NoError(t, yaml.Unmarshal(data, &doc))
		require.Len(t, doc["n1"], 2)
		require.Equal(t, "elsewhere", doc["n2"][0]["content"])
	})

	t.Run("store file holds the comments", func(t *testing.T) {
		data, err := os.ReadFile(dataPath)
		require.NoError(t, err)

		var threads map[string][]comment.Comment
		require.NoError(t, json.Unmarshal(data, &threads))
		require.Len(t, threads["n1"], 2)
	})
}

func TestCommentsAdd_AvatarOnlyKeepsAvatar(t *testing.T) {
	t.Parallel()

	cfgPath, _ := writeConfig(t)

	out := run(t, "--config", cfgPath, "comments", "add", "--node", "n1", "--content", "hi",
		"--author-avatar", "https://example.com/a.png")

	var created comment.Comment
	require.NoError(t, json.Unmarshal([]byte(out), &created))

	want := comment.GuestAuthor()
	want.Avatar = "https://example.com/a.png"
	require.Equal(t, want, created.Author)
}

// failingCloser accepts writes and fails on Close.
type failingCloser struct {
	bytes.Buffer
}

func (*failingCloser) Close() error {
	return errors.New("disk full")
}

func TestExportTo_ReportsCloseError(t *testing.T) {
	t.Parallel()

	w := &failingCloser{}

	err := exportTo(w, comment.Threads{"n1": {}}, "json")
	require.ErrorContains(t, err, "disk full")
	require.Contains(t, w.String(), `"n1"`)
}

func TestCommentsAdd_RequiresFlags(t *testing.T) {
	t.Parallel()

	cfgPath, _ := writeConfig(t)

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--config", cfgPath, "comments", "add", "--node", "n1"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	require.Error(t, cmd.Execute())
}

func TestCommentsList_BadConfig(t *testing.T) {
	t.Parallel()

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "comments", "list"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "load config")
}

func TestServe(t *testing.T) {
	t.Parallel()

	cfgPath, dataPath := writeConfig(t)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	a := &app{cfg: cfg, logger: zap.NewNop()}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() { done <- a.serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()

	resp, err := http.Post(base+"/comments", "application/json",
		strings.NewReader(`{"nodeId":"n1","content":"over the wire"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = http.Get(base + "/healthz")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	feed, wsResp, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws?nodeId=n1", nil)
	require.NoError(t, err)

	if wsResp != nil && wsResp.Body != nil {
		_ = wsResp.Body.Close()
	}

	defer feed.Close()

	var subscribed map[string]any
	require.NoError(t, feed.ReadJSON(&subscribed))
	require.Equal(t, "subscribed", subscribed["type"])

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}

	// The live feed was closed before the store.
	require.NoError(t, feed.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.Error(t, feed.ReadJSON(&subscribed))

	data, err := os.ReadFile(dataPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "over the wire")
}

func TestServe_BadStore(t *testing.T) {
	t.Parallel()

	cfgPath, _ := writeConfig(t)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	cfg.Storage.Driver = "bogus"

	a := &app{cfg: cfg, logger: zap.NewNop()}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	require.Error(t, a.serve(context.Background(), ln))
}
