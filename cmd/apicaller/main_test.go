package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/shamank/apicaller-go/internal/testutil/daemonfake"
	"github.com/shamank/apicaller-go/internal/testutil/grpcbuf"
	"github.com/shamank/apicaller-go/pkg/caller"
	"github.com/shamank/apicaller-go/pkg/config"
	"github.com/shamank/apicaller-go/pkg/model"
	"github.com/shamank/apicaller-go/pkg/sdk"
)

func readyView() caller.View {
	s := caller.Reduce(caller.State{Encoding: &model.APIEncoding{}}, caller.MetaUpdated{Meta: &model.APIMeta{Svcs: []*model.Service{
		{Name: "Orders", RPCs: []*model.RPC{
			{Name: "List", AccessType: "public", Doc: "List orders.\nPaginated."},
			{Name: "Create", AccessType: "auth"},
		}},
	}}})
	return caller.Present(s, "shop", "localhost:4000")
}

func TestFormatView(t *testing.T) {
	if got := formatView(caller.Present(caller.State{}, "shop", "localhost:4000")); got != caller.Placeholder {
		t.Fatalf("formatView(not ready) = %q", got)
	}
	want := "shop @ localhost:4000: Orders.Create (2 endpoints)"
	if got := formatView(readyView()); got != want {
		t.Fatalf("formatView = %q, want %q", got, want)
	}
}

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer
	printEntries(&buf, readyView())

	want := []string{
		"* Orders.Create [auth]",
		"  Orders.List [public]  List orders.",
	}
	if diff := cmp.Diff(want, strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")); diff != "" {
		t.Fatalf("printEntries mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	for _, k := range []string{config.EnvDaemonURL, config.EnvAppID, config.EnvAuthToken, config.EnvDebug} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "apicaller.yaml")
	if err := os.WriteFile(path, []byte("app_id: from-file\ndaemon_url: ws://file:9400\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	r := &rootCmd{}
	cmd := r.command()
	if err := cmd.ParseFlags([]string{"--config", path, "--app", "from-flag"}); err != nil {
		t.Fatalf("ParseFlags error: %v", err)
	}
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig error: %v", err)
	}
	if cfg.AppID != "from-flag" {
		t.Fatalf("AppID = %q, want flag value", cfg.AppID)
	}
	if cfg.DaemonURL != "ws://file:9400" {
		t.Fatalf("DaemonURL = %q, want file value", cfg.DaemonURL)
	}
}

// syncBuffer lets a test read output while a command is still writing it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// runCLI runs the CLI against a fake daemon and an in-memory application.
func runCLI(t *testing.T, d *daemonfake.Daemon, srv *grpcbuf.Server, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{config.EnvDaemonURL, config.EnvAppID, config.EnvAuthToken, config.EnvDebug} {
		t.Setenv(k, "")
	}
	r := &rootCmd{
		newExplorer: func(ctx context.Context, cfg *config.Config) (*sdk.Explorer, error) {
			return sdk.New(ctx, cfg, sdk.WithDialOptions(srv.DialOptions()...))
		},
	}
	cmd := r.command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--daemon", d.URL(), "--app", "shop", "--wait", "3s"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func startApp(t *testing.T) (*daemonfake.Daemon, *grpcbuf.Server) {
	t.Helper()
	d, err := daemonfake.Start()
	if errors.Is(err, daemonfake.ErrNetworkDisabled) {
		t.Skip("network operations not permitted in sandbox")
	}
	if err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Close)

	srv := grpcbuf.StartServer()
	t.Cleanup(srv.Stop)

	d.SetStatus("shop", model.StatusResponse{
		Addr: grpcbuf.Target,
		Meta: &model.APIMeta{Svcs: []*model.Service{{Name: "Echo", RPCs: []*model.RPC{{Name: "Ping"}, {Name: "Echo"}}}}},
		APIEncoding: &model.APIEncoding{
			ProtoFiles: map[string]string{"echo.proto": grpcbuf.EchoProto},
		},
	})
	return d, srv
}

func TestCLI_List(t *testing.T) {
	d, srv := startApp(t)

	out, err := runCLI(t, d, srv, "list")
	if err != nil {
		t.Fatalf("list error: %v\n%s", err, out)
	}
	if out != "* Echo.Echo\n  Echo.Ping\n" {
		t.Fatalf("unexpected list output:\n%s", out)
	}
}

func TestCLI_Call(t *testing.T) {
	d, srv := startApp(t)

	out, err := runCLI(t, d, srv, "call", "Echo.Echo", "--data", `{"greeting":"hi"}`)
	if err != nil {
		t.Fatalf("call error: %v\n%s", err, out)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got["greeting"] != "hi" {
		t.Fatalf("unexpected response %v", got)
	}

	if _, err := runCLI(t, d, srv, "call", "Echo.Missing"); err == nil || !strings.Contains(err.Error(), "unknown endpoint") {
		t.Fatalf("expected unknown endpoint error, got %v", err)
	}
	if _, err := runCLI(t, d, srv, "call", "Echo.Echo", "--data", "{"); err == nil {
		t.Fatal("expected invalid JSON error")
	}
}

func TestCLI_Health(t *testing.T) {
	d, srv := startApp(t)

	out, err := runCLI(t, d, srv, "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if strings.TrimSpace(out) != "SERVING" {
		t.Fatalf("unexpected health output %q", out)
	}
}

func TestCLI_Watch(t *testing.T) {
	d, srv := startApp(t)
	for _, k := range []string{config.EnvDaemonURL, config.EnvAppID, config.EnvAuthToken, config.EnvDebug} {
		t.Setenv(k, "")
	}

	r := &rootCmd{
		newExplorer: func(ctx context.Context, cfg *config.Config) (*sdk.Explorer, error) {
			return sdk.New(ctx, cfg, sdk.WithDialOptions(srv.DialOptions()...))
		},
	}
	cmd := r.command()
	var out syncBuffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--daemon", d.URL(), "--app", "shop", "watch"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- cmd.ExecuteContext(ctx) }()

	waitOutput := func(want string) {
		t.Helper()
		deadline := time.Now().Add(3 * time.Second)
		for !strings.Contains(out.String(), want) {
			if time.Now().After(deadline) {
				t.Fatalf("output never contained %q:\n%s", want, out.String())
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	waitOutput("shop @ " + grpcbuf.Target + ": Echo.Echo (2 endpoints)")

	meta := &model.APIMeta{Svcs: []*model.Service{{Name: "Echo", RPCs: []*model.RPC{{Name: "Ping"}}}}}
	if err := d.ProcessReload("shop", meta, &model.APIEncoding{}); err != nil {
		t.Fatalf("reload: %v", err)
	}
	waitOutput("shop @ " + grpcbuf.Target + ": Echo.Ping (1 endpoints)")

	// A burst larger than any buffer must still end on the newest view.
	const burst = 40
	for i := 0; i < burst; i++ {
		meta := &model.APIMeta{Svcs: []*model.Service{{Name: "Echo", RPCs: []*model.RPC{{Name: fmt.Sprintf("R%02d", i)}}}}}
		if err := d.ProcessReload("shop", meta, &model.APIEncoding{}); err != nil {
			t.Fatalf("reload %d: %v", i, err)
		}
	}
	final := fmt.Sprintf("shop @ %s: Echo.R%02d (1 endpoints)", grpcbuf.Target, burst-1)
	waitOutput(final)

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("watch: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not exit on cancel")
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if got := lines[len(lines)-1]; got != final {
		t.Fatalf("last line = %q, want %q", got, final)
	}
}
