package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shamank/apicaller-go/internal/testutil/daemonfake"
	"github.com/shamank/apicaller-go/internal/testutil/grpcbuf"
	"github.com/shamank/apicaller-go/pkg/auth"
	"github.com/shamank/apicaller-go/pkg/caller"
	"github.com/shamank/apicaller-go/pkg/config"
	"github.com/shamank/apicaller-go/pkg/model"
)

func echoMeta(rpcs ...string) *model.APIMeta {
	svc := &model.Service{Name: "Echo"}
	for _, r := range rpcs {
		svc.RPCs = append(svc.RPCs, &model.RPC{Name: r})
	}
	return &model.APIMeta{Svcs: []*model.Service{svc}}
}

func echoEncoding() *model.APIEncoding {
	return &model.APIEncoding{ProtoFiles: map[string]string{"echo.proto": grpcbuf.EchoProto}}
}

func startDaemon(t *testing.T) *daemonfake.Daemon {
	t.Helper()
	d, err := daemonfake.Start()
	if errors.Is(err, daemonfake.ErrNetworkDisabled) {
		t.Skip("network operations not permitted in sandbox")
	}
	if err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func newExplorer(t *testing.T, d *daemonfake.Daemon, srv *grpcbuf.Server, cfg *config.Config, opts ...Option) *Explorer {
	t.Helper()
	cfg.DaemonURL = d.URL()
	if cfg.AppID == "" {
		cfg.AppID = "shop"
	}
	opts = append(opts, WithDialOptions(srv.DialOptions()...))
	e, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func waitView(t *testing.T, e *Explorer, what string, cond func(caller.View) bool) caller.View {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if v := e.View(); cond(v) {
			return v
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
	return caller.View{}
}

func TestExplorer_CallSelectedEndpoint(t *testing.T) {
	d := startDaemon(t)
	srv := grpcbuf.StartServer()
	defer srv.Stop()

	d.SetStatus("shop", model.StatusResponse{
		Addr:        grpcbuf.Target,
		Meta:        echoMeta("Ping", "Echo"),
		APIEncoding: echoEncoding(),
	})
	e := newExplorer(t, d, srv, &config.Config{AuthToken: "secret"})

	v := waitView(t, e, "ready view", func(v caller.View) bool { return v.Ready })
	if v.Selected.Name != "Echo.Echo" {
		t.Fatalf("Selected = %s, want alphabetically first Echo.Echo", v.Selected.Name)
	}

	out, err := e.Call(context.Background(), []byte(`{"greeting":"hi"}`))
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got["greeting"] != "hi" {
		t.Fatalf("unexpected response %s", out)
	}

	md := srv.Meta.Last()
	if a := md.Get(auth.AuthorizationHeader); len(a) != 1 || a[0] != "Bearer secret" {
		t.Fatalf("authorization = %v", a)
	}
	if a := md.Get(auth.AppIDHeader); len(a) != 1 || a[0] != "shop" {
		t.Fatalf("app id header = %v", a)
	}

	e.Select("Echo.Ping")
	waitView(t, e, "Ping selected", func(v caller.View) bool { return v.Selected != nil && v.Selected.Name == "Echo.Ping" })
	res, err := e.CallMap(context.Background(), nil)
	if err != nil {
		t.Fatalf("CallMap error: %v", err)
	}
	if len(res) != 0 {
		t.Fatalf("expected empty response, got %v", res)
	}
}

func TestExplorer_NotReady(t *testing.T) {
	d := startDaemon(t)
	srv := grpcbuf.StartServer()
	defer srv.Stop()

	d.SetStatus("shop", model.StatusResponse{Meta: echoMeta("Ping")})
	e := newExplorer(t, d, srv, &config.Config{})

	waitView(t, e, "status applied", func(caller.View) bool { return e.caller.State().Meta != nil })
	if v := e.View(); v.Ready || v.Placeholder != caller.Placeholder {
		t.Fatalf("expected placeholder view, got %+v", v)
	}
	if _, err := e.Call(context.Background(), nil); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestExplorer_ReloadReplacesClient(t *testing.T) {
	d := startDaemon(t)
	srv := grpcbuf.StartServer()
	defer srv.Stop()

	d.SetStatus("shop", model.StatusResponse{
		Addr:        grpcbuf.Target,
		Meta:        echoMeta("Ping"),
		APIEncoding: echoEncoding(),
	})
	e := newExplorer(t, d, srv, &config.Config{})
	waitView(t, e, "ready", func(v caller.View) bool { return v.Ready })

	if _, err := e.Call(context.Background(), nil); err != nil {
		t.Fatalf("Call error: %v", err)
	}
	e.mu.Lock()
	first := e.client
	e.mu.Unlock()

	if _, err := e.Call(context.Background(), nil); err != nil {
		t.Fatalf("Call error: %v", err)
	}
	e.mu.Lock()
	same := e.client == first
	e.mu.Unlock()
	if !same {
		t.Fatal("client rebuilt without a change")
	}

	changed := make(chan struct{}, 1)
	remove := e.OnChange(func(v caller.View) {
		if v.Ready && v.Selected.Name == "Echo.Echo" {
			select {
			case changed <- struct{}{}:
			default:
			}
		}
	})
	defer remove()

	if err := d.ProcessReload("other", echoMeta("Ignored"), echoEncoding()); err != nil {
		t.Fatalf("ProcessReload error: %v", err)
	}
	if err := d.ProcessReload("shop", echoMeta("Echo"), echoEncoding()); err != nil {
		t.Fatalf("ProcessReload error: %v", err)
	}
	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("reload not applied")
	}

	if _, err := e.Call(context.Background(), []byte(`{"k":"v"}`)); err != nil {
		t.Fatalf("Call after reload error: %v", err)
	}
	e.mu.Lock()
	rebuilt := e.client != first
	e.mu.Unlock()
	if !rebuilt {
		t.Fatal("client not rebuilt after reload")
	}
}

func TestExplorer_ProcessStartAndHealth(t *testing.T) {
	d := startDaemon(t)
	srv := grpcbuf.StartServer()
	defer srv.Stop()

	e := newExplorer(t, d, srv, &config.Config{DefaultAddr: "localhost:1"})
	if got := e.View(); got.Ready {
		t.Fatal("unexpected ready view")
	}

	deadline := time.Now().Add(3 * time.Second)
	for e.caller.Addr() != grpcbuf.Target && time.Now().Before(deadline) {
		if err := d.ProcessStart("shop", grpcbuf.Target); err != nil {
			t.Fatalf("ProcessStart error: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if e.caller.Addr() != grpcbuf.Target {
		t.Fatalf("Addr = %q", e.caller.Addr())
	}

	resp, err := e.Health(context.Background())
	if err != nil {
		t.Fatalf("Health error: %v", err)
	}
	if resp.GetStatus().String() != "SERVING" {
		t.Fatalf("status = %s", resp.GetStatus())
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(context.Background(), &config.Config{}); err == nil {
		t.Fatal("expected error for missing app id")
	}
}

func TestNew_DaemonUnreachable(t *testing.T) {
	d := startDaemon(t)
	url := d.URL()
	d.Close()

	cfg := &config.Config{AppID: "shop", DaemonURL: url, Timeouts: config.Timeouts{Dial: 200 * time.Millisecond}}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected dial error")
	}
}
