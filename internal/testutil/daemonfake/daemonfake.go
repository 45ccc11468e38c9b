// Package daemonfake runs an in-process daemon speaking JSON-RPC over
// WebSocket. It answers status requests from a table and pushes process
// notifications to every connected client.
package daemonfake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/shamank/apicaller-go/pkg/jsonrpc"
	"github.com/shamank/apicaller-go/pkg/model"
)

// ErrNetworkDisabled is returned by Start when the sandbox forbids listening.
var ErrNetworkDisabled = errors.New("network operations not permitted")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// Daemon is a fake daemon.
type Daemon struct {
	srv *httptest.Server

	mu        sync.Mutex
	status    map[string]model.StatusResponse
	conns     []*jsonrpc.Conn
	requests  []string
	connected chan struct{}
}

// Start starts a daemon on a loopback port.
func Start() (d *Daemon, err error) {
	d = &Daemon{
		status:    make(map[string]model.StatusResponse),
		connected: make(chan struct{}, 16),
	}
	defer func() {
		if r := recover(); r != nil {
			if strings.Contains(fmt.Sprint(r), "operation not permitted") {
				err = ErrNetworkDisabled
				return
			}
			panic(r)
		}
	}()
	d.srv = httptest.NewServer(http.HandlerFunc(d.serveWS))
	return d, nil
}

// URL is the ws:// address clients dial.
func (d *Daemon) URL() string {
	return "ws" + strings.TrimPrefix(d.srv.URL, "http")
}

// SetStatus sets the status response for appID.
func (d *Daemon) SetStatus(appID string, resp model.StatusResponse) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status[appID] = resp
}

// Requests returns the methods requested so far, in order.
func (d *Daemon) Requests() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.requests...)
}

// WaitConnected blocks until a client has connected.
func (d *Daemon) WaitConnected(ctx context.Context) error {
	select {
	case <-d.connected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessStart notifies clients that appID listens on addr.
func (d *Daemon) ProcessStart(appID, addr string) error {
	return d.Broadcast(model.MethodProcessStart, model.ProcessStart{AppID: appID, Addr: addr})
}

// ProcessReload notifies clients of new metadata for appID.
func (d *Daemon) ProcessReload(appID string, meta *model.APIMeta, enc *model.APIEncoding) error {
	return d.Broadcast(model.MethodProcessReload, model.ProcessReload{AppID: appID, Meta: meta, APIEncoding: enc})
}

// Broadcast pushes a notification to every connected client.
func (d *Daemon) Broadcast(method string, params any) error {
	d.mu.Lock()
	conns := append([]*jsonrpc.Conn(nil), d.conns...)
	d.mu.Unlock()

	var errs []error
	for _, c := range conns {
		if err := c.Notify(method, params); err != nil && !errors.Is(err, jsonrpc.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close disconnects every client and stops the server.
func (d *Daemon) Close() {
	d.mu.Lock()
	conns := append([]*jsonrpc.Conn(nil), d.conns...)
	d.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
	d.srv.Close()
}

func (d *Daemon) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := jsonrpc.NewConn(ws, jsonrpc.WithHandler(d.handle))
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	select {
	case d.connected <- struct{}{}:
	default:
	}
	<-c.Done()
}

func (d *Daemon) handle(_ context.Context, method string, params json.RawMessage) (any, error) {
	d.mu.Lock()
	d.requests = append(d.requests, method)
	d.mu.Unlock()

	switch method {
	case model.MethodStatus:
		var p model.StatusParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: err.Error()}
		}
		d.mu.Lock()
		resp := d.status[p.AppID]
		d.mu.Unlock()
		return resp, nil
	default:
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "method not found: " + method}
	}
}
