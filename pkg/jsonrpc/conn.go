package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const version = "2.0"

// ErrClosed is returned by calls on a connection that has been closed, and
// by requests that were still pending when the connection went away.
var ErrClosed = errors.New("jsonrpc: connection closed")

// Notification is a server-pushed message without a response.
type Notification struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Error is a JSON-RPC error object returned by the remote peer.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc: code %d: %s", e.Code, e.Message)
}

// Standard error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// HandlerFunc serves requests initiated by the remote peer. The returned
// value is marshaled as the result; a returned *Error is sent verbatim, any
// other error is reported as CodeInternalError. Handlers run on the read loop
// and must not issue requests on the same connection.
type HandlerFunc func(ctx context.Context, method string, params json.RawMessage) (any, error)

// message is the union of request, response and notification frames.
type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type subscriber struct {
	id uint64
	fn func(Notification)
}

// Conn is a JSON-RPC connection. It is safe for concurrent use.
type Conn struct {
	ws      *websocket.Conn
	opts    Options
	writeMu sync.Mutex

	nextID atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan message
	subs    []subscriber
	subSeq  uint64
	err     error

	ctx       context.Context
	cancel    context.CancelFunc
	group     *errgroup.Group
	done      chan struct{}
	closeOnce sync.Once
}

// Dial opens a WebSocket to url and starts serving it.
func Dial(ctx context.Context, url string, opts ...Option) (*Conn, error) {
	o := newOptions(opts)
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: o.HandshakeTimeout,
	}
	ws, _, err := dialer.DialContext(ctx, url, o.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	zap.L().Debug("jsonrpc connected", zap.String("url", url))
	return newConn(ws, o), nil
}

// NewConn serves an already established WebSocket, typically one accepted
// by a websocket.Upgrader on the server side.
func NewConn(ws *websocket.Conn, opts ...Option) *Conn {
	return newConn(ws, newOptions(opts))
}

func newConn(ws *websocket.Conn, o Options) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	c := &Conn{
		ws:      ws,
		opts:    o,
		pending: make(map[uint64]chan message),
		ctx:     gctx,
		cancel:  cancel,
		group:   g,
		done:    make(chan struct{}),
	}
	if o.PingInterval > 0 {
		// Set before the read loop starts; gorilla calls it from the reader.
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(c.pongWait()))
		})
	}
	g.Go(c.readLoop)
	if o.PingInterval > 0 {
		g.Go(c.pingLoop)
	}
	// Unblocks the read loop when any other loop fails.
	g.Go(func() error {
		<-gctx.Done()
		_ = ws.Close()
		return nil
	})
	go func() {
		err := g.Wait()
		c.shutdown(err)
	}()
	return c
}

// Request sends a request and waits for its response. When result is
// non-nil the response result is unmarshaled into it.
func (c *Conn) Request(ctx context.Context, method string, params, result any) error {
	id := c.nextID.Add(1)
	ch := make(chan message, 1)

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	raw, err := marshalParams(params)
	if err != nil {
		return err
	}
	if err := c.write(message{JSONRPC: version, ID: &id, Method: method, Params: raw}); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Notify pushes a notification to the remote peer.
func (c *Conn) Notify(method string, params any) error {
	raw, err := marshalParams(params)
	if err != nil {
		return err
	}
	return c.write(message{JSONRPC: version, Method: method, Params: raw})
}

// Subscribe registers fn for every notification received on the connection.
// Subscribers are invoked from the read loop in arrival order and must not
// block. The returned function detaches fn; it is idempotent and takes effect
// immediately, even when called from inside a notification callback.
func (c *Conn) Subscribe(fn func(Notification)) (unsubscribe func()) {
	c.mu.Lock()
	c.subSeq++
	id := c.subSeq
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Done is closed once the connection has shut down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the reason the connection shut down, or nil while it is open.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close tears down the connection and fails all pending requests with
// ErrClosed. It is safe to call multiple times.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		select {
		case <-c.done:
			return
		default:
		}
		c.writeMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.opts.WriteTimeout),
		)
		c.writeMu.Unlock()
		c.cancel()
		err = c.ws.Close()
	})
	<-c.done
	return err
}

func (c *Conn) readLoop() error {
	for {
		if c.opts.PingInterval > 0 {
			_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait()))
		}
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrClosed
			}
			select {
			case <-c.ctx.Done():
				return ErrClosed
			default:
			}
			return err
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			zap.L().Warn("jsonrpc: dropping malformed frame", zap.Error(err))
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Conn) dispatch(msg message) {
	switch {
	case msg.ID != nil && msg.Method != "":
		c.serve(msg)
	case msg.ID != nil:
		c.mu.Lock()
		ch, ok := c.pending[*msg.ID]
		c.mu.Unlock()
		if !ok {
			zap.L().Debug("jsonrpc: response for unknown request", zap.Uint64("id", *msg.ID))
			return
		}
		ch <- msg
	case msg.Method != "":
		n := Notification{Method: msg.Method, Params: msg.Params}
		c.mu.Lock()
		subs := make([]subscriber, len(c.subs))
		copy(subs, c.subs)
		c.mu.Unlock()
		for _, s := range subs {
			if c.subscribed(s.id) {
				s.fn(n)
			}
		}
	}
}

// subscribed reports whether the subscriber is still attached. It is checked
// per callback so an unsubscribe issued by an earlier callback for the same
// notification takes effect immediately.
func (c *Conn) subscribed(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.subs {
		if s.id == id {
			return true
		}
	}
	return false
}

func (c *Conn) serve(req message) {
	resp := message{JSONRPC: version, ID: req.ID}
	if c.opts.Handler == nil {
		resp.Error = &Error{Code: CodeMethodNotFound, Message: "method not found: " + req.Method}
	} else {
		result, err := c.opts.Handler(c.ctx, req.Method, req.Params)
		switch {
		case err == nil:
			raw, mErr := json.Marshal(result)
			if mErr != nil {
				resp.Error = &Error{Code: CodeInternalError, Message: mErr.Error()}
			} else {
				resp.Result = raw
			}
		default:
			var rpcErr *Error
			if errors.As(err, &rpcErr) {
				resp.Error = rpcErr
			} else {
				resp.Error = &Error{Code: CodeInternalError, Message: err.Error()}
			}
		}
	}
	if err := c.write(resp); err != nil {
		zap.L().Warn("jsonrpc: failed to send response", zap.String("method", req.Method), zap.Error(err))
	}
}

// pongWait is how long the read loop waits for any frame, pongs included,
// before declaring the peer dead.
func (c *Conn) pongWait() time.Duration {
	return 2 * c.opts.PingInterval
}

func (c *Conn) pingLoop() error {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return nil
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.opts.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

func (c *Conn) write(msg message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	if c.opts.WriteTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
	}
	return c.ws.WriteJSON(msg)
}

func (c *Conn) shutdown(err error) {
	if err == nil {
		err = ErrClosed
	}
	c.cancel()
	_ = c.ws.Close()

	c.mu.Lock()
	c.err = err
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.subs = nil
	c.mu.Unlock()

	if !errors.Is(err, ErrClosed) {
		zap.L().Warn("jsonrpc connection lost", zap.Error(err))
	}
	close(c.done)
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	return raw, nil
}
