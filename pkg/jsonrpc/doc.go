// Package jsonrpc implements a bidirectional JSON-RPC 2.0 connection over a
// WebSocket. A single Conn carries request/response exchanges in both
// directions and a stream of server-pushed notifications that any number of
// subscribers can attach to and detach from at runtime.
//
// # Client
//
//	conn, err := jsonrpc.Dial(ctx, "ws://localhost:9400/__encore",
//		jsonrpc.WithPingInterval(30*time.Second),
//	)
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	var status model.StatusResponse
//	err = conn.Request(ctx, "status", model.StatusParams{AppID: "my-app"}, &status)
//
//	unsubscribe := conn.Subscribe(func(n jsonrpc.Notification) {
//		fmt.Println(n.Method)
//	})
//	defer unsubscribe()
//
// # Server
//
// NewConn serves a WebSocket accepted by a websocket.Upgrader. Requests from
// the peer are answered by the HandlerFunc given with WithHandler; Notify
// pushes notifications.
//
// # Keepalive
//
// With a ping interval set, the connection shuts down when a ping cannot be
// written or when no frame arrives within two intervals. Done is closed and
// pending requests fail with ErrClosed.
package jsonrpc
