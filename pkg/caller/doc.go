// Package caller keeps an API endpoint selection consistent with an
// application whose API surface changes while the user is looking at it.
//
// The package is split into four parts:
//
//   - Normalize flattens an APIMeta snapshot into a sorted list of Entry
//     values named "<service>.<rpc>".
//   - Reduce is a pure state transition over three events (MetaUpdated,
//     EncodingUpdated, UserSelected). It preserves the selection across
//     snapshots by name and falls back to the first entry when the selected
//     RPC disappears.
//   - AppCaller bridges a daemon connection into reducer events. It issues a
//     single status request on Start, follows process/start and
//     process/reload notifications for its application, and detaches from
//     the notification stream on Stop.
//   - Ready and Present gate what a renderer sees: a placeholder until the
//     metadata, the encoding and a selection are all known.
//
// # Usage
//
//	conn, err := jsonrpc.Dial(ctx, "ws://localhost:9400/__dash")
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	c := caller.New("my-app", conn)
//	c.OnChange(func(v caller.View) {
//		if !v.Ready {
//			fmt.Println(v.Placeholder)
//			return
//		}
//		fmt.Println("selected", v.Selected.Name, "at", v.Addr)
//	})
//	c.Start(ctx)
//	defer c.Stop()
//
//	c.Select("greeter.Hello")
//
// # Concurrency
//
// Every AppCaller owns one event loop goroutine. Status responses,
// notifications and user selections are queued and applied one at a time,
// so the state is never mutated concurrently. When the status response and a
// reload notification race, the last one applied wins per field.
package caller
