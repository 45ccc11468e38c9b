// Package sdk is the entry point for following an application through its
// daemon and invoking the endpoint selected on it.
//
// # Quick Start
//
//	cfg := &config.Config{AppID: "shop"}
//	explorer, err := sdk.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer explorer.Close()
//
//	explorer.OnChange(func(v caller.View) {
//		if !v.Ready {
//			fmt.Println(v.Placeholder)
//			return
//		}
//		fmt.Println("selected", v.Selected.Name, "at", v.Addr)
//	})
//
//	explorer.Select("Orders.List")
//	out, err := explorer.Call(ctx, []byte(`{"limit": 10}`))
//
// # Lifecycle
//
// New dials the daemon, subscribes to process notifications for the
// application and requests its status. The endpoint list and selection are
// kept up to date as the application restarts (process/start) and is
// rebuilt with new metadata (process/reload).
//
// Call and CallMap return ErrNotReady until the metadata, the API encoding
// and a selection are all known. The gRPC client used for invocations is
// cached and replaced whenever the live address or the encoding changes.
//
// # Call Metadata
//
// Every invocation carries the headers of an auth.Strategy. By default a
// bearer strategy is used when Config.AuthToken is set, and the static
// Config.Headers otherwise. Use WithStrategy to supply another one.
//
// # Logging
//
// The package installs a console zap logger at init. Config.Debug raises it
// to debug level. Replace it with zap.ReplaceGlobals for custom logging.
package sdk
