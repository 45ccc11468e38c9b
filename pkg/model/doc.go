// Package model defines the wire data structures exchanged with the
// development daemon: application API metadata, API encodings, the status
// response and the lifecycle notifications pushed over the connection.
//
// # API Metadata
//
// APIMeta is a snapshot of an application's API surface. It is received
// wholesale on every status call and every reload notification:
//
//	type APIMeta struct {
//		Svcs []*Service // services declared by the app
//	}
//
//	type Service struct {
//		Name string // service name, e.g. "greeter"
//		RPCs []*RPC  // remote procedures exposed by the service
//	}
//
// Snapshots are decoded fresh on every update, so pointers are never stable
// across snapshots. Consumers that need to correlate an RPC across updates
// must use its composite name ("<service>.<rpc>"), never its address.
//
// # API Encoding
//
// APIEncoding describes how request and response payloads are encoded. The
// daemon either inlines the .proto sources (ProtoFiles) or points at a bundle
// stored in IPFS/Filecoin (APISource). An empty encoding ({}) is still a
// present encoding.
//
// # Notifications
//
// Notification params are a tagged union keyed by the JSON-RPC method:
//
//	"process/start"  → ProcessStart{AppID, Addr}
//	"process/reload" → ProcessReload{AppID, Meta, APIEncoding}
//
// # See Also
//
//   - caller package for the selection state machine built on these types
//   - storage package for resolving APISource bundles
package model
