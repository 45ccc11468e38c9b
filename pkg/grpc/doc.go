// Package grpc invokes the endpoints of a running application dynamically.
//
// The application's API encoding carries .proto sources (inline, or fetched
// by the storage package from an API source bundle). They are compiled at
// runtime with protocompile, so no generated stubs or protoc are required.
//
// # Client Creation
//
//	protoFiles := map[string]string{
//		"echo.proto": "syntax = \"proto3\"; ...",
//	}
//
//	client, err := grpc.NewClient("localhost:4000", protoFiles)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// # Invocation Methods
//
// Endpoints are addressed by service and method name, as listed by the
// daemon's API metadata. The service may be the short or the full name.
//
//	out, err := client.CallWithJSON(ctx, "Echo", "Ping", []byte(`{}`))
//
//	res, err := client.CallWithMap(ctx, "Echo", "Echo", map[string]any{"k": "v"})
//
//	msg, err := client.CallWithProto(ctx, "Echo", "Ping", &emptypb.Empty{})
//
// # Method Resolution
//
//  1. Find the service by name in the compiled files.
//  2. Find the method on that service.
//  3. Build /<package>.<Service>/<Method>, using WithPackage when set and
//     the declaring file's package otherwise.
//
// A missing service or method yields an error wrapping ErrMethodNotFound.
//
// # Transport Security
//
//	"https://host:443"  → TLS with system certificates
//	"http://host:8080"  → Insecure plaintext
//	"host:8080"         → Insecure plaintext (no scheme)
//
// # Health
//
// Client.Health uses grpc.health.v1 on the client connection. WebHealth
// performs the same check over gRPC-Web for applications behind a proxy.
// DialEndpoint waits for a connection to become READY.
//
// # Thread Safety
//
// Client instances are safe for concurrent use.
package grpc
