// Package auth attaches call metadata (credentials and client identity) to
// invocations of an application's endpoints.
//
// # Strategies
//
// A Strategy decorates the outgoing gRPC context of every call:
//
//	type Strategy interface {
//		GRPCMetadata(ctx context.Context) context.Context
//		Refresh(ctx context.Context) error
//	}
//
// Available implementations:
//   - None: client identity headers only
//   - Static: identity plus a fixed set of headers
//   - Bearer / BearerFrom: identity plus an "authorization: Bearer <token>"
//     header, from a fixed token or a TokenSource refreshed on demand
//
// Every strategy sends AppIDHeader and ClientTypeHeader.
//
// # Usage
//
//	s := auth.Bearer("my-app", token)
//	conn, err := grpc.NewClient(addr,
//		grpc.WithTransportCredentials(insecure.NewCredentials()),
//		grpc.WithUnaryInterceptor(auth.UnaryInterceptor(s)),
//	)
//
// The sdk package picks Bearer when Config.AuthToken is set and Static
// otherwise.
package auth
