package auth

import (
	"context"

	"google.golang.org/grpc"
)

// Strategy abstracts how outbound calls are authenticated.
//
// Typical flow per request:
//  1. Call Refresh(ctx) to renew credentials if needed.
//  2. Wrap the outbound context with GRPCMetadata(ctx) and pass it to the RPC.
type Strategy interface {
	// GRPCMetadata returns a context derived from ctx carrying the outgoing
	// headers of this strategy.
	GRPCMetadata(ctx context.Context) context.Context
	// Refresh updates internal state (e.g. token renewal) prior to making
	// calls. Implementations are idempotent and cheap when nothing changes.
	Refresh(ctx context.Context) error
}

// UnaryInterceptor decorates every unary call made on a connection with the
// metadata of s.
func UnaryInterceptor(s Strategy) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(s.GRPCMetadata(ctx), method, req, reply, cc, opts...)
	}
}
