package auth

import (
	"context"
	"maps"
	"strings"

	"google.golang.org/grpc/metadata"
)

// StaticStrategy attaches a fixed set of headers to every call.
type StaticStrategy struct {
	md metadata.MD
}

// None returns a strategy that only identifies the client and the target
// application.
func None(appID string) *StaticStrategy {
	return Static(appID, nil)
}

// Static returns a strategy attaching headers in addition to the identity
// headers. Header keys are lower-cased as gRPC requires.
func Static(appID string, headers map[string]string) *StaticStrategy {
	md := metadata.Pairs(ClientTypeHeader, ClientType)
	if appID != "" {
		md.Set(AppIDHeader, appID)
	}
	for k, v := range headers {
		md.Set(strings.ToLower(k), v)
	}
	return &StaticStrategy{md: md}
}

// GRPCMetadata merges the static headers into the outgoing metadata of ctx.
func (s *StaticStrategy) GRPCMetadata(ctx context.Context) context.Context {
	return mergeOutgoing(ctx, s.md)
}

// Refresh is a no-op.
func (s *StaticStrategy) Refresh(context.Context) error {
	return nil
}

// Headers returns a copy of the headers sent with every call.
func (s *StaticStrategy) Headers() metadata.MD {
	return s.md.Copy()
}

func mergeOutgoing(ctx context.Context, md metadata.MD) context.Context {
	out, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		return metadata.NewOutgoingContext(ctx, md.Copy())
	}
	merged := out.Copy()
	maps.Copy(merged, md.Copy())
	return metadata.NewOutgoingContext(ctx, merged)
}
