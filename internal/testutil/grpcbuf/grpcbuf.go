// Package grpcbuf runs an in-memory gRPC application for tests. It serves a
// small Echo service described by EchoProto, the standard health service,
// and records the metadata of every unary call.
package grpcbuf

import (
	"context"
	"net"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const bufSize = 1024 * 1024

// Target is the client target to use together with DialOptions.
const Target = "passthrough://bufnet"

// EchoProto declares the service served by Server.
const EchoProto = `
syntax = "proto3";
package test;
import "google/protobuf/empty.proto";
import "google/protobuf/struct.proto";
service Echo {
  rpc Ping(google.protobuf.Empty) returns (google.protobuf.Empty);
  rpc Echo(google.protobuf.Struct) returns (google.protobuf.Struct);
}
`

// MetaCapture captures incoming metadata on the server side for later inspection in tests.
type MetaCapture struct {
	last atomic.Value // metadata.MD
}

// Interceptor records incoming metadata and forwards the request to the next handler.
func (m *MetaCapture) Interceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		m.last.Store(md)
	}
	return handler(ctx, req)
}

// Last returns the most recently captured metadata or nil if none.
func (m *MetaCapture) Last() metadata.MD {
	if v := m.last.Load(); v != nil {
		return v.(metadata.MD)
	}
	return nil
}

// EchoServer is the server side of the Echo service.
type EchoServer interface {
	Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Echo(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type echoServer struct{}

func (echoServer) Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

func (echoServer) Echo(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return in, nil
}

func unaryHandler[T any](fullMethod string, call func(EchoServer, context.Context, *T) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(T)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(EchoServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(EchoServer), ctx, req.(*T))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// EchoServiceDesc describes the Echo service declared in EchoProto.
var EchoServiceDesc = grpc.ServiceDesc{
	ServiceName: "test.Echo",
	HandlerType: (*EchoServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Ping",
			Handler: unaryHandler("/test.Echo/Ping", func(s EchoServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.Ping(ctx, in)
			}),
		},
		{
			MethodName: "Echo",
			Handler: unaryHandler("/test.Echo/Echo", func(s EchoServer, ctx context.Context, in *structpb.Struct) (any, error) {
				return s.Echo(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "echo.proto",
}

// Server is a running in-memory application.
type Server struct {
	GRPC     *grpc.Server
	Listener *bufconn.Listener
	Meta     *MetaCapture
	Health   *health.Server
}

// StartServer spins up a bufconn-backed gRPC server. The health service
// reports SERVING for the server and for "test.Echo".
func StartServer() *Server {
	lis := bufconn.Listen(bufSize)
	capture := &MetaCapture{}
	srv := grpc.NewServer(grpc.UnaryInterceptor(capture.Interceptor))
	srv.RegisterService(&EchoServiceDesc, echoServer{})

	hs := health.NewServer()
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(EchoServiceDesc.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(srv, hs)

	go func() { _ = srv.Serve(lis) }()
	return &Server{GRPC: srv, Listener: lis, Meta: capture, Health: hs}
}

// DialOptions returns the options that route a client dialing Target to s.
func (s *Server) DialOptions() []grpc.DialOption {
	dialer := func(context.Context, string) (net.Conn, error) { return s.Listener.Dial() }
	return []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(dialer),
	}
}

// Stop stops the server and closes the listener.
func (s *Server) Stop() {
	s.GRPC.Stop()
	_ = s.Listener.Close()
}
