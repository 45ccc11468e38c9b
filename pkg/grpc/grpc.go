package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bufbuild/protocompile/linker"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Client is a dynamic gRPC client that holds a connected gRPC ClientConn and a
// set of compiled file descriptors used to locate services/methods at runtime.
type Client struct {
	// GRPC is the underlying client connection.
	GRPC *grpc.ClientConn `json:"-"`
	// ProtoFiles are the compiled descriptors of the provided .proto sources.
	ProtoFiles linker.Files `json:"-"`

	pkg string
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	pkg      string
	dialOpts []grpc.DialOption
}

// WithPackage overrides the proto package used to build full method paths.
func WithPackage(pkg string) Option {
	return func(o *clientOptions) { o.pkg = pkg }
}

// WithDialOptions appends options passed to grpc.NewClient.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *clientOptions) { o.dialOpts = append(o.dialOpts, opts...) }
}

// NewClient creates a dynamic gRPC client for the given endpoint and set of
// .proto files (as filename → file content). The endpoint scheme determines
// transport security:
//   - "https://": TLS (system defaults)
//   - "http://":  insecure
//   - no scheme:  insecure
//
// The proto files are compiled before any connection is made. The returned
// client proactively starts connecting (ClientConn.Connect()).
func NewClient(endpoint string, protoFiles map[string]string, opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	descriptors, err := compileProtoFiles(protoFiles)
	if err != nil {
		return nil, err
	}

	addr, creds := grpcCredsFromEndpoint(endpoint)
	conn, err := grpc.NewClient(addr, append([]grpc.DialOption{creds}, o.dialOpts...)...)
	if err != nil {
		zap.L().Error("failed to create grpc client", zap.String("addr", addr), zap.Error(err))
		return nil, fmt.Errorf("grpc client %s: %w", addr, err)
	}
	conn.Connect()

	return &Client{
		GRPC:       conn,
		ProtoFiles: descriptors,
		pkg:        o.pkg,
	}, nil
}

// Close shuts down the underlying gRPC connection.
// It is safe to call on a nil receiver or when GRPC is nil.
func (c *Client) Close() error {
	if c == nil || c.GRPC == nil {
		return nil
	}
	return c.GRPC.Close()
}

// CallWithMap invokes a unary RPC using a map as the request body. The map
// is JSON-encoded and then routed through CallWithJSON.
func (c *Client) CallWithMap(ctx context.Context, service, method string, params map[string]any) (map[string]any, error) {
	jsonData, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	jsonStr, err := c.CallWithJSON(ctx, service, method, jsonData)
	if err != nil {
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(jsonStr, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// CallWithProto invokes a unary RPC with a concrete proto.Message request and
// returns a dynamic proto.Message response.
func (c *Client) CallWithProto(ctx context.Context, service, method string, req proto.Message) (proto.Message, error) {
	fullMethod, methodDesc, err := c.resolve(service, method)
	if err != nil {
		return nil, err
	}
	out := dynamicpb.NewMessage(methodDesc.Output())
	if err := c.GRPC.Invoke(ctx, fullMethod, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CallWithJSON invokes a unary RPC using a JSON request body.
// The JSON is unmarshalled into a dynamic input message (discarding unknown
// fields and allowing partial messages), the call is performed, and the
// response is marshaled back to JSON with proto field names and unpopulated
// fields emitted. An empty body is sent as an empty message.
func (c *Client) CallWithJSON(ctx context.Context, service, method string, body []byte) ([]byte, error) {
	fullMethod, methodDesc, err := c.resolve(service, method)
	if err != nil {
		return nil, err
	}

	in := dynamicpb.NewMessage(methodDesc.Input())
	out := dynamicpb.NewMessage(methodDesc.Output())

	if len(body) > 0 {
		err = protojson.UnmarshalOptions{
			AllowPartial:   true,
			DiscardUnknown: true,
		}.Unmarshal(body, in)
		if err != nil {
			return nil, fmt.Errorf("decode request for %s: %w", fullMethod, err)
		}
	}

	zap.L().Debug("grpc invoke", zap.String("method", fullMethod))
	if err := c.GRPC.Invoke(ctx, fullMethod, in, out); err != nil {
		return nil, err
	}

	jsonBytes, err := protojson.MarshalOptions{
		EmitUnpopulated: true,
		UseProtoNames:   true,
	}.Marshal(out)
	if err != nil {
		return nil, err
	}

	return jsonBytes, nil
}

// resolve locates service/method in the compiled files and returns the
// fully-qualified method path "/<package>.<Service>/<Method>".
func (c *Client) resolve(service, method string) (string, protoreflect.MethodDescriptor, error) {
	fd, methodDesc, err := FindMethod(c.ProtoFiles, service, method)
	if err != nil {
		return "", nil, err
	}
	return FullMethod(c.pkgFor(fd), methodDesc), methodDesc, nil
}

func (c *Client) pkgFor(fd protoreflect.FileDescriptor) string {
	if c.pkg != "" {
		return c.pkg
	}
	return string(fd.Package())
}

// FullMethod builds the invocation path of m within pkg.
func FullMethod(pkg string, m protoreflect.MethodDescriptor) string {
	svc := string(m.Parent().Name())
	if pkg != "" {
		svc = pkg + "." + svc
	}
	return "/" + svc + "/" + string(m.Name())
}

// DialEndpoint opens a connection to endpoint and waits until it is READY or
// timeout elapses. The caller owns the returned connection.
func DialEndpoint(ctx context.Context, endpoint string, timeout time.Duration, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	addr, creds := grpcCredsFromEndpoint(endpoint)
	conn, err := grpc.NewClient(addr, append([]grpc.DialOption{creds}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("grpc client %s: %w", addr, err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn.Connect()
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return conn, nil
		}
		if !conn.WaitForStateChange(ctx, state) {
			_ = conn.Close()
			return nil, fmt.Errorf("dial %s: %w (last state %s)", addr, ctx.Err(), state)
		}
	}
}

// grpcCredsFromEndpoint derives a dial address and dial option from an endpoint URL.
// "https://" enables TLS; "http://" and bare addresses use insecure credentials.
func grpcCredsFromEndpoint(endpoint string) (string, grpc.DialOption) {
	if strings.HasPrefix(endpoint, "https://") {
		return strings.TrimPrefix(endpoint, "https://"), grpc.WithTransportCredentials(credentials.NewTLS(nil))
	}
	if strings.HasPrefix(endpoint, "http://") {
		return strings.TrimPrefix(endpoint, "http://"), grpc.WithTransportCredentials(insecure.NewCredentials())
	}
	return endpoint, grpc.WithTransportCredentials(insecure.NewCredentials())
}
