// Package sdk exposes the high-level apicaller entry point. An Explorer
// wires together the daemon connection, the endpoint selector that follows
// one application, API source storage, call metadata and dynamic gRPC
// invocation of the selected endpoint.
package sdk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	ggrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/shamank/apicaller-go/pkg/auth"
	"github.com/shamank/apicaller-go/pkg/caller"
	"github.com/shamank/apicaller-go/pkg/config"
	"github.com/shamank/apicaller-go/pkg/grpc"
	"github.com/shamank/apicaller-go/pkg/jsonrpc"
	"github.com/shamank/apicaller-go/pkg/model"
	"github.com/shamank/apicaller-go/pkg/storage"
)

// ErrNotReady is returned by calls made while no endpoint can be invoked:
// the metadata, the encoding or a selection is still missing.
var ErrNotReady = errors.New("endpoint not ready")

var logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)

// init configures a default global zap logger. Applications may replace it
// with zap.ReplaceGlobals(...) if they need custom logging.
func init() {
	c := zap.Config{
		Level:            logLevel,
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := c.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
}

// Option configures an Explorer.
type Option func(*Explorer)

// WithStrategy sets the call metadata strategy. By default a bearer strategy
// is used when Config.AuthToken is set and a static one otherwise.
func WithStrategy(s auth.Strategy) Option {
	return func(e *Explorer) { e.strategy = s }
}

// WithDialOptions appends options used for every connection to the
// application.
func WithDialOptions(opts ...ggrpc.DialOption) Option {
	return func(e *Explorer) { e.dialOpts = append(e.dialOpts, opts...) }
}

// WithStorage sets the API source storage client.
func WithStorage(s *storage.Client) Option {
	return func(e *Explorer) { e.storage = s }
}

// Explorer follows one application through a daemon and invokes its
// selected endpoint.
type Explorer struct {
	cfg      *config.Config
	conn     *jsonrpc.Conn
	caller   *caller.AppCaller
	storage  *storage.Client
	strategy auth.Strategy
	dialOpts []ggrpc.DialOption

	mu     sync.Mutex
	client *grpc.Client
	key    clientKey
}

// clientKey identifies the application build a client was created for. A
// reload always delivers a new encoding value.
type clientKey struct {
	addr string
	enc  *model.APIEncoding
}

// New validates cfg, dials the daemon and starts following cfg.AppID.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Explorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.Timeouts = cfg.Timeouts.WithDefaults()
	if cfg.Debug {
		logLevel.SetLevel(zap.DebugLevel)
	}

	e := &Explorer{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.strategy == nil {
		if cfg.AuthToken != "" {
			e.strategy = auth.Bearer(cfg.AppID, cfg.AuthToken)
		} else {
			e.strategy = auth.Static(cfg.AppID, cfg.Headers)
		}
	}
	if e.storage == nil {
		s, err := storage.NewStorage(cfg.IpfsURL, cfg.LighthouseURL, cfg.Timeouts.Fetch)
		if err != nil {
			return nil, err
		}
		e.storage = s
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeouts.Dial)
	defer cancel()
	conn, err := jsonrpc.Dial(dialCtx, cfg.DaemonURL,
		jsonrpc.WithHandshakeTimeout(cfg.Timeouts.Dial),
		jsonrpc.WithPingInterval(cfg.Timeouts.Ping),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	e.conn = conn

	e.caller = caller.New(cfg.AppID, conn,
		caller.WithDefaultAddr(cfg.DefaultAddr),
		caller.WithStatusTimeout(cfg.Timeouts.Status),
	)
	e.caller.Start(context.WithoutCancel(ctx))

	zap.L().Info("following application",
		zap.String("app_id", cfg.AppID),
		zap.String("daemon", cfg.DaemonURL))
	return e, nil
}

// View returns the current presentation of the followed application.
func (e *Explorer) View() caller.View {
	return e.caller.View()
}

// Select selects the endpoint called name ("<Service>.<RPC>").
func (e *Explorer) Select(name string) {
	e.caller.Select(name)
}

// OnChange registers fn to be called after every update of the view.
func (e *Explorer) OnChange(fn func(caller.View)) (remove func()) {
	return e.caller.OnChange(fn)
}

// Synced is closed once the initial status of the application has been
// applied or has failed.
func (e *Explorer) Synced() <-chan struct{} {
	return e.caller.Synced()
}

// Done is closed when the daemon connection is lost.
func (e *Explorer) Done() <-chan struct{} {
	return e.conn.Done()
}

// Call invokes the selected endpoint with a JSON body and returns the JSON
// response.
func (e *Explorer) Call(ctx context.Context, body []byte) ([]byte, error) {
	view, client, err := e.prepare(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeouts.GRPCUnary)
	defer cancel()
	return client.CallWithJSON(ctx, view.Service.Name, view.RPC.Name, body)
}

// CallMap invokes the selected endpoint with a map body.
func (e *Explorer) CallMap(ctx context.Context, params map[string]any) (map[string]any, error) {
	view, client, err := e.prepare(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeouts.GRPCUnary)
	defer cancel()
	return client.CallWithMap(ctx, view.Service.Name, view.RPC.Name, params)
}

// Health checks the application at its live address. It does not require
// the endpoint selection to be ready.
func (e *Explorer) Health(ctx context.Context) (*grpc_health_v1.HealthCheckResponse, error) {
	cc, err := grpc.DialEndpoint(ctx, e.caller.Addr(), e.cfg.Timeouts.Dial, e.dialOptions()...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cc.Close() }()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeouts.GRPCUnary)
	defer cancel()
	return grpc.CheckHealth(ctx, cc, "")
}

// Close stops following the application and releases every connection.
func (e *Explorer) Close() {
	e.caller.Stop()

	e.mu.Lock()
	client := e.client
	e.client, e.key = nil, clientKey{}
	e.mu.Unlock()
	if err := client.Close(); err != nil {
		zap.L().Warn("failed to close grpc client", zap.Error(err))
	}

	if err := e.conn.Close(); err != nil {
		zap.L().Debug("daemon connection close", zap.Error(err))
	}
}

func (e *Explorer) prepare(ctx context.Context) (caller.View, *grpc.Client, error) {
	view := e.caller.View()
	if !view.Ready {
		return view, nil, ErrNotReady
	}
	client, err := e.clientFor(ctx, view)
	if err != nil {
		return view, nil, err
	}
	if err := e.strategy.Refresh(ctx); err != nil {
		return view, nil, err
	}
	return view, client, nil
}

// clientFor returns the client for the application build in view, creating
// it (and closing the previous one) when the address or encoding changed.
func (e *Explorer) clientFor(ctx context.Context, view caller.View) (*grpc.Client, error) {
	key := clientKey{addr: view.Addr, enc: view.Encoding}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil && e.key == key {
		return e.client, nil
	}

	protos, err := e.storage.ResolveProtoFiles(ctx, view.Encoding)
	if err != nil {
		return nil, fmt.Errorf("resolve api encoding: %w", err)
	}
	client, err := grpc.NewClient(view.Addr, protos,
		grpc.WithPackage(view.Encoding.Package),
		grpc.WithDialOptions(e.dialOptions()...),
	)
	if err != nil {
		return nil, err
	}

	if e.client != nil {
		zap.L().Debug("application changed, replacing grpc client",
			zap.String("app_id", e.cfg.AppID),
			zap.String("addr", view.Addr))
		_ = e.client.Close()
	}
	e.client, e.key = client, key
	return client, nil
}

func (e *Explorer) dialOptions() []ggrpc.DialOption {
	opts := []ggrpc.DialOption{ggrpc.WithUnaryInterceptor(auth.UnaryInterceptor(e.strategy))}
	return append(opts, e.dialOpts...)
}
