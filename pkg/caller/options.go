package caller

import (
	"time"

	"go.uber.org/zap"
)

// DefaultAddr is the live address assumed until the daemon reports one.
const DefaultAddr = "localhost:4000"

type options struct {
	logger        *zap.Logger
	statusTimeout time.Duration
	defaultAddr   string
	buffer        int
}

// Option configures an AppCaller.
type Option func(*options)

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStatusTimeout bounds the initial status request. Zero means no
// timeout beyond the context passed to Start.
func WithStatusTimeout(d time.Duration) Option {
	return func(o *options) { o.statusTimeout = d }
}

// WithDefaultAddr sets the address reported before the daemon provides one.
func WithDefaultAddr(addr string) Option {
	return func(o *options) { o.defaultAddr = addr }
}

// WithEventBuffer sets the capacity of the event queue. Daemon
// notifications wait for room in the queue; selections beyond it are
// coalesced to the latest one.
func WithEventBuffer(n int) Option {
	return func(o *options) { o.buffer = n }
}

func newOptions(opts []Option) options {
	o := options{
		defaultAddr: DefaultAddr,
		buffer:      64,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.L()
	}
	if o.buffer < 1 {
		o.buffer = 1
	}
	return o
}
