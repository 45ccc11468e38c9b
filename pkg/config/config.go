// Package config defines the runtime configuration of an apicaller session:
// the daemon to follow, the application to watch, call credentials, API
// source gateways, debug mode and operation timeouts. It also provides
// validation, defaulting and YAML loading helpers.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	// DefaultDaemonURL is the WebSocket endpoint of a local daemon.
	DefaultDaemonURL = "ws://localhost:9400/__encore"
	// DefaultAddr is the application address assumed until the daemon reports one.
	DefaultAddr = "localhost:4000"
	// DefaultLighthouseURL is the public Lighthouse gateway.
	DefaultLighthouseURL = "https://gateway.lighthouse.storage/ipfs/"
)

// Config holds all settings required to follow an application and invoke its
// endpoints. Use Validate to fill implicit defaults and to check for
// required fields.
type Config struct {
	// DaemonURL is the ws:// or wss:// JSON-RPC endpoint of the daemon.
	// Default: ws://localhost:9400/__encore
	DaemonURL string `json:"daemon_url" yaml:"daemon_url"`
	// AppID selects the application to follow (required).
	AppID string `json:"app_id" yaml:"app_id"`
	// DefaultAddr is the application address used before the daemon reports
	// one. Default: localhost:4000
	DefaultAddr string `json:"default_addr" yaml:"default_addr"`
	// AuthToken, when set, is sent as a bearer token on every invocation.
	AuthToken string `json:"auth_token" yaml:"auth_token"`
	// Headers are extra metadata sent on every invocation.
	Headers map[string]string `json:"headers" yaml:"headers"`
	// IpfsURL is the HTTP API endpoint of the IPFS node used to read API
	// sources. Empty disables IPFS.
	IpfsURL string `json:"ipfs_url" yaml:"ipfs_url"`
	// LighthouseURL is the HTTP gateway used to fetch Filecoin-backed content.
	// Default: https://gateway.lighthouse.storage/ipfs/
	LighthouseURL string `json:"lighthouse_url" yaml:"lighthouse_url"`
	// Debug enables verbose logging.
	Debug bool `json:"debug" yaml:"debug"`
	// Timeouts configures per-operation timeouts. See Timeouts.WithDefaults for defaults.
	Timeouts Timeouts `json:"timeouts" yaml:"timeouts"`
}

// Timeouts controls operation deadlines.
// Zero values will be replaced by sane defaults in WithDefaults.
type Timeouts struct {
	Dial      time.Duration `json:"dial" yaml:"dial"`             // daemon and gRPC connect
	Status    time.Duration `json:"status" yaml:"status"`         // initial status request
	GRPCUnary time.Duration `json:"grpc_unary" yaml:"grpc_unary"` // endpoint invocation
	Fetch     time.Duration `json:"fetch" yaml:"fetch"`           // API source download
	Ping      time.Duration `json:"ping" yaml:"ping"`             // daemon keepalive interval
}

// Validate normalizes the configuration by applying implicit defaults for
// DaemonURL, DefaultAddr and LighthouseURL and verifies the rest. Returns an
// error when AppID is empty or DaemonURL is not a WebSocket URL.
func (c *Config) Validate() error {
	if c.DaemonURL == "" {
		c.DaemonURL = DefaultDaemonURL
	}
	if c.DefaultAddr == "" {
		c.DefaultAddr = DefaultAddr
	}
	if c.LighthouseURL == "" {
		c.LighthouseURL = DefaultLighthouseURL
	}

	if c.AppID == "" {
		return errors.New("app id is required")
	}

	u, err := url.Parse(c.DaemonURL)
	if err != nil {
		return fmt.Errorf("invalid daemon url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("daemon url must use ws:// or wss://, got %q", c.DaemonURL)
	}
	if u.Host == "" {
		return fmt.Errorf("daemon url has no host: %q", c.DaemonURL)
	}
	return nil
}

// WithDefaults returns a copy of t with zero values replaced by defaults:
//
//	Dial:      5s
//	Status:    10s
//	GRPCUnary: 30s
//	Fetch:     30s
//	Ping:      30s
func (t Timeouts) WithDefaults() Timeouts {
	tt := t
	if tt.Dial == 0 {
		tt.Dial = 5 * time.Second
	}
	if tt.Status == 0 {
		tt.Status = 10 * time.Second
	}
	if tt.GRPCUnary == 0 {
		tt.GRPCUnary = 30 * time.Second
	}
	if tt.Fetch == 0 {
		tt.Fetch = 30 * time.Second
	}
	if tt.Ping == 0 {
		tt.Ping = 30 * time.Second
	}
	return tt
}
