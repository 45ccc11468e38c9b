// Package config provides configuration management for apicaller sessions.
//
// # Basic Configuration
//
// The minimum required configuration names the application to follow:
//
//	cfg := &config.Config{AppID: "shop"}
//	if err := cfg.Validate(); err != nil {
//		return err
//	}
//
// Validate fills the daemon URL (ws://localhost:9400/__encore), the
// default application address (localhost:4000) and the Lighthouse gateway.
//
// # Loading
//
// Load reads a YAML file and then applies environment overrides:
//
//	APICALLER_DAEMON  daemon WebSocket URL
//	APICALLER_APP     application id
//	APICALLER_TOKEN   bearer token for invocations
//	APICALLER_DEBUG   1/true/yes/on enables debug logging
//
// Example file:
//
//	daemon_url: ws://localhost:9400/__encore
//	app_id: shop
//	auth_token: secret
//	headers:
//	  x-tenant: acme
//	ipfs_url: http://localhost:5001
//	timeouts:
//	  dial: 2s
//	  grpc_unary: 1m
//
// # Timeouts
//
// Zero durations are replaced by Timeouts.WithDefaults:
//
//	Dial:      5s   daemon and gRPC connect
//	Status:    10s  initial status request
//	GRPCUnary: 30s  endpoint invocation
//	Fetch:     30s  API source download
//	Ping:      30s  daemon keepalive interval
package config
