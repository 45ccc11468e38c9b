package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvDaemonURL = "APICALLER_DAEMON"
	EnvAppID     = "APICALLER_APP"
	EnvAuthToken = "APICALLER_TOKEN"
	EnvDebug     = "APICALLER_DEBUG"
)

// Load reads a YAML configuration from path and applies environment
// overrides. An empty path yields a configuration built from the
// environment alone. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// ApplyEnv overrides fields from the environment using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDaemonURL); ok && v != "" {
		c.DaemonURL = v
	}
	if v, ok := lookup(EnvAppID); ok && v != "" {
		c.AppID = v
	}
	if v, ok := lookup(EnvAuthToken); ok && v != "" {
		c.AuthToken = v
	}
	if v, ok := lookup(EnvDebug); ok {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			c.Debug = true
		case "0", "false", "no", "off":
			c.Debug = false
		}
	}
}
