package config

import (
	"testing"
	"time"
)

// TestConfigValidate_AppliesDefaults verifies that Validate fills DaemonURL,
// DefaultAddr and LighthouseURL when they are not explicitly set.
func TestConfigValidate_AppliesDefaults(t *testing.T) {
	cfg := &Config{AppID: "my-app"}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	if cfg.DaemonURL != DefaultDaemonURL {
		t.Fatalf("unexpected DaemonURL: %s", cfg.DaemonURL)
	}
	if cfg.DefaultAddr != "localhost:4000" {
		t.Fatalf("unexpected DefaultAddr: %s", cfg.DefaultAddr)
	}
	if cfg.LighthouseURL != "https://gateway.lighthouse.storage/ipfs/" {
		t.Fatalf("unexpected LighthouseURL: %s", cfg.LighthouseURL)
	}
	if cfg.IpfsURL != "" {
		t.Fatalf("IpfsURL must stay empty, got %s", cfg.IpfsURL)
	}
}

func TestConfigValidate_KeepsCustomValues(t *testing.T) {
	cfg := &Config{
		AppID:         "my-app",
		DaemonURL:     "wss://daemon.example/__encore",
		DefaultAddr:   "127.0.0.1:9000",
		LighthouseURL: "https://custom.lighthouse.io/",
	}
	want := *cfg

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if cfg.DaemonURL != want.DaemonURL || cfg.DefaultAddr != want.DefaultAddr || cfg.LighthouseURL != want.LighthouseURL {
		t.Fatalf("Validate overwrote custom values: %+v", cfg)
	}
}

// TestConfigValidate_RequiresAppID verifies that Validate returns an error
// when AppID is not provided.
func TestConfigValidate_RequiresAppID(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing app id")
	}
}

func TestConfigValidate_DaemonURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "ws", url: "ws://localhost:9400/__encore"},
		{name: "wss", url: "wss://daemon.example"},
		{name: "http", url: "http://localhost:9400", wantErr: true},
		{name: "no scheme", url: "localhost:9400", wantErr: true},
		{name: "no host", url: "ws:///path", wantErr: true},
		{name: "malformed", url: "ws://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AppID: "my-app", DaemonURL: tt.url}
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error for %q", tt.url)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.url, err)
			}
		})
	}
}

// TestTimeoutsWithDefaults verifies that WithDefaults fills in zero durations
// with sane default values while preserving non-zero values.
func TestTimeoutsWithDefaults(t *testing.T) {
	var zero Timeouts
	got := zero.WithDefaults()
	want := Timeouts{
		Dial:      5 * time.Second,
		Status:    10 * time.Second,
		GRPCUnary: 30 * time.Second,
		Fetch:     30 * time.Second,
		Ping:      30 * time.Second,
	}
	if got != want {
		t.Fatalf("WithDefaults() = %+v, want %+v", got, want)
	}

	custom := Timeouts{Dial: time.Second, Fetch: 2 * time.Minute}
	got = custom.WithDefaults()
	if got.Dial != time.Second || got.Fetch != 2*time.Minute {
		t.Fatalf("WithDefaults overwrote custom values: %+v", got)
	}
	if got.Status != 10*time.Second {
		t.Fatalf("WithDefaults left Status unset: %+v", got)
	}
	if custom.Status != 0 {
		t.Fatal("WithDefaults modified its receiver")
	}
}
