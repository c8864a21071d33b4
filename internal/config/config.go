// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the client configuration.
type Config struct {
	Gateway   GatewayConfig   `toml:"gateway"`
	NATS      NATSConfig      `toml:"nats"` // Alternative event source for development
	Replay    ReplayConfig    `toml:"replay"`
	Sandbox   SandboxConfig   `toml:"sandbox"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// GatewayConfig contains the live session transport settings.
type GatewayConfig struct {
	URL               string `toml:"url"`
	TokenEnv          string `toml:"token_env"`          // Env var holding the auth token
	HeartbeatInterval string `toml:"heartbeat_interval"` // Ping cadence (default "30s")
	ReconnectAttempts int    `toml:"reconnect_attempts"` // Bounded retries (default 3)
	ReconnectBase     string `toml:"reconnect_base"`     // Linear backoff unit (default "1s")
	ToolTimeout       string `toml:"tool_timeout"`       // Out-of-band tool call bound (default "60s")
}

// NATSConfig points the client at a NATS server instead of the gateway.
type NATSConfig struct {
	URL            string `toml:"url"`
	EventSubject   string `toml:"event_subject"`
	CommandSubject string `toml:"command_subject"`
}

// ReplayConfig contains showcase playback settings.
type ReplayConfig struct {
	Dir      string  `toml:"dir"`       // Showcase catalog directory
	Speed    float64 `toml:"speed"`     // Initial speed, clamped to [0.5, 5]
	MaxDelay string  `toml:"max_delay"` // Inter-event gap cap (default "2s")
}

// SandboxConfig contains sandbox identity persistence settings.
type SandboxConfig struct {
	StateDir string `toml:"state_dir"` // Where the sandbox id is persisted
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level string `toml:"level"` // debug|info|warn|error
}

// TelemetryConfig contains telemetry settings.
type TelemetryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"` // OTLP endpoint (e.g., localhost:4317)
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		Gateway: GatewayConfig{
			HeartbeatInterval: "30s",
			ReconnectAttempts: 3,
			ReconnectBase:     "1s",
			ToolTimeout:       "60s",
		},
		Replay: ReplayConfig{
			Dir:      "showcases",
			Speed:    1.0,
			MaxDelay: "2s",
		},
		Sandbox: SandboxConfig{
			StateDir: "~/.local/cockpit",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from cockpit.toml in the current
// directory, falling back to defaults when the file does not exist.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	path := filepath.Join(cwd, "cockpit.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}

// GetGatewayToken returns the auth token from the configured environment
// variable.
func (c *Config) GetGatewayToken() string {
	if c.Gateway.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.Gateway.TokenEnv)
}

// duration parses a duration string, returning fallback on empty or
// malformed input.
func duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// HeartbeatInterval returns the parsed ping cadence.
func (c *Config) HeartbeatInterval() time.Duration {
	return duration(c.Gateway.HeartbeatInterval, 30*time.Second)
}

// ReconnectBase returns the parsed backoff unit.
func (c *Config) ReconnectBase() time.Duration {
	return duration(c.Gateway.ReconnectBase, time.Second)
}

// ToolTimeout returns the parsed out-of-band tool call bound.
func (c *Config) ToolTimeout() time.Duration {
	return duration(c.Gateway.ToolTimeout, 60*time.Second)
}

// ReplayMaxDelay returns the parsed inter-event gap cap.
func (c *Config) ReplayMaxDelay() time.Duration {
	return duration(c.Replay.MaxDelay, 2*time.Second)
}

// SandboxStateDir expands the configured state directory, resolving a
// leading ~ against the user's home.
func (c *Config) SandboxStateDir() string {
	dir := c.Sandbox.StateDir
	if len(dir) >= 2 && dir[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, dir[2:])
		}
	}
	return dir
}
