package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the findash client.
type Config struct {
	Server  Server  `yaml:"server"`
	Channel Channel `yaml:"channel"`
	Storage Storage `yaml:"storage"`
	Logging Logging `yaml:"logging"`
}

// Server points at the financia backend. The push channel URL is derived
// from BaseURL by scheme translation (http→ws).
type Server struct {
	BaseURL string `yaml:"base_url"`
}

// Channel tunes the push channel. The reconnect delay is fixed (no backoff
// growth) because the backend is a trusted first-party service; it is a
// config field rather than a hidden constant so a rate-limited deployment
// can raise it.
type Channel struct {
	ReconnectDelayMS   int `yaml:"reconnect_delay_ms"`
	StallTimeoutMS     int `yaml:"stall_timeout_ms"`
	HandshakeTimeoutMS int `yaml:"handshake_timeout_ms"`
}

// ReconnectDelay returns the reconnect delay as a duration.
func (c Channel) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}

// StallTimeout returns the backtest stall-fallback delay as a duration.
func (c Channel) StallTimeout() time.Duration {
	return time.Duration(c.StallTimeoutMS) * time.Millisecond
}

// HandshakeTimeout returns the websocket handshake timeout as a duration.
func (c Channel) HandshakeTimeout() time.Duration {
	return time.Duration(c.HandshakeTimeoutMS) * time.Millisecond
}

// Storage holds paths for client-local persistence.
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults
// for anything left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// Default returns a configuration built from environment variables and
// defaults only, for running without a config file.
func Default() *Config {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FINDASH_SERVER_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FINDASH_RECONNECT_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Channel.ReconnectDelayMS = ms
		}
	}
}

// applyDefaults fills zero-valued fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:8000"
	}
	if cfg.Channel.ReconnectDelayMS == 0 {
		cfg.Channel.ReconnectDelayMS = 3000
	}
	if cfg.Channel.StallTimeoutMS == 0 {
		cfg.Channel.StallTimeoutMS = 3000
	}
	if cfg.Channel.HandshakeTimeoutMS == 0 {
		cfg.Channel.HandshakeTimeoutMS = 10000
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/findash.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
