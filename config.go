package cadbridge

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the bridge configuration, shared by the daemon and the
// client so both sides agree on the endpoint.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Session SessionConfig `toml:"session"`
	Client  ClientConfig  `toml:"client"`
	Cache   CacheConfig   `toml:"cache"`
}

// ServerConfig holds settings for the in-host transport server.
type ServerConfig struct {
	// Addr is the TCP endpoint the server binds and the client dials.
	Addr string `toml:"addr"`
	// EvictStale replaces the active connection when a new client connects.
	// When false a second connection is rejected instead. Pointer so an
	// absent key merges to the default rather than to false.
	EvictStale *bool `toml:"evict_stale"`
	// MaxFrameMB caps the size of a single request frame in MiB.
	MaxFrameMB int `toml:"max_frame_mb"`
}

// SessionConfig holds settings for the host document session.
type SessionConfig struct {
	// AutoCreateDocument implicitly creates a document when a command
	// arrives with no active one. When false such commands fail with
	// NoActiveContext. Pointer so an absent key merges to the default
	// rather than to false.
	AutoCreateDocument *bool `toml:"auto_create_document"`
	// DocumentName is the name given to auto-created documents.
	DocumentName string `toml:"document_name"`
}

// ClientConfig holds settings for the bridge client.
type ClientConfig struct {
	// DefaultTimeoutMS bounds a single call when the caller sets no deadline.
	DefaultTimeoutMS int `toml:"default_timeout_ms"`
	// DialTimeoutMS bounds one connection attempt.
	DialTimeoutMS int `toml:"dial_timeout_ms"`
	// MaxConnectAttempts bounds reconnection attempts per call.
	MaxConnectAttempts int `toml:"max_connect_attempts"`
	// Backoff shapes the delay between connection attempts.
	Backoff BackoffConfig `toml:"backoff"`
}

// BackoffConfig defines retry backoff behavior for reconnection.
type BackoffConfig struct {
	InitialMS  int     `toml:"initial_ms"`
	Multiplier float64 `toml:"multiplier"`
	MaxMS      int     `toml:"max_ms"`
	Jitter     bool    `toml:"jitter"`
}

// CacheConfig holds settings for executor-side result caching.
type CacheConfig struct {
	// ScreenshotTTLSeconds is how long a rendered viewport image stays
	// valid for an unchanged document revision.
	ScreenshotTTLSeconds int `toml:"screenshot_ttl_s"`
}

// ConfigDir returns the config directory path.
// Resolution order: $CADBRIDGE_CONFIG_DIR > $XDG_CONFIG_HOME/cadbridge > ~/.config/cadbridge
func ConfigDir() string {
	if dir := os.Getenv("CADBRIDGE_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "cadbridge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "cadbridge-config")
	}
	return filepath.Join(home, ".config", "cadbridge")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       "127.0.0.1:9876",
			EvictStale: boolPtr(true),
			MaxFrameMB: 32,
		},
		Session: SessionConfig{
			AutoCreateDocument: boolPtr(true),
			DocumentName:       "Untitled",
		},
		Client: ClientConfig{
			DefaultTimeoutMS:   30000,
			DialTimeoutMS:      3000,
			MaxConnectAttempts: 5,
			Backoff: BackoffConfig{
				InitialMS:  250,
				Multiplier: 2.0,
				MaxMS:      5000,
				Jitter:     true,
			},
		},
		Cache: CacheConfig{
			ScreenshotTTLSeconds: 60,
		},
	}
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(ConfigPath())
}

// LoadConfigFrom loads config from an explicit path, applying defaults for
// missing fields. A missing file yields the defaults.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
	if cfg.Server.MaxFrameMB == 0 {
		cfg.Server.MaxFrameMB = defaults.Server.MaxFrameMB
	}
	if cfg.Server.EvictStale == nil {
		cfg.Server.EvictStale = defaults.Server.EvictStale
	}
	if cfg.Session.DocumentName == "" {
		cfg.Session.DocumentName = defaults.Session.DocumentName
	}
	if cfg.Session.AutoCreateDocument == nil {
		cfg.Session.AutoCreateDocument = defaults.Session.AutoCreateDocument
	}
	if cfg.Client.DefaultTimeoutMS == 0 {
		cfg.Client.DefaultTimeoutMS = defaults.Client.DefaultTimeoutMS
	}
	if cfg.Client.DialTimeoutMS == 0 {
		cfg.Client.DialTimeoutMS = defaults.Client.DialTimeoutMS
	}
	if cfg.Client.MaxConnectAttempts == 0 {
		cfg.Client.MaxConnectAttempts = defaults.Client.MaxConnectAttempts
	}
	if cfg.Client.Backoff.InitialMS == 0 {
		cfg.Client.Backoff = defaults.Client.Backoff
	}
	if cfg.Cache.ScreenshotTTLSeconds == 0 {
		cfg.Cache.ScreenshotTTLSeconds = defaults.Cache.ScreenshotTTLSeconds
	}

	return &cfg, nil
}

// ResolveAddr returns the transport endpoint, letting $CADBRIDGE_ADDR
// override the configured one so both processes can be pointed at the same
// port without editing config files.
func (c *Config) ResolveAddr() string {
	if addr := os.Getenv("CADBRIDGE_ADDR"); addr != "" {
		return addr
	}
	return c.Server.Addr
}

// DefaultCallTimeout returns the per-call timeout as a duration.
func (c *Config) DefaultCallTimeout() time.Duration {
	return time.Duration(c.Client.DefaultTimeoutMS) * time.Millisecond
}

func boolPtr(b bool) *bool {
	return &b
}

// ValidateConfig checks a config for suspicious values and returns warnings.
// Warnings are advisory: the bridge still starts.
func ValidateConfig(cfg *Config) []string {
	var warnings []string

	if _, portStr, err := net.SplitHostPort(cfg.Server.Addr); err != nil {
		warnings = append(warnings, fmt.Sprintf("server.addr %q is not host:port", cfg.Server.Addr))
	} else if port, err := strconv.Atoi(portStr); err != nil || port < 1 || port > 65535 {
		warnings = append(warnings, fmt.Sprintf("server.addr port %q is out of range", portStr))
	}
	if cfg.Server.MaxFrameMB < 1 {
		warnings = append(warnings, "server.max_frame_mb below 1 MiB will reject screenshot payloads")
	}
	if cfg.Client.DefaultTimeoutMS < 1000 {
		warnings = append(warnings, "client.default_timeout_ms under 1s will time out slow host operations")
	}
	if cfg.Client.MaxConnectAttempts < 1 {
		warnings = append(warnings, "client.max_connect_attempts must be at least 1")
	}
	if cfg.Client.Backoff.Multiplier < 1.0 {
		warnings = append(warnings, "client.backoff.multiplier below 1.0 shrinks retry delays")
	}

	return warnings
}
