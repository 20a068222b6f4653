// Package config handles relay configuration loading and validation.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// knownWeakSecrets is a blocklist of secrets that must never be used in
// production.
var knownWeakSecrets = map[string]bool{
	"owl-secret-2026": true,
	"changeme":        true,
	"secret":          true,
}

// GenerateRandomSecret returns a cryptographically random 64-character hex
// string suitable for use as the shared secret.
func GenerateRandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Config is the top-level relay configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Auth      AuthConfig      `json:"auth"`
	Limits    LimitsConfig    `json:"limits"`
	Logging   LoggingConfig   `json:"logging"`
	RateLimit RateLimitConfig `json:"rate_limit,omitempty"`
}

// ServerConfig defines the relay's listener settings.
type ServerConfig struct {
	Addr           string   `json:"addr"`                      // e.g. ":8080"
	TLSCert        string   `json:"tls_cert,omitempty"`
	TLSKey         string   `json:"tls_key,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"` // WebSocket/CORS origins; default ["*"]
}

// AuthConfig defines authentication settings.
type AuthConfig struct {
	SecretKey     string   `json:"secret_key"`               // shared secret agents present in auth frames
	TokenLifetime Duration `json:"token_lifetime,omitempty"` // lifetime for minted agent tokens (default 1h)
}

// LimitsConfig defines the per-connection frame limits.
type LimitsConfig struct {
	RateWindow      Duration `json:"rate_window,omitempty"`       // fixed window length; default 1s
	MaxPerWindow    int      `json:"max_per_window,omitempty"`    // frames allowed per window; default 5
	MaxMessageBytes int64    `json:"max_message_bytes,omitempty"` // max WebSocket frame size; default 64KB
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"` // "json" or "text"
}

// RateLimitConfig defines HTTP API rate limiting settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"` // default 10
	Burst             int     `json:"burst,omitempty"`               // default 20
}

// Duration is a JSON-friendly time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		dur, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		d.Duration = dur
	case float64:
		d.Duration = time.Duration(val) * time.Second
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Load reads a config file if it exists, applies environment overrides,
// and validates the result. A missing file is not an error: the relay can
// run entirely from PORT / A2A_KEY / A2A_RATE_* environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err):
		// fall through to env-only configuration
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyEnv overlays environment variables on top of file values.
func (c *Config) applyEnv() error {
	if port := os.Getenv("A2A_PORT"); port != "" {
		c.Server.Addr = ":" + port
	} else if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	if key := os.Getenv("A2A_KEY"); key != "" {
		c.Auth.SecretKey = key
	}
	if ms := os.Getenv("A2A_RATE_WINDOW_MS"); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil || n <= 0 {
			return fmt.Errorf("A2A_RATE_WINDOW_MS: invalid value %q", ms)
		}
		c.Limits.RateWindow.Duration = time.Duration(n) * time.Millisecond
	}
	if max := os.Getenv("A2A_RATE_MAX_MSGS"); max != "" {
		n, err := strconv.Atoi(max)
		if err != nil || n <= 0 {
			return fmt.Errorf("A2A_RATE_MAX_MSGS: invalid value %q", max)
		}
		c.Limits.MaxPerWindow = n
	}
	return nil
}

func (c *Config) validate() error {
	if c.Auth.SecretKey == "" {
		return fmt.Errorf("auth.secret_key is required (or set A2A_KEY)")
	}
	if knownWeakSecrets[c.Auth.SecretKey] {
		return fmt.Errorf("auth.secret_key is a well-known weak secret — generate a new one")
	}
	if c.Limits.MaxPerWindow < 0 {
		return fmt.Errorf("limits.max_per_window must not be negative")
	}
	if c.Limits.RateWindow.Duration < 0 {
		return fmt.Errorf("limits.rate_window must not be negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Auth.TokenLifetime.Duration == 0 {
		c.Auth.TokenLifetime.Duration = 1 * time.Hour
	}
	if c.Limits.RateWindow.Duration == 0 {
		c.Limits.RateWindow.Duration = 1 * time.Second
	}
	if c.Limits.MaxPerWindow == 0 {
		c.Limits.MaxPerWindow = 5
	}
	if c.Limits.MaxMessageBytes == 0 {
		c.Limits.MaxMessageBytes = 64 * 1024 // 64KB
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
}
