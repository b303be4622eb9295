package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig specifies the HTTP listener
type ServerConfig struct {
	Host string `yaml:"host,omitempty"` // Default: all interfaces
	Port int    `yaml:"port,omitempty"` // Default: 8080
}

// RedisConfig specifies the shared board store connection
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"` // Default: localhost:6379
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
}

// BoardConfig specifies which board namespace this server serves
type BoardConfig struct {
	Name string `yaml:"name,omitempty"` // Default: main
}

// AuthConfig specifies session token issuance
type AuthConfig struct {
	SigningKey string   `yaml:"signing_key"`         // Required: HMAC key for session tokens
	TokenTTL   Duration `yaml:"token_ttl,omitempty"` // Default: 1h
}

// Duration wraps time.Duration so YAML values like "30m" parse
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// LoggingConfig specifies log output behavior
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, or error (default: info)
}

// WarrenConfig represents the top-level warren.yml configuration
type WarrenConfig struct {
	Version string        `yaml:"version"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	Redis   RedisConfig   `yaml:"redis,omitempty"`
	Board   BoardConfig   `yaml:"board,omitempty"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// Validate performs strict validation on the configuration and applies
// defaults for omitted fields
func (c *WarrenConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}

	if c.Board.Name == "" {
		c.Board.Name = "main"
	}

	// Required: signing key (tokens would otherwise verify against an
	// empty key)
	if c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is required")
	}
	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = Duration(time.Hour)
	}
	if c.Auth.TokenTTL < 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got %s", time.Duration(c.Auth.TokenTTL))
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s (must be 'debug', 'info', 'warn', or 'error')", c.Logging.Level)
	}

	return nil
}

// ListenAddr returns the host:port the HTTP server should bind to
func (c *WarrenConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Load reads and validates warren.yml from the specified path
func Load(path string) (*WarrenConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config WarrenConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
