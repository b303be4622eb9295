package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "warren.yml")

	validConfig := `version: "1.0"
server:
  port: 9090
redis:
  addr: "redis.internal:6379"
board:
  name: "team-board"
auth:
  signing_key: "super-secret"
  token_ttl: 30m
logging:
  level: "debug"
`
	err := os.WriteFile(configPath, []byte(validConfig), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.NotNil(t, config)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "redis.internal:6379", config.Redis.Addr)
	assert.Equal(t, "team-board", config.Board.Name)
	assert.Equal(t, "super-secret", config.Auth.SigningKey)
	assert.Equal(t, Duration(30*time.Minute), config.Auth.TokenTTL)
	assert.Equal(t, "debug", config.Logging.Level)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "warren.yml")

	minimalConfig := `version: "1.0"
auth:
  signing_key: "super-secret"
`
	err := os.WriteFile(configPath, []byte(minimalConfig), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "localhost:6379", config.Redis.Addr)
	assert.Equal(t, "main", config.Board.Name)
	assert.Equal(t, Duration(time.Hour), config.Auth.TokenTTL)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/warren.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "warren.yml")

	invalidYAML := `version: "1.0"
auth:
  - this is invalid
    yaml syntax
`
	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	config := &WarrenConfig{
		Version: "2.0",
		Auth:    AuthConfig{SigningKey: "key"},
	}

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version: 2.0")
}

func TestValidate_MissingSigningKey(t *testing.T) {
	config := &WarrenConfig{Version: "1.0"}

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "auth.signing_key is required")
}

func TestValidate_InvalidPort(t *testing.T) {
	config := &WarrenConfig{
		Version: "1.0",
		Server:  ServerConfig{Port: 70000},
		Auth:    AuthConfig{SigningKey: "key"},
	}

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be between")
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	config := &WarrenConfig{
		Version: "1.0",
		Auth:    AuthConfig{SigningKey: "key"},
		Logging: LoggingConfig{Level: "verbose"},
	}

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid logging.level")
}

func TestListenAddr(t *testing.T) {
	config := &WarrenConfig{
		Version: "1.0",
		Server:  ServerConfig{Host: "127.0.0.1", Port: 3000},
		Auth:    AuthConfig{SigningKey: "key"},
	}
	require.NoError(t, config.Validate())
	assert.Equal(t, "127.0.0.1:3000", config.ListenAddr())
}
