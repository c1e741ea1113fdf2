package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformerrors "socialhub-server-go/internal/platform/errors"
)

func noEnv(string) (string, bool) { return "", false }

func TestLoader_Load(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, ".config.yaml")

	configContent := `
server:
  ip: "127.0.0.1"
  port: 9090
log:
  log_level: "DEBUG"
  log_dir: "/tmp/logs"
  log_file: "test.log"
session:
  driver: redis
  history_window: 12
agent:
  provider: gemini
  max_hops: 6
  exchange_timeout: 45s
providers:
  gemini:
    model_name: gemini-1.5-pro
`
	require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0o644))

	res, err := NewLoader().WithDotEnv(false).WithEnv(noEnv).WithPath(configFile).Load()
	require.NoError(t, err)
	cfg := res.Config

	assert.Equal(t, configFile, res.Path)
	assert.Equal(t, "127.0.0.1", cfg.Server.IP)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, "redis", cfg.Session.Driver)
	assert.Equal(t, 12, cfg.Session.HistoryWindow)
	assert.Equal(t, "gemini", cfg.Agent.Provider)
	assert.Equal(t, 6, cfg.Agent.MaxHops)
	assert.Equal(t, 45*time.Second, cfg.Agent.ExchangeTimeout)
	assert.Equal(t, "gemini-1.5-pro", cfg.Provider("gemini").ModelName)
	// untouched defaults survive the merge
	assert.Equal(t, "gpt-4o-mini", cfg.Provider("openai").ModelName)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	res, err := NewLoader().WithDotEnv(false).WithEnv(noEnv).
		WithPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.NoError(t, err)
	assert.Empty(t, res.Path)
	assert.Equal(t, 10, res.Config.Agent.MaxHops)
	assert.Equal(t, 20, res.Config.Session.HistoryWindow)
}

func TestLoader_EnvOverrides(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY":       "sk-test",
		"GEMINI_API_KEY":       "gm-test",
		"SOCIALHUB_PROVIDER":   "GEMINI",
		"SOCIALHUB_JWT_SECRET": "secret",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	res, err := NewLoader().WithDotEnv(false).WithEnv(lookup).
		WithPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", res.Config.Provider("openai").APIKey)
	assert.Equal(t, "gm-test", res.Config.Provider("gemini").APIKey)
	assert.Equal(t, "gemini", res.Config.Agent.Provider)
	assert.Equal(t, "secret", res.Config.Server.Auth.JWTSecret)
}

func TestLoader_Validate(t *testing.T) {
	loader := NewLoader()

	mutate := func(fn func(*Config)) *Config {
		cfg := DefaultConfig()
		fn(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "valid config", config: DefaultConfig()},
		{name: "invalid server port", config: mutate(func(c *Config) { c.Server.Port = 70000 }), wantErr: true},
		{name: "unknown provider", config: mutate(func(c *Config) { c.Agent.Provider = "claude" }), wantErr: true},
		{name: "zero hops", config: mutate(func(c *Config) { c.Agent.MaxHops = 0 }), wantErr: true},
		{name: "history window too large", config: mutate(func(c *Config) { c.Session.HistoryWindow = 500 }), wantErr: true},
		{name: "unknown session driver", config: mutate(func(c *Config) { c.Session.Driver = "etcd" }), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := loader.validate(tt.config)
			if tt.wantErr {
				assert.True(t, platformerrors.IsKind(err, platformerrors.KindConfig), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
