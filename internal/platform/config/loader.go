package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	platformerrors "socialhub-server-go/internal/platform/errors"
)

// DefaultPath is read from the working directory when no path is given.
const DefaultPath = ".config.yaml"

// Loader reads YAML configuration over DefaultConfig and applies env overrides.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
}

func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		path:      DefaultPath,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the config file location.
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// WithEnv replaces the environment lookup (useful for tests).
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookupEnv = lookup
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load returns the merged configuration. A missing file is not an error.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	path := l.path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, platformerrors.Wrap(platformerrors.KindConfig, "config.load", "parse "+path, err)
		}
	case os.IsNotExist(err):
		path = ""
	default:
		return nil, platformerrors.Wrap(platformerrors.KindConfig, "config.load", "read "+path, err)
	}

	l.applyEnv(cfg)

	if err := l.validate(cfg); err != nil {
		return nil, err
	}
	return &Result{Config: cfg, Path: path}, nil
}

func (l *Loader) applyEnv(cfg *Config) {
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	setKey := func(provider, env string) {
		if v, ok := l.lookupEnv(env); ok && v != "" {
			p := cfg.Providers[provider]
			p.APIKey = v
			cfg.Providers[provider] = p
		}
	}
	setKey("openai", "OPENAI_API_KEY")
	setKey("gemini", "GEMINI_API_KEY")

	if v, ok := l.lookupEnv("SOCIALHUB_PROVIDER"); ok && v != "" {
		cfg.Agent.Provider = strings.ToLower(v)
	}
	if v, ok := l.lookupEnv("SOCIALHUB_DB_DSN"); ok && v != "" {
		cfg.Database.DSN = v
	}
	if v, ok := l.lookupEnv("SOCIALHUB_JWT_SECRET"); ok && v != "" {
		cfg.Server.Auth.JWTSecret = v
	}
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("invalid server port %d", cfg.Server.Port))
	}
	switch cfg.Agent.Provider {
	case "openai", "gemini":
	default:
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("unknown agent provider %q", cfg.Agent.Provider))
	}
	if cfg.Agent.MaxHops < 1 || cfg.Agent.MaxHops > 50 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("max_hops must be between 1 and 50, got %d", cfg.Agent.MaxHops))
	}
	if cfg.Session.HistoryWindow < 1 || cfg.Session.HistoryWindow > 100 {
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("history_window must be between 1 and 100, got %d", cfg.Session.HistoryWindow))
	}
	switch cfg.Session.Driver {
	case "memory", "sqlite", "redis":
	default:
		return platformerrors.New(platformerrors.KindConfig, "config.validate",
			fmt.Sprintf("unknown session driver %q", cfg.Session.Driver))
	}
	return nil
}
