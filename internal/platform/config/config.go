package config

import "time"

type Config struct {
	Server    ServerConfig              `yaml:"server"`
	Log       LogConfig                 `yaml:"log"`
	Database  DatabaseConfig            `yaml:"database"`
	Session   SessionConfig             `yaml:"session"`
	Agent     AgentConfig               `yaml:"agent"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Tools     ToolsConfig               `yaml:"tools"`
	Metrics   MetricsConfig             `yaml:"metrics"`
	Events    EventsConfig              `yaml:"events"`
}

type ServerConfig struct {
	IP              string        `yaml:"ip"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Auth            AuthConfig    `yaml:"auth"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

// AuthConfig controls how the acting user is resolved for a request.
// With an empty JWTSecret the UserHeader is trusted as-is.
type AuthConfig struct {
	JWTSecret  string   `yaml:"jwt_secret"`
	UserHeader string   `yaml:"user_header"`
	AdminUsers []string `yaml:"admin_users"`
}

type LogConfig struct {
	Level   string `yaml:"log_level"`
	Dir     string `yaml:"log_dir"`
	File    string `yaml:"log_file"`
	Console bool   `yaml:"console"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type SessionConfig struct {
	Driver        string             `yaml:"driver"`
	HistoryWindow int                `yaml:"history_window"`
	Redis         SessionRedisConfig `yaml:"redis"`
}

type SessionRedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type AgentConfig struct {
	Provider        string        `yaml:"provider"`
	SystemPrompt    string        `yaml:"system_prompt"`
	MaxHops         int           `yaml:"max_hops"`
	ExchangeTimeout time.Duration `yaml:"exchange_timeout"`
	Retry           RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// ProviderConfig is keyed by provider name ("openai", "gemini").
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"url"`
	ModelName   string        `yaml:"model_name"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

type ToolsConfig struct {
	ContentModel string `yaml:"content_model"`
	ImageModel   string `yaml:"image_model"`
	ImageSize    string `yaml:"image_size"`

	// PublishInterval is how often scheduled posts are checked. Zero disables the scheduler.
	PublishInterval time.Duration `yaml:"publish_interval"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// EventsConfig sizes the async event workers and the audit trail retention.
type EventsConfig struct {
	Workers   int           `yaml:"workers"`
	Retention time.Duration `yaml:"retention"`
}

// Provider returns the settings for the named provider, or a zero value.
func (c *Config) Provider(name string) ProviderConfig {
	if c == nil || c.Providers == nil {
		return ProviderConfig{}
	}
	return c.Providers[name]
}
