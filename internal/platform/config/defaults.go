package config

import "time"

const defaultSystemPrompt = `You are a social media assistant. You help the user draft posts, generate images,
save drafts, schedule and publish posts using the available tools. Call tools when the user asks for an
action; otherwise answer directly. Keep answers short and mention the post id after saving.`

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:              "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
			Auth: AuthConfig{
				UserHeader: "X-User-ID",
			},
			CORSOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:   "INFO",
			Dir:     "data/logs",
			File:    "server.log",
			Console: true,
		},
		Database: DatabaseConfig{
			DSN: "data/socialhub.db",
		},
		Session: SessionConfig{
			Driver:        "sqlite",
			HistoryWindow: 20,
			Redis: SessionRedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "socialhub:session",
			},
		},
		Agent: AgentConfig{
			Provider:        "openai",
			SystemPrompt:    defaultSystemPrompt,
			MaxHops:         10,
			ExchangeTimeout: 2 * time.Minute,
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: 500 * time.Millisecond,
				MaxDelay:     5 * time.Second,
			},
		},
		Providers: map[string]ProviderConfig{
			"openai": {
				BaseURL:     "https://api.openai.com/v1",
				ModelName:   "gpt-4o-mini",
				Temperature: 0.7,
				MaxTokens:   1024,
				Timeout:     60 * time.Second,
			},
			"gemini": {
				ModelName:   "gemini-1.5-flash",
				Temperature: 0.7,
				MaxTokens:   1024,
				Timeout:     60 * time.Second,
			},
		},
		Tools: ToolsConfig{
			ContentModel: "gpt-4o-mini",
			ImageModel:   "dall-e-3",
			ImageSize:    "1024x1024",

			PublishInterval: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Events: EventsConfig{
			Workers:   4,
			Retention: 30 * 24 * time.Hour,
		},
	}
}
