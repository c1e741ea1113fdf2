// Package factory builds provider adapters from the platform configuration.
package factory

import (
	"context"
	"fmt"
	"strings"

	"socialhub-server-go/internal/domain/chat/catalogue"
	"socialhub-server-go/internal/domain/chat/provider"
	"socialhub-server-go/internal/domain/chat/provider/gemini"
	"socialhub-server-go/internal/domain/chat/provider/openai"
	"socialhub-server-go/internal/platform/config"
	platformerrors "socialhub-server-go/internal/platform/errors"
	"socialhub-server-go/internal/platform/logging"
)

// Factory creates adapters for the providers declared in the config.
type Factory struct {
	cfg    *config.Config
	cat    *catalogue.Catalogue
	logger *logging.Logger
}

func New(cfg *config.Config, cat *catalogue.Catalogue, logger *logging.Logger) *Factory {
	return &Factory{cfg: cfg, cat: cat, logger: logger}
}

// Builder exposes Build as a provider.Builder for the Manager.
func (f *Factory) Builder() provider.Builder {
	return f.Build
}

// Build returns a fresh adapter for the named provider.
func (f *Factory) Build(ctx context.Context, name string) (provider.Adapter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	pc, ok := f.cfg.Providers[name]
	if !ok {
		return nil, platformerrors.New(platformerrors.KindConfig, "provider.build",
			fmt.Sprintf("provider %q is not configured", name))
	}
	if err := ValidateConfig(name, pc); err != nil {
		return nil, err
	}

	retry := f.retryConfig()
	switch name {
	case openai.Name:
		a, err := openai.New(openai.Config{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			Model:        pc.ModelName,
			Temperature:  pc.Temperature,
			MaxTokens:    pc.MaxTokens,
			Timeout:      pc.Timeout,
			SystemPrompt: f.cfg.Agent.SystemPrompt,
			Retry:        retry,
		}, f.cat, f.logger)
		if err != nil {
			return nil, err
		}
		f.logger.InfoTag("LLM", "openai adapter ready, model=%s", pc.ModelName)
		return a, nil
	case gemini.Name:
		a, err := gemini.New(ctx, gemini.Config{
			APIKey:       pc.APIKey,
			Model:        pc.ModelName,
			Temperature:  pc.Temperature,
			MaxTokens:    pc.MaxTokens,
			SystemPrompt: f.cfg.Agent.SystemPrompt,
			Retry:        retry,
		}, f.cat, f.logger)
		if err != nil {
			return nil, err
		}
		f.logger.InfoTag("LLM", "gemini adapter ready, model=%s", pc.ModelName)
		return a, nil
	default:
		return nil, platformerrors.New(platformerrors.KindConfig, "provider.build",
			fmt.Sprintf("unsupported provider %q", name))
	}
}

// ValidateConfig checks the settings shared by every backend.
func ValidateConfig(name string, pc config.ProviderConfig) error {
	op := "provider." + name
	if pc.APIKey == "" {
		return platformerrors.New(platformerrors.KindConfig, op, "api_key is required")
	}
	if pc.ModelName == "" {
		return platformerrors.New(platformerrors.KindConfig, op, "model_name is required")
	}
	if pc.Temperature < 0 || pc.Temperature > 2 {
		return platformerrors.New(platformerrors.KindConfig, op, "temperature must be between 0 and 2")
	}
	if pc.MaxTokens < 0 || pc.MaxTokens > 65536 {
		return platformerrors.New(platformerrors.KindConfig, op, "max_tokens must be between 0 and 65536")
	}
	return nil
}

func (f *Factory) retryConfig() provider.RetryConfig {
	rc := provider.DefaultRetryConfig()
	r := f.cfg.Agent.Retry
	if r.MaxAttempts > 0 {
		rc.MaxAttempts = r.MaxAttempts
	}
	if r.InitialDelay > 0 {
		rc.InitialBackoff = r.InitialDelay
	}
	if r.MaxDelay > 0 {
		rc.MaxBackoff = r.MaxDelay
	}
	return rc
}
