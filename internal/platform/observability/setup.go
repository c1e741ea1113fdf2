package observability

import (
	"context"
	"log/slog"
	"sync"
)

// Config captures observability toggles.
type Config struct {
	Enabled     bool
	MetricsPath string
}

// ShutdownFunc allows callers to tear down any observability exporters.
type ShutdownFunc func(context.Context) error

var (
	loggerMu             sync.RWMutex
	instrumentationLog   *slog.Logger
	instrumentationState Config
)

func currentLogger() (*slog.Logger, Config) {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return instrumentationLog, instrumentationState
}

// Setup installs the span logger and returns the metrics registry used by the
// exchange pipeline. With Enabled false the returned Metrics is a no-op.
func Setup(ctx context.Context, cfg Config, logger *slog.Logger) (*Metrics, ShutdownFunc, error) {
	loggerMu.Lock()
	instrumentationLog = logger
	instrumentationState = cfg
	loggerMu.Unlock()

	var metrics *Metrics
	if cfg.Enabled {
		metrics = NewMetrics()
	}

	if logger != nil {
		if cfg.Enabled {
			logger.InfoContext(ctx, "[METRICS] prometheus metrics enabled", slog.String("path", cfg.MetricsPath))
		} else {
			logger.InfoContext(ctx, "[METRICS] disabled")
		}
	}
	return metrics, func(context.Context) error {
		loggerMu.Lock()
		instrumentationLog = nil
		loggerMu.Unlock()
		return nil
	}, nil
}
