package provider

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Retry runs fn until it succeeds, returns a non-retryable error, the attempts
// run out or ctx is done.
func Retry(ctx context.Context, cfg RetryConfig, isRetryable func(error) bool, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = 2.0
	}

	backoff := cfg.InitialBackoff
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil || (isRetryable != nil && !isRetryable(err)) {
			return err
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		wait := backoff
		if cfg.MaxBackoff > 0 && wait > cfg.MaxBackoff {
			wait = cfg.MaxBackoff
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
	}
	return lastErr
}

// IsRetryableNetworkError matches transient transport failures.
func IsRetryableNetworkError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"broken pipe",
		"unexpected eof",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"tls handshake timeout",
		"resource exhausted",
		"too many requests",
		"rate limit",
		"service unavailable",
		"bad gateway",
		"code = unavailable",
		"code = resourceexhausted",
		"code = deadlineexceeded",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// IsRetryableStatus reports whether an HTTP status code is worth retrying.
func IsRetryableStatus(code int) bool {
	return code == 408 || code == 429 || code >= 500
}
