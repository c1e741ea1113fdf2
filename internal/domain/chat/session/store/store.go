// Package store persists conversation turns. Every driver keeps turns in
// insertion order per user and never rewrites an appended turn.
package store

import (
	"context"

	"socialhub-server-go/internal/domain/chat/aggregate"
)

type Store interface {
	Append(ctx context.Context, turn aggregate.Turn) error
	// Recent returns at most n turns for userID, oldest first.
	Recent(ctx context.Context, userID string, n int) ([]aggregate.Turn, error)
	Count(ctx context.Context, userID string) (int, error)
	// DeleteAll removes every turn of userID and reports how many were removed.
	DeleteAll(ctx context.Context, userID string) (int, error)
	Close(ctx context.Context) error
}

// Config describes the store selection parameters.
type Config struct {
	Driver string
	Redis  *RedisConfig
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
