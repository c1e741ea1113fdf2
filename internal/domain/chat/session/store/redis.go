package store

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"socialhub-server-go/internal/domain/chat/aggregate"
	"socialhub-server-go/internal/platform/errors"
)

// redisStore keeps one list per user; RPUSH preserves insertion order.
type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis constructs a redis-backed session store.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "session:turns"
	}
	return &redisStore{client: client, prefix: prefix}, nil
}

func (s *redisStore) key(userID string) string {
	return s.prefix + ":" + userID
}

func (s *redisStore) Append(ctx context.Context, turn aggregate.Turn) error {
	data, err := sonic.Marshal(turn)
	if err != nil {
		return errors.Wrap(errors.KindSerialization, "session.append", "failed to encode turn", err)
	}
	if err := s.client.RPush(ctx, s.key(turn.UserID), data).Err(); err != nil {
		return errors.Wrap(errors.KindStorage, "session.append", "failed to push turn", err)
	}
	return nil
}

func (s *redisStore) Recent(ctx context.Context, userID string, n int) ([]aggregate.Turn, error) {
	if n <= 0 {
		return []aggregate.Turn{}, nil
	}
	raw, err := s.client.LRange(ctx, s.key(userID), int64(-n), -1).Result()
	if err != nil {
		return nil, errors.Wrap(errors.KindStorage, "session.recent", "failed to load turns", err)
	}

	turns := make([]aggregate.Turn, 0, len(raw))
	for _, item := range raw {
		var turn aggregate.Turn
		if err := sonic.UnmarshalString(item, &turn); err != nil {
			return nil, errors.Wrap(errors.KindSerialization, "session.decode", "failed to decode turn", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *redisStore) Count(ctx context.Context, userID string) (int, error) {
	n, err := s.client.LLen(ctx, s.key(userID)).Result()
	if err != nil {
		return 0, errors.Wrap(errors.KindStorage, "session.count", "failed to count turns", err)
	}
	return int(n), nil
}

func (s *redisStore) DeleteAll(ctx context.Context, userID string) (int, error) {
	key := s.key(userID)
	var length *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		length = pipe.LLen(ctx, key)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(errors.KindStorage, "session.delete_all", "failed to delete turns", err)
	}
	return int(length.Val()), nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
