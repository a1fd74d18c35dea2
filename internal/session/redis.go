package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the session in one hash so several terminals on a shared
// workstation see the same login.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, key: prefix + "session"}
}

func (r *RedisStore) Load(ctx context.Context) (Session, error) {
	values, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return Session{}, fmt.Errorf("redis load session: %w", err)
	}
	if len(values) == 0 {
		return Session{}, ErrNoSession
	}

	rec := record{}
	for k, v := range values {
		rec[k] = []byte(v)
	}
	return decode(rec)
}

func (r *RedisStore) Save(ctx context.Context, s Session) error {
	rec, err := encode(s)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key)
	if len(rec) > 0 {
		fields := make(map[string]any, len(rec))
		for k, v := range rec {
			fields[k] = string(v)
		}
		pipe.HSet(ctx, r.key, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (r *RedisStore) SaveTokens(ctx context.Context, accessToken, refreshToken string) error {
	current, err := r.Load(ctx)
	if err != nil && !errors.Is(err, ErrNoSession) {
		return err
	}
	return r.Save(ctx, mergeTokens(current, accessToken, refreshToken))
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis clear session: %w", err)
	}
	return nil
}
