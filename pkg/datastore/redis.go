package datastore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	Client *redis.Client
	Prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{Client: client, Prefix: prefix}
}

func (r *RedisStore) key(name string) string {
	return r.Prefix + name
}

func (r *RedisStore) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := r.Client.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (r *RedisStore) Put(ctx context.Context, name string, data []byte) error {
	return r.Client.Set(ctx, r.key(name), data, 0).Err()
}

func (r *RedisStore) Delete(ctx context.Context, name string) error {
	return r.Client.Del(ctx, r.key(name)).Err()
}

func (r *RedisStore) Exists(ctx context.Context, name string) (bool, error) {
	count, err := r.Client.Exists(ctx, r.key(name)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
