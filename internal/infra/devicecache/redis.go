package devicecache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "device:"

type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Put(ctx context.Context, info Info) (string, error) {
	raw, err := json.Marshal(info)
	if err != nil {
		return "", err
	}
	key := newKey()
	if err := r.client.Set(ctx, redisPrefix+key, raw, r.ttl).Err(); err != nil {
		return "", err
	}
	return key, nil
}

func (r *Redis) Take(ctx context.Context, key string) (Info, error) {
	raw, err := r.client.GetDel(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Info{}, ErrNotFound
	}
	if err != nil {
		return Info{}, err
	}

	var info Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return Info{}, err
	}
	return info, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
