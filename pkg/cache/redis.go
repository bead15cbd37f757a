package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "envctl:realtime"

// RedisWriter mirrors the document into one redis key for UIs that read from redis.
type RedisWriter struct {
	client *redis.Client
	key    string
}

func NewRedisWriter(url, key string) (*RedisWriter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisWriter{client: redis.NewClient(opts), key: key}, nil
}

func (w *RedisWriter) Write(ctx context.Context, doc []byte) error {
	return w.client.Set(ctx, w.key, doc, 0).Err()
}

func (w *RedisWriter) Close() error {
	return w.client.Close()
}
