package drivers

import (
	"context"

	"github.com/go-go-golems/gptbot/pkg/conversation"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const conversationKeyPrefix = "gptbot:conversation:"

// RedisBackend stores each log as a JSON string under
// gptbot:conversation:<id>. A single SET replaces the whole record.
type RedisBackend struct {
	client *redis.Client
	opts   redisOptions
}

var _ conversation.Backend = (*RedisBackend)(nil)

func NewRedisBackend(client *redis.Client, opts ...RedisOption) (*RedisBackend, error) {
	if client == nil {
		return nil, errors.New("redis backend: client is required")
	}
	o := redisOptions{keyPrefix: conversationKeyPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisBackend{client: client, opts: o}, nil
}

func (b *RedisBackend) Load(ctx context.Context, id string) (*conversation.Log, error) {
	val, err := b.client.Get(ctx, b.key(id)).Bytes()
	if err == redis.Nil {
		return nil, conversation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return conversation.DecodeLog(val)
}

func (b *RedisBackend) Save(ctx context.Context, id string, l *conversation.Log) error {
	payload, err := conversation.EncodeLog(l)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.key(id), payload, b.opts.ttl).Err()
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) key(id string) string {
	return b.opts.keyPrefix + id
}
