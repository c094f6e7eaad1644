package drivers

import "time"

// RedisOption configures a RedisBackend.
type RedisOption func(*redisOptions)

type redisOptions struct {
	keyPrefix string
	// ttl of zero keeps records forever.
	ttl time.Duration
}

func WithRedisKeyPrefix(prefix string) RedisOption {
	return func(o *redisOptions) {
		o.keyPrefix = prefix
	}
}

// WithRedisTTL expires idle conversations. Each save refreshes the TTL.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(o *redisOptions) {
		o.ttl = ttl
	}
}
