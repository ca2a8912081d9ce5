package keylock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker backed by SET NX PX with a random owner token.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis returns a Redis locker whose keys are prefixed with prefix.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "keylock:"
	}
	return &Redis{client: client, prefix: prefix}
}

// Acquire sets the key only when absent and returns a release bound to the owner token.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	fk := r.prefix + key
	token := uuid.NewString()

	acquired, err := r.client.SetNX(ctx, fk, token, normalizeTTL(ttl)).Result()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrLocked
	}

	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, r.client, []string{fk}, token).Err()
	}, nil
}
