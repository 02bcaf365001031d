package redisad

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hotlob_places/internal/domain"
)

// release only deletes the key while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a single-holder lease built on SET NX PX.
type Lock struct{ c *redis.Client }

func NewLock(c *redis.Client) *Lock { return &Lock{c: c} }

func (l *Lock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.c.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrRefreshInProgress
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.c, []string{key}, token).Err()
	}, nil
}
