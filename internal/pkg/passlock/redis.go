package passlock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"spotanalitics/internal/logger"
)

// releaseScript deletes the key only if we still own it.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// Redis is a SET NX PX lock shared by every instance using the same key.
type Redis struct {
	client  redis.Cmdable
	key     string
	ttl     time.Duration
	tokenFn func() string
}

func NewRedis(client redis.Cmdable, key string, ttl time.Duration) *Redis {
	return &Redis{client: client, key: key, ttl: ttl, tokenFn: uuid.NewString}
}

func (r *Redis) TryLock(ctx context.Context) (func(), error) {
	token := r.tokenFn()
	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire pass lock %s: %w", r.key, err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := r.client.Eval(rctx, releaseScript, []string{r.key}, token).Err(); err != nil {
			logger.Warnf("release pass lock %s failed: %v", r.key, err)
		}
	}, nil
}
