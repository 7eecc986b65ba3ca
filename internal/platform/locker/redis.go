package locker

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	dErrors "demarc/pkg/domain-errors"
)

const (
	lockTTL       = 10 * time.Second
	retryInterval = 50 * time.Millisecond
)

// Redis implements Locker on top of redislock. Locks expire after a TTL so a
// crashed node cannot wedge territory creation for its country.
type Redis struct {
	client *redislock.Client
	prefix string
}

func NewRedis(rdb redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: redislock.New(rdb), prefix: prefix}
}

func (l *Redis) Acquire(ctx context.Context, key string) (Unlock, error) {
	lock, err := l.client.Obtain(ctx, l.prefix+":"+key, lockTTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(retryInterval),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "advisory lock not obtained")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "acquire advisory lock")
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = lock.Release(releaseCtx)
	}, nil
}
