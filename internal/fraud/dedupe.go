package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"demarc/internal/fraud/models"
	"demarc/pkg/domain"
)

// Window is the fast-path dedupe check in front of the store lookup. A
// Reserve that returns false means an identical detection already holds
// the window. The store remains authoritative; the window only cuts the
// query for the common repeat-noise case.
type Window interface {
	Reserve(ctx context.Context, partnerID domain.PartnerID, fraudType models.Type, ttl time.Duration) (bool, error)
}

// RedisWindow implements the dedupe window with SET NX EX, so the
// reservation expires on its own and survives process restarts.
type RedisWindow struct {
	client redis.Cmdable
}

func NewRedisWindow(client redis.Cmdable) *RedisWindow {
	return &RedisWindow{client: client}
}

func (w *RedisWindow) Reserve(ctx context.Context, partnerID domain.PartnerID, fraudType models.Type, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("fraud:dedupe:%s:%s", partnerID, fraudType)
	ok, err := w.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve dedupe window: %w", err)
	}
	return ok, nil
}
