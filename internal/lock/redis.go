package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parleyhq/parley/internal/domain"
)

const lockKeyPrefix = "conv_lock:"

// DefaultTTL bounds how long a crashed pass can keep a conversation locked.
const DefaultTTL = 2 * time.Minute

// RedisCoordinator implements Coordinator over redis SET NX with a TTL.
// The key value is the owner id, so only the acquiring instance can
// release; expiry stands in for locked_until.
type RedisCoordinator struct {
	client *redis.Client
	owner  string
	ttl    time.Duration
}

// NewRedisCoordinator creates a coordinator identified by owner (typically
// the process instance id).
func NewRedisCoordinator(client *redis.Client, owner string, ttl time.Duration) *RedisCoordinator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCoordinator{client: client, owner: owner, ttl: ttl}
}

func (c *RedisCoordinator) key(id domain.ConversationID) string {
	return lockKeyPrefix + string(id)
}

// Acquire implements Coordinator.
func (c *RedisCoordinator) Acquire(ctx context.Context, id domain.ConversationID) (bool, error) {
	return c.client.SetNX(ctx, c.key(id), c.owner, c.ttl).Result()
}

// Release implements Coordinator. The delete is guarded by an ownership
// check inside a WATCH transaction so one instance cannot drop a lock that
// has expired and been re-acquired by another.
func (c *RedisCoordinator) Release(ctx context.Context, id domain.ConversationID) error {
	key := c.key(id)
	return c.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil // already expired
		}
		if err != nil {
			return err
		}
		if val != c.owner {
			return nil // re-acquired elsewhere, leave it
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
}

var _ Coordinator = (*RedisCoordinator)(nil)
