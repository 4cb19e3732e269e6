package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	notificationKeyPrefix  = "notification:"
	// unreadCountKeyPrefix is the badge counter other readers of this Redis
	// poll. Counts served by this service come from the durable store.
	unreadCountKeyPrefix   = "notification:count:"
	userIndexKeyPrefix     = "user:notifications:"
	DefaultNotificationTTL = 24 * time.Hour

	// invalidateScanLimit bounds how many cached records InvalidateUser drops
	// besides the index and counter.
	invalidateScanLimit = 1000

	maxUpdateRetries = 5
)

// decrClamped lowers the counter and floors it at zero.
var decrClamped = redis.NewScript(`
local v = redis.call('DECRBY', KEYS[1], ARGV[1])
if v < 0 then
	redis.call('SET', KEYS[1], '0')
	return 0
end
return v
`)

func notificationKey(id uuid.UUID) string { return notificationKeyPrefix + id.String() }
func unreadCountKey(userID uuid.UUID) string { return unreadCountKeyPrefix + userID.String() }
func userIndexKey(userID uuid.UUID) string { return userIndexKeyPrefix + userID.String() }

// RedisNotificationCache mirrors recent notifications, a per-user index
// ordered by creation time, and an approximate unread counter.
type RedisNotificationCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisNotificationCache(client *redis.Client, ttl time.Duration) *RedisNotificationCache {
	if ttl <= 0 {
		ttl = DefaultNotificationTTL
	}
	return &RedisNotificationCache{client: client, ttl: ttl}
}

func (c *RedisNotificationCache) Put(ctx context.Context, n *domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, notificationKey(n.ID), payload, c.ttl)
		pipe.ZAdd(ctx, userIndexKey(n.Recipient), redis.Z{
			Score:  float64(n.CreatedAt.UnixMilli()),
			Member: n.ID.String(),
		})
		if !n.IsRead {
			pipe.Incr(ctx, unreadCountKey(n.Recipient))
		}
		return nil
	})
	return err
}

func (c *RedisNotificationCache) Get(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	raw, err := c.client.Get(ctx, notificationKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var n domain.Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decode cached notification %s: %w", id, err)
	}
	return &n, nil
}

// Refresh copies n's delivery statuses onto the cached record, if one is
// still present. Every other field of the cached copy, read state included,
// is left as it is.
func (c *RedisNotificationCache) Refresh(ctx context.Context, n *domain.Notification) error {
	statuses := append([]domain.DeliveryStatus(nil), n.DeliveryStatus...)
	return c.update(ctx, n.ID, func(cached *domain.Notification) bool {
		cached.DeliveryStatus = statuses
		return true
	})
}

// update applies mutate to the cached record under WATCH and writes it back
// with XX and KEEPTTL. A missing record is skipped. mutate returning false
// skips the write.
func (c *RedisNotificationCache) update(ctx context.Context, id uuid.UUID, mutate func(*domain.Notification) bool) error {
	key := notificationKey(id)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var n domain.Notification
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("decode cached notification %s: %w", id, err)
		}
		if !mutate(&n) {
			return nil
		}
		payload, err := json.Marshal(&n)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, payload, redis.SetArgs{Mode: "XX", KeepTTL: true})
			return nil
		})
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	for range maxUpdateRetries {
		err := c.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("update cached notification %s: too much contention", id)
}

// PageIDs reads one page of the user's index, newest first.
func (c *RedisNotificationCache) PageIDs(ctx context.Context, userID uuid.UUID, page domain.Page) ([]uuid.UUID, error) {
	start := int64(page.Offset())
	stop := start + int64(page.Limit) - 1

	members, err := c.client.ZRevRange(ctx, userIndexKey(userID), start, stop).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *RedisNotificationCache) SetUnreadCount(ctx context.Context, userID uuid.UUID, count int64) error {
	return c.client.Set(ctx, unreadCountKey(userID), strconv.FormatInt(count, 10), 0).Err()
}

// MarkRead flips each cached unread copy to read, then lowers the counter by
// the number of ids given.
func (c *RedisNotificationCache) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	for _, id := range ids {
		err := c.update(ctx, id, func(n *domain.Notification) bool {
			if n.IsRead {
				return false
			}
			readAt := at
			n.IsRead = true
			n.ReadAt = &readAt
			n.UpdatedAt = at
			return true
		})
		if err != nil {
			return err
		}
	}
	return decrClamped.Run(ctx, c.client, []string{unreadCountKey(userID)}, len(ids)).Err()
}

// InvalidateUser drops the user's index, counter and the cached records the
// index points at.
func (c *RedisNotificationCache) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	members, err := c.client.ZRevRange(ctx, userIndexKey(userID), 0, invalidateScanLimit-1).Result()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(members)+2)
	for _, m := range members {
		keys = append(keys, notificationKeyPrefix+m)
	}
	keys = append(keys, userIndexKey(userID), unreadCountKey(userID))

	return c.client.Del(ctx, keys...).Err()
}
