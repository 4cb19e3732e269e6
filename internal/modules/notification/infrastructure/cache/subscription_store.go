package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const subscriptionKeyPrefix = "push:subscriptions:"

func subscriptionKey(userID uuid.UUID) string { return subscriptionKeyPrefix + userID.String() }

// RedisSubscriptionStore keeps a hash per user, one field per endpoint, so
// add and remove are idempotent single commands.
type RedisSubscriptionStore struct {
	client *redis.Client
}

func NewRedisSubscriptionStore(client *redis.Client) *RedisSubscriptionStore {
	return &RedisSubscriptionStore{client: client}
}

// List returns the user's subscriptions ordered by endpoint.
func (s *RedisSubscriptionStore) List(ctx context.Context, userID uuid.UUID) ([]domain.PushSubscription, error) {
	fields, err := s.client.HGetAll(ctx, subscriptionKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	endpoints := make([]string, 0, len(fields))
	for endpoint := range fields {
		endpoints = append(endpoints, endpoint)
	}
	sort.Strings(endpoints)

	subs := make([]domain.PushSubscription, 0, len(fields))
	for _, endpoint := range endpoints {
		var sub domain.PushSubscription
		if err := json.Unmarshal([]byte(fields[endpoint]), &sub); err != nil {
			return nil, fmt.Errorf("decode subscription %q: %w", endpoint, err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (s *RedisSubscriptionStore) Add(ctx context.Context, userID uuid.UUID, sub domain.PushSubscription) (bool, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return false, fmt.Errorf("marshal subscription: %w", err)
	}
	return s.client.HSetNX(ctx, subscriptionKey(userID), sub.Endpoint, payload).Result()
}

func (s *RedisSubscriptionStore) Remove(ctx context.Context, userID uuid.UUID, endpoint string) error {
	return s.client.HDel(ctx, subscriptionKey(userID), endpoint).Err()
}
