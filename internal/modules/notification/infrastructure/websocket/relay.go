package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultRelayChannel = "notifications:live"

type relayEnvelope struct {
	UserID  uuid.UUID       `json:"userId"`
	Payload json.RawMessage `json:"payload"`
}

// Relay fans live messages out across server instances over Redis pub/sub.
// Every instance subscribes and hands received messages to its local hub, so
// a user connected anywhere gets the message.
type Relay struct {
	client  *redis.Client
	hub     *Hub
	channel string
	logger  *zap.Logger
}

func NewRelay(client *redis.Client, hub *Hub, channel string, logger *zap.Logger) *Relay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{client: client, hub: hub, channel: channel, logger: logger.Named("ws_relay")}
}

// Notify publishes payload for userID. payload must be valid JSON.
func (r *Relay) Notify(ctx context.Context, userID uuid.UUID, payload []byte) error {
	msg, err := json.Marshal(relayEnvelope{UserID: userID, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode relay message: %w", err)
	}
	return r.client.Publish(ctx, r.channel, msg).Err()
}

// Run subscribes and forwards messages to the hub until ctx is cancelled.
// ready, if non-nil, is closed once the subscription is confirmed.
func (r *Relay) Run(ctx context.Context, ready chan<- struct{}) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env relayEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Warn("discarding malformed relay message", zap.Error(err))
				continue
			}
			r.hub.SendToUser(env.UserID, env.Payload)
		}
	}
}
