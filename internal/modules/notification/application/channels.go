package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/google/uuid"
)

// LiveNotifier streams a JSON payload to a user's open connections.
type LiveNotifier interface {
	Notify(ctx context.Context, userID uuid.UUID, payload []byte) error
}

// LiveMessage is the frame written to live connections.
type LiveMessage struct {
	Event        string               `json:"event"`
	Notification *domain.Notification `json:"notification"`
}

// InAppHandler treats in-app delivery as done once the record is stored, and
// additionally streams it to any live connection of the recipient. A nil
// notifier makes the handler a pure acknowledgement.
func InAppHandler(live LiveNotifier) ChannelHandler {
	return func(ctx context.Context, n *domain.Notification) error {
		if live == nil {
			return nil
		}
		payload, err := json.Marshal(LiveMessage{Event: "notification", Notification: n})
		if err != nil {
			return fmt.Errorf("marshal live message: %w", err)
		}
		return live.Notify(ctx, n.Recipient, payload)
	}
}

func PushHandler(push *PushService) ChannelHandler {
	return func(ctx context.Context, n *domain.Notification) error {
		_, err := push.SendToUser(ctx, n.Recipient, n)
		return err
	}
}
