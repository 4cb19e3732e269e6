package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NotificationRepository is the durable record store.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	List(ctx context.Context, recipient uuid.UUID, filter Filter, page Page) ([]Notification, error)
	CountUnread(ctx context.Context, recipient uuid.UUID) (int, error)
	// UpdateDeliveryStatus rewrites the single delivery entry matching status.Channel.
	UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status DeliveryStatus) error
	// MarkAsRead flips unread records owned by recipient and returns the ids
	// that actually transitioned.
	MarkAsRead(ctx context.Context, recipient uuid.UUID, ids []uuid.UUID, at time.Time) ([]uuid.UUID, error)
	MarkAllAsRead(ctx context.Context, recipient uuid.UUID, at time.Time) (int64, error)
	Delete(ctx context.Context, recipient, id uuid.UUID) error
	DeleteAll(ctx context.Context, recipient uuid.UUID) (int64, error)
}

type PreferenceRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Preferences, error)
	Upsert(ctx context.Context, p *Preferences) error
}

// NotificationCache is the best-effort fast path. Misses are reported as a
// nil record and nil error. Its unread counter is an approximation and is
// never read back as an authoritative count.
type NotificationCache interface {
	Put(ctx context.Context, n *Notification) error
	Get(ctx context.Context, id uuid.UUID) (*Notification, error)
	// Refresh overwrites a still-cached copy without touching index or counter.
	Refresh(ctx context.Context, n *Notification) error
	PageIDs(ctx context.Context, userID uuid.UUID, page Page) ([]uuid.UUID, error)
	SetUnreadCount(ctx context.Context, userID uuid.UUID, count int64) error
	// MarkRead rewrites cached copies of ids as read and lowers the counter by len(ids).
	MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, at time.Time) error
	InvalidateUser(ctx context.Context, userID uuid.UUID) error
}

// SubscriptionStore holds each user's push subscription set keyed by endpoint.
type SubscriptionStore interface {
	List(ctx context.Context, userID uuid.UUID) ([]PushSubscription, error)
	// Add returns false when the endpoint was already registered.
	Add(ctx context.Context, userID uuid.UUID, sub PushSubscription) (bool, error)
	Remove(ctx context.Context, userID uuid.UUID, endpoint string) error
}
