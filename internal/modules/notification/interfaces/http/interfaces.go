package http

import (
	"context"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/application"
	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/google/uuid"
)

// NotificationService is the read-state and creation side the handler needs.
type NotificationService interface {
	CreateForRecipients(ctx context.Context, template domain.CreateInput, recipients []uuid.UUID) ([]*domain.Notification, error)
	Find(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*domain.Notification, error)
	List(ctx context.Context, userID uuid.UUID, filter domain.Filter, page domain.Page) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkAsRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error)
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
	Group(items []domain.Notification, rules domain.GroupingRules) map[string][]domain.Notification
}

type PreferenceService interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error)
	Update(ctx context.Context, userID uuid.UUID, u domain.PreferencesUpdate) (*domain.Preferences, error)
}

type PushService interface {
	Save(ctx context.Context, userID uuid.UUID, sub domain.PushSubscription) error
	Delete(ctx context.Context, userID uuid.UUID, endpoint string) error
	PublicKey() (string, error)
	Broadcast(ctx context.Context, userIDs []uuid.UUID, n *domain.Notification) application.BroadcastReport
}
