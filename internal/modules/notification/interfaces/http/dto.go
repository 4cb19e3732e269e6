package http

import (
	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/google/uuid"
)

// CreateNotificationRequest fans one notification out to Recipients, or to
// the embedded recipient when the list is empty.
type CreateNotificationRequest struct {
	domain.CreateInput
	Recipients []uuid.UUID `json:"recipients,omitempty"`
}

type IDsRequest struct {
	NotificationIDs []uuid.UUID `json:"notificationIds"`
}

type DeleteRequest struct {
	NotificationIDs []uuid.UUID `json:"notificationIds"`
	All             bool        `json:"all"`
}

type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

type BroadcastRequest struct {
	NotificationID uuid.UUID   `json:"notificationId"`
	UserIDs        []uuid.UUID `json:"userIds"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type PublicKeyResponse struct {
	VAPIDPublicKey string `json:"vapidPublicKey"`
}

type BroadcastResponse struct {
	Users  int `json:"users"`
	Failed int `json:"failed"`
}
