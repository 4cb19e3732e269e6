package mongodb

import (
	"time"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/google/uuid"
)

type relatedEntityDoc struct {
	Type string `bson:"type"`
	ID   string `bson:"id"`
}

type deliveryDoc struct {
	Channel string     `bson:"channel"`
	Status  string     `bson:"status"`
	SentAt  *time.Time `bson:"sentAt,omitempty"`
	Error   string     `bson:"error,omitempty"`
}

type notificationDoc struct {
	ID              string             `bson:"_id"`
	Type            string             `bson:"type"`
	Priority        string             `bson:"priority"`
	Recipient       string             `bson:"recipient"`
	Sender          string             `bson:"sender,omitempty"`
	Title           string             `bson:"title"`
	Content         string             `bson:"content"`
	Channels        []string           `bson:"channels"`
	IsRead          bool               `bson:"isRead"`
	ReadAt          *time.Time         `bson:"readAt,omitempty"`
	ActionURL       string             `bson:"actionUrl,omitempty"`
	GroupID         string             `bson:"groupId,omitempty"`
	GroupCount      int                `bson:"groupCount"`
	RelatedEntities []relatedEntityDoc `bson:"relatedEntities"`
	DeliveryStatus  []deliveryDoc      `bson:"deliveryStatus"`
	ExpiresAt       *time.Time         `bson:"expiresAt,omitempty"`
	Metadata        map[string]any     `bson:"metadata,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"`
}

type preferenceDoc struct {
	UserID    string    `bson:"_id"`
	Email     bool      `bson:"email"`
	Push      bool      `bson:"push"`
	Digest    string    `bson:"digest"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func toDocument(n *domain.Notification) notificationDoc {
	doc := notificationDoc{
		ID:              n.ID.String(),
		Type:            string(n.Type),
		Priority:        string(n.Priority),
		Recipient:       n.Recipient.String(),
		Title:           n.Title,
		Content:         n.Content,
		IsRead:          n.IsRead,
		ReadAt:          n.ReadAt,
		ActionURL:       n.ActionURL,
		GroupID:         n.GroupID,
		GroupCount:      n.GroupCount,
		RelatedEntities: make([]relatedEntityDoc, 0, len(n.RelatedEntities)),
		DeliveryStatus:  make([]deliveryDoc, 0, len(n.DeliveryStatus)),
		ExpiresAt:       n.ExpiresAt,
		Metadata:        n.Metadata,
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
	}
	if n.Sender != nil {
		doc.Sender = n.Sender.String()
	}
	for _, c := range n.Channels {
		doc.Channels = append(doc.Channels, string(c))
	}
	for _, e := range n.RelatedEntities {
		doc.RelatedEntities = append(doc.RelatedEntities, relatedEntityDoc{Type: e.Type, ID: e.ID})
	}
	for _, s := range n.DeliveryStatus {
		doc.DeliveryStatus = append(doc.DeliveryStatus, deliveryDoc{
			Channel: string(s.Channel),
			Status:  string(s.State),
			SentAt:  s.SentAt,
			Error:   s.Error,
		})
	}
	return doc
}

func (d notificationDoc) toDomain() (*domain.Notification, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	recipient, err := uuid.Parse(d.Recipient)
	if err != nil {
		return nil, err
	}

	n := &domain.Notification{
		ID:              id,
		Type:            domain.Type(d.Type),
		Priority:        domain.Priority(d.Priority),
		Recipient:       recipient,
		Title:           d.Title,
		Content:         d.Content,
		IsRead:          d.IsRead,
		ReadAt:          d.ReadAt,
		ActionURL:       d.ActionURL,
		GroupID:         d.GroupID,
		GroupCount:      d.GroupCount,
		RelatedEntities: make([]domain.RelatedEntity, 0, len(d.RelatedEntities)),
		DeliveryStatus:  make([]domain.DeliveryStatus, 0, len(d.DeliveryStatus)),
		ExpiresAt:       d.ExpiresAt,
		Metadata:        d.Metadata,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.Sender != "" {
		sender, err := uuid.Parse(d.Sender)
		if err != nil {
			return nil, err
		}
		n.Sender = &sender
	}
	for _, c := range d.Channels {
		n.Channels = append(n.Channels, domain.Channel(c))
	}
	for _, e := range d.RelatedEntities {
		n.RelatedEntities = append(n.RelatedEntities, domain.RelatedEntity{Type: e.Type, ID: e.ID})
	}
	for _, s := range d.DeliveryStatus {
		n.DeliveryStatus = append(n.DeliveryStatus, domain.DeliveryStatus{
			Channel: domain.Channel(s.Channel),
			State:   domain.DeliveryState(s.Status),
			SentAt:  s.SentAt,
			Error:   s.Error,
		})
	}
	return n, nil
}
