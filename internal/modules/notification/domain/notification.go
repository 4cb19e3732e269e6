package domain

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeAnnouncement Type = "announcement"
	TypeEvent        Type = "event"
	TypeTask         Type = "task"
	TypeMention      Type = "mention"
	TypeComment      Type = "comment"
	TypeTeam         Type = "team"
	TypeProject      Type = "project"
	TypeMilestone    Type = "milestone"
	TypeSystem       Type = "system"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Channel string

const (
	ChannelInApp Channel = "in-app"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelSlack Channel = "slack"
)

// RelatedEntity is an informational back-reference; it is never dereferenced.
type RelatedEntity struct {
	Type string `json:"type" validate:"required"`
	ID   string `json:"id" validate:"required"`
}

type Notification struct {
	ID              uuid.UUID        `json:"id"`
	Type            Type             `json:"type"`
	Priority        Priority         `json:"priority"`
	Recipient       uuid.UUID        `json:"recipient"`
	Sender          *uuid.UUID       `json:"sender,omitempty"`
	Title           string           `json:"title"`
	Content         string           `json:"content"`
	Channels        []Channel        `json:"channels"`
	IsRead          bool             `json:"isRead"`
	ReadAt          *time.Time       `json:"readAt,omitempty"`
	ActionURL       string           `json:"actionUrl,omitempty"`
	GroupID         string           `json:"groupId,omitempty"`
	GroupCount      int              `json:"groupCount"`
	RelatedEntities []RelatedEntity  `json:"relatedEntities"`
	DeliveryStatus  []DeliveryStatus `json:"deliveryStatus"`
	ExpiresAt       *time.Time       `json:"expiresAt,omitempty"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// CreateInput is what collaborators hand to the service to notify one recipient.
type CreateInput struct {
	Type            Type            `json:"type" validate:"required,oneof=announcement event task mention comment team project milestone system"`
	Priority        Priority        `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Recipient       uuid.UUID       `json:"recipient" validate:"required"`
	Sender          *uuid.UUID      `json:"sender,omitempty"`
	Title           string          `json:"title" validate:"required,max=200"`
	Content         string          `json:"content" validate:"required"`
	Channels        []Channel       `json:"channels" validate:"required,min=1,dive,oneof=in-app email push slack"`
	ActionURL       string          `json:"actionUrl,omitempty" validate:"omitempty,url"`
	GroupID         string          `json:"groupId,omitempty"`
	RelatedEntities []RelatedEntity `json:"relatedEntities,omitempty" validate:"dive"`
	ExpiresAt       *time.Time      `json:"expiresAt,omitempty"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
}

// NewNotification builds an unread record with one pending delivery entry per
// distinct channel, in the order the channels were requested.
func NewNotification(in CreateInput, now time.Time) *Notification {
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	channels := make([]Channel, 0, len(in.Channels))
	seen := make(map[Channel]struct{}, len(in.Channels))
	for _, c := range in.Channels {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		channels = append(channels, c)
	}

	statuses := make([]DeliveryStatus, 0, len(channels))
	for _, c := range channels {
		statuses = append(statuses, DeliveryStatus{Channel: c, State: DeliveryPending})
	}

	related := in.RelatedEntities
	if related == nil {
		related = []RelatedEntity{}
	}

	return &Notification{
		ID:              uuid.New(),
		Type:            in.Type,
		Priority:        priority,
		Recipient:       in.Recipient,
		Sender:          in.Sender,
		Title:           in.Title,
		Content:         in.Content,
		Channels:        channels,
		ActionURL:       in.ActionURL,
		GroupID:         in.GroupID,
		GroupCount:      1,
		RelatedEntities: related,
		DeliveryStatus:  statuses,
		ExpiresAt:       in.ExpiresAt,
		Metadata:        in.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Expired reports whether the record is past its expiresAt instant.
func (n *Notification) Expired(now time.Time) bool {
	return n.ExpiresAt != nil && !now.Before(*n.ExpiresAt)
}

// Filter narrows a durable listing. Zero values mean "no constraint".
type Filter struct {
	Type      Type
	Priority  Priority
	IsRead    *bool
	StartDate *time.Time
	EndDate   *time.Time
}

func (f Filter) IsEmpty() bool {
	return f.Type == "" && f.Priority == "" && f.IsRead == nil && f.StartDate == nil && f.EndDate == nil
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100

	// MaxPageNumber keeps Offset well inside int32 for every driver.
	MaxPageNumber = 100000
)

// Page is 1-based.
type Page struct {
	Number int
	Limit  int
}

func NewPage(number, limit int) Page {
	if number < 1 {
		number = 1
	}
	if number > MaxPageNumber {
		number = MaxPageNumber
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Number: number, Limit: limit}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}
