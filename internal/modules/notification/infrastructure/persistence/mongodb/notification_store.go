package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	NotificationsCollection = "notifications"
	PreferencesCollection   = "notification_preferences"
)

// NotificationStore keeps notifications as single documents with their
// delivery entries embedded. Expiry is enforced by a TTL index; reads also
// hide expired documents the TTL monitor has not reaped yet.
type NotificationStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewNotificationStore(db *mongo.Database) *NotificationStore {
	return &NotificationStore{coll: db.Collection(NotificationsCollection), now: time.Now}
}

// EnsureIndexes creates the listing, unread, grouping and TTL indexes.
func (s *NotificationStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, notificationIndexes())
	return err
}

func notificationIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "isRead", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "priority", Value: 1}}},
		{Keys: bson.D{{Key: "groupId", Value: 1}}},
		{Keys: bson.D{{Key: "relatedEntities.type", Value: 1}, {Key: "relatedEntities.id", Value: 1}}},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
}

func (s *NotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	_, err := s.coll.InsertOne(ctx, toDocument(n))
	return err
}

func (s *NotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	filter := bson.M{"_id": id.String(), "$or": notExpired(s.now())}

	var doc notificationDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, err
	}
	return doc.toDomain()
}

func (s *NotificationStore) List(ctx context.Context, recipient uuid.UUID, filter domain.Filter, page domain.Page) ([]domain.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Limit))

	cur, err := s.coll.Find(ctx, listFilter(recipient, filter, s.now()), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []notificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]domain.Notification, 0, len(docs))
	for _, d := range docs {
		n, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, recipient uuid.UUID) (int, error) {
	unread := false
	count, err := s.coll.CountDocuments(ctx, listFilter(recipient, domain.Filter{IsRead: &unread}, s.now()))
	return int(count), err
}

func (s *NotificationStore) UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status domain.DeliveryStatus) error {
	filter, update := deliveryUpdate(id, status, s.now())
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrDeliveryNotPending
	}
	return nil
}

// MarkAsRead updates each id on its own so the transitioned set is exact.
func (s *NotificationStore) MarkAsRead(ctx context.Context, recipient uuid.UUID, ids []uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	updated := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		filter := bson.M{"_id": id.String(), "recipient": recipient.String(), "isRead": false}
		res, err := s.coll.UpdateOne(ctx, filter, markReadUpdate(at))
		if err != nil {
			return nil, err
		}
		if res.ModifiedCount == 1 {
			updated = append(updated, id)
		}
	}
	return updated, nil
}

func (s *NotificationStore) MarkAllAsRead(ctx context.Context, recipient uuid.UUID, at time.Time) (int64, error) {
	filter := bson.M{"recipient": recipient.String(), "isRead": false}
	res, err := s.coll.UpdateMany(ctx, filter, markReadUpdate(at))
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *NotificationStore) Delete(ctx context.Context, recipient, id uuid.UUID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id.String(), "recipient": recipient.String()})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationStore) DeleteAll(ctx context.Context, recipient uuid.UUID) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"recipient": recipient.String()})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func notExpired(now time.Time) bson.A {
	return bson.A{
		bson.M{"expiresAt": nil},
		bson.M{"expiresAt": bson.M{"$gt": now}},
	}
}

func listFilter(recipient uuid.UUID, f domain.Filter, now time.Time) bson.M {
	filter := bson.M{
		"recipient": recipient.String(),
		"$or":       notExpired(now),
	}
	if f.Type != "" {
		filter["type"] = string(f.Type)
	}
	if f.Priority != "" {
		filter["priority"] = string(f.Priority)
	}
	if f.IsRead != nil {
		filter["isRead"] = *f.IsRead
	}
	if f.StartDate != nil || f.EndDate != nil {
		created := bson.M{}
		if f.StartDate != nil {
			created["$gte"] = *f.StartDate
		}
		if f.EndDate != nil {
			created["$lte"] = *f.EndDate
		}
		filter["createdAt"] = created
	}
	return filter
}

// deliveryUpdate targets the pending entry for the channel with the positional
// operator, so a terminal entry is never overwritten.
func deliveryUpdate(id uuid.UUID, status domain.DeliveryStatus, now time.Time) (bson.M, bson.M) {
	filter := bson.M{
		"_id": id.String(),
		"deliveryStatus": bson.M{"$elemMatch": bson.M{
			"channel": string(status.Channel),
			"status":  string(domain.DeliveryPending),
		}},
	}
	set := bson.M{
		"deliveryStatus.$.status": string(status.State),
		"updatedAt":               now,
	}
	if status.SentAt != nil {
		set["deliveryStatus.$.sentAt"] = *status.SentAt
	}
	if status.Error != "" {
		set["deliveryStatus.$.error"] = status.Error
	}
	return filter, bson.M{"$set": set}
}

func markReadUpdate(at time.Time) bson.M {
	return bson.M{"$set": bson.M{"isRead": true, "readAt": at, "updatedAt": at}}
}
