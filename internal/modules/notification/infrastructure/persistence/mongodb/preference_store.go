package mongodb

import (
	"context"
	"errors"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PreferenceStore struct {
	coll *mongo.Collection
}

func NewPreferenceStore(db *mongo.Database) *PreferenceStore {
	return &PreferenceStore{coll: db.Collection(PreferencesCollection)}
}

func (s *PreferenceStore) Get(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error) {
	var doc preferenceDoc
	if err := s.coll.FindOne(ctx, bson.M{"_id": userID.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPreferencesNotFound
		}
		return nil, err
	}
	return &domain.Preferences{
		UserID:    userID,
		Email:     doc.Email,
		Push:      doc.Push,
		Digest:    domain.Digest(doc.Digest),
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (s *PreferenceStore) Upsert(ctx context.Context, p *domain.Preferences) error {
	doc := preferenceDoc{
		UserID:    p.UserID.String(),
		Email:     p.Email,
		Push:      p.Push,
		Digest:    string(p.Digest),
		UpdatedAt: p.UpdatedAt,
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.UserID}, doc, options.Replace().SetUpsert(true))
	return err
}
