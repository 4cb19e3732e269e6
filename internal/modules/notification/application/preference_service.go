package application

import (
	"context"
	"errors"
	"time"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/google/uuid"
)

type PreferenceService struct {
	repo domain.PreferenceRepository
	now  func() time.Time
}

func NewPreferenceService(repo domain.PreferenceRepository) *PreferenceService {
	return &PreferenceService{repo: repo, now: time.Now}
}

// Get returns the stored preferences, or the defaults for a user who never
// saved any.
func (s *PreferenceService) Get(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error) {
	p, err := s.repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrPreferencesNotFound) {
		defaults := domain.DefaultPreferences(userID)
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PreferenceService) Update(ctx context.Context, userID uuid.UUID, u domain.PreferencesUpdate) (*domain.Preferences, error) {
	if err := domain.Validate(u); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated := current.Apply(u, s.now())
	if err := s.repo.Upsert(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}
