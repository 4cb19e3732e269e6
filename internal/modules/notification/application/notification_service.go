package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultDispatchTimeout = 15 * time.Second

type NotificationService struct {
	repo       domain.NotificationRepository
	cache      domain.NotificationCache
	dispatcher *Dispatcher
	logger     *zap.Logger
	timeout    time.Duration
	now        func() time.Time

	inflight sync.WaitGroup
}

func NewNotificationService(repo domain.NotificationRepository, cache domain.NotificationCache, dispatcher *Dispatcher, dispatchTimeout time.Duration, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dispatchTimeout <= 0 {
		dispatchTimeout = DefaultDispatchTimeout
	}
	return &NotificationService{
		repo:       repo,
		cache:      cache,
		dispatcher: dispatcher,
		logger:     logger.Named("notifications"),
		timeout:    dispatchTimeout,
		now:        time.Now,
	}
}

// Create validates and stores one notification, mirrors it into the cache and
// hands it to the dispatcher in the background. The caller's success depends
// only on the durable write.
func (s *NotificationService) Create(ctx context.Context, in domain.CreateInput) (*domain.Notification, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	n := domain.NewNotification(in, s.now())
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	if err := s.cache.Put(ctx, n); err != nil {
		s.logger.Warn("caching notification failed", zap.String("notification_id", n.ID.String()), zap.Error(err))
	}

	s.dispatch(ctx, n)
	return n, nil
}

// CreateForRecipients fans one template out to several recipients. The
// template's own recipient is ignored.
func (s *NotificationService) CreateForRecipients(ctx context.Context, template domain.CreateInput, recipients []uuid.UUID) ([]*domain.Notification, error) {
	if len(recipients) == 0 {
		return nil, domain.NewValidationError("recipients", "must contain at least one user")
	}

	created := make([]*domain.Notification, 0, len(recipients))
	for _, r := range recipients {
		in := template
		in.Recipient = r
		n, err := s.Create(ctx, in)
		if err != nil {
			return created, err
		}
		created = append(created, n)
	}
	return created, nil
}

func (s *NotificationService) dispatch(ctx context.Context, n *domain.Notification) {
	// the copy keeps the dispatcher's writes away from the record we return
	snapshot := *n
	snapshot.DeliveryStatus = append([]domain.DeliveryStatus(nil), n.DeliveryStatus...)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		s.dispatcher.Dispatch(dctx, &snapshot)
	}()
}

// Wait blocks until every background dispatch started so far has finished.
func (s *NotificationService) Wait() {
	s.inflight.Wait()
}

// Find loads a notification regardless of its recipient. Only privileged
// callers use it.
func (s *NotificationService) Find(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	return s.repo.GetByID(ctx, id)
}

// Get returns one notification owned by userID.
func (s *NotificationService) Get(ctx context.Context, userID, id uuid.UUID) (*domain.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Recipient != userID {
		return nil, domain.ErrNotificationNotFound
	}
	return n, nil
}

// List serves an unfiltered page from the cache index when it has entries,
// dropping ids whose record already left the cache. Filtered requests and an
// empty cached page go to the durable store.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, filter domain.Filter, page domain.Page) ([]domain.Notification, error) {
	if filter.IsEmpty() {
		if items, ok := s.listCached(ctx, userID, page); ok {
			return items, nil
		}
	}
	return s.repo.List(ctx, userID, filter, page)
}

func (s *NotificationService) listCached(ctx context.Context, userID uuid.UUID, page domain.Page) ([]domain.Notification, bool) {
	ids, err := s.cache.PageIDs(ctx, userID, page)
	if err != nil {
		s.logger.Warn("reading cached index failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, false
	}
	if len(ids) == 0 {
		return nil, false
	}

	items := make([]domain.Notification, 0, len(ids))
	for _, id := range ids {
		n, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("hydrating cached notification failed", zap.String("notification_id", id.String()), zap.Error(err))
			continue
		}
		if n == nil {
			continue
		}
		items = append(items, *n)
	}
	return items, true
}

// UnreadCount is answered by the durable store; the cache counter is reset to
// the result so its drift does not accumulate.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.cache.SetUnreadCount(ctx, userID, int64(count)); err != nil {
		s.logger.Warn("repopulating unread counter failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
	return count, nil
}

// MarkAsRead marks the ids owned by userID as read and returns how many were
// actually transitioned. Ids of other users are ignored.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, domain.NewValidationError("notificationIds", "must contain at least one id")
	}

	at := s.now()
	updated, err := s.repo.MarkAsRead(ctx, userID, ids, at)
	if err != nil {
		return 0, err
	}
	if len(updated) > 0 {
		if err := s.cache.MarkRead(ctx, userID, updated, at); err != nil {
			s.logger.Warn("updating cached read state failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
	return len(updated), nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllAsRead(ctx, userID, s.now())
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, userID)
	return n, nil
}

// Delete removes every listed id owned by userID. Missing ids do not stop the
// others; ErrNotificationNotFound is returned afterwards if any were missing.
func (s *NotificationService) Delete(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, domain.NewValidationError("notificationIds", "must contain at least one id")
	}

	deleted := 0
	var missing bool
	var firstErr error
	for _, id := range ids {
		err := s.repo.Delete(ctx, userID, id)
		switch {
		case err == nil:
			deleted++
		case errors.Is(err, domain.ErrNotificationNotFound):
			missing = true
		case firstErr == nil:
			firstErr = err
		}
	}

	if deleted > 0 {
		s.invalidate(ctx, userID)
	}
	if firstErr != nil {
		return deleted, firstErr
	}
	if missing {
		return deleted, domain.ErrNotificationNotFound
	}
	return deleted, nil
}

func (s *NotificationService) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.DeleteAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, userID)
	return n, nil
}

func (s *NotificationService) invalidate(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		s.logger.Warn("invalidating user cache failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

// Group buckets a listing for display.
func (s *NotificationService) Group(items []domain.Notification, rules domain.GroupingRules) map[string][]domain.Notification {
	return domain.Group(items, rules)
}
