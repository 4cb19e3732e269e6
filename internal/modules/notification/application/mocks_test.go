package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/google/uuid"
)

type notificationRepoMock struct {
	createFn               func(context.Context, *domain.Notification) error
	getByIDFn              func(context.Context, uuid.UUID) (*domain.Notification, error)
	listFn                 func(context.Context, uuid.UUID, domain.Filter, domain.Page) ([]domain.Notification, error)
	countUnreadFn          func(context.Context, uuid.UUID) (int, error)
	updateDeliveryStatusFn func(context.Context, uuid.UUID, domain.DeliveryStatus) error
	markAsReadFn           func(context.Context, uuid.UUID, []uuid.UUID, time.Time) ([]uuid.UUID, error)
	markAllAsReadFn        func(context.Context, uuid.UUID, time.Time) (int64, error)
	deleteFn               func(context.Context, uuid.UUID, uuid.UUID) error
	deleteAllFn            func(context.Context, uuid.UUID) (int64, error)
}

func (m *notificationRepoMock) Create(ctx context.Context, n *domain.Notification) error {
	if m.createFn == nil {
		return nil
	}
	return m.createFn(ctx, n)
}

func (m *notificationRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	if m.getByIDFn == nil {
		return nil, domain.ErrNotificationNotFound
	}
	return m.getByIDFn(ctx, id)
}

func (m *notificationRepoMock) List(ctx context.Context, recipient uuid.UUID, f domain.Filter, p domain.Page) ([]domain.Notification, error) {
	if m.listFn == nil {
		return []domain.Notification{}, nil
	}
	return m.listFn(ctx, recipient, f, p)
}

func (m *notificationRepoMock) CountUnread(ctx context.Context, recipient uuid.UUID) (int, error) {
	if m.countUnreadFn == nil {
		return 0, nil
	}
	return m.countUnreadFn(ctx, recipient)
}

func (m *notificationRepoMock) UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, s domain.DeliveryStatus) error {
	if m.updateDeliveryStatusFn == nil {
		return nil
	}
	return m.updateDeliveryStatusFn(ctx, id, s)
}

func (m *notificationRepoMock) MarkAsRead(ctx context.Context, recipient uuid.UUID, ids []uuid.UUID, at time.Time) ([]uuid.UUID, error) {
	if m.markAsReadFn == nil {
		return ids, nil
	}
	return m.markAsReadFn(ctx, recipient, ids, at)
}

func (m *notificationRepoMock) MarkAllAsRead(ctx context.Context, recipient uuid.UUID, at time.Time) (int64, error) {
	if m.markAllAsReadFn == nil {
		return 0, nil
	}
	return m.markAllAsReadFn(ctx, recipient, at)
}

func (m *notificationRepoMock) Delete(ctx context.Context, recipient, id uuid.UUID) error {
	if m.deleteFn == nil {
		return nil
	}
	return m.deleteFn(ctx, recipient, id)
}

func (m *notificationRepoMock) DeleteAll(ctx context.Context, recipient uuid.UUID) (int64, error) {
	if m.deleteAllFn == nil {
		return 0, nil
	}
	return m.deleteAllFn(ctx, recipient)
}

type cacheMock struct {
	putFn            func(context.Context, *domain.Notification) error
	getFn            func(context.Context, uuid.UUID) (*domain.Notification, error)
	refreshFn        func(context.Context, *domain.Notification) error
	pageIDsFn        func(context.Context, uuid.UUID, domain.Page) ([]uuid.UUID, error)
	setUnreadCountFn func(context.Context, uuid.UUID, int64) error
	markReadFn       func(context.Context, uuid.UUID, []uuid.UUID, time.Time) error
	invalidateUserFn func(context.Context, uuid.UUID) error
}

func (m *cacheMock) Put(ctx context.Context, n *domain.Notification) error {
	if m.putFn == nil {
		return nil
	}
	return m.putFn(ctx, n)
}

func (m *cacheMock) Get(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	if m.getFn == nil {
		return nil, nil
	}
	return m.getFn(ctx, id)
}

func (m *cacheMock) Refresh(ctx context.Context, n *domain.Notification) error {
	if m.refreshFn == nil {
		return nil
	}
	return m.refreshFn(ctx, n)
}

func (m *cacheMock) PageIDs(ctx context.Context, userID uuid.UUID, p domain.Page) ([]uuid.UUID, error) {
	if m.pageIDsFn == nil {
		return nil, nil
	}
	return m.pageIDsFn(ctx, userID, p)
}

func (m *cacheMock) SetUnreadCount(ctx context.Context, userID uuid.UUID, count int64) error {
	if m.setUnreadCountFn == nil {
		return nil
	}
	return m.setUnreadCountFn(ctx, userID, count)
}

func (m *cacheMock) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, at time.Time) error {
	if m.markReadFn == nil {
		return nil
	}
	return m.markReadFn(ctx, userID, ids, at)
}

func (m *cacheMock) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	if m.invalidateUserFn == nil {
		return nil
	}
	return m.invalidateUserFn(ctx, userID)
}

type preferenceRepoMock struct {
	getFn    func(context.Context, uuid.UUID) (*domain.Preferences, error)
	upsertFn func(context.Context, *domain.Preferences) error
}

func (m *preferenceRepoMock) Get(ctx context.Context, userID uuid.UUID) (*domain.Preferences, error) {
	if m.getFn == nil {
		return nil, domain.ErrPreferencesNotFound
	}
	return m.getFn(ctx, userID)
}

func (m *preferenceRepoMock) Upsert(ctx context.Context, p *domain.Preferences) error {
	if m.upsertFn == nil {
		return nil
	}
	return m.upsertFn(ctx, p)
}

// memSubscriptions is an in-memory subscription set keyed by endpoint.
type memSubscriptions struct {
	mu      sync.Mutex
	sets    map[uuid.UUID]map[string]domain.PushSubscription
	listErr error
}

func newMemSubscriptions() *memSubscriptions {
	return &memSubscriptions{sets: make(map[uuid.UUID]map[string]domain.PushSubscription)}
}

func (m *memSubscriptions) List(_ context.Context, userID uuid.UUID) ([]domain.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.PushSubscription, 0, len(m.sets[userID]))
	for _, s := range m.sets[userID] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out, nil
}

func (m *memSubscriptions) Add(_ context.Context, userID uuid.UUID, sub domain.PushSubscription) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[userID]
	if !ok {
		set = make(map[string]domain.PushSubscription)
		m.sets[userID] = set
	}
	if _, exists := set[sub.Endpoint]; exists {
		return false, nil
	}
	set[sub.Endpoint] = sub
	return true, nil
}

func (m *memSubscriptions) Remove(_ context.Context, userID uuid.UUID, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets[userID], endpoint)
	return nil
}

type pushSenderMock struct {
	mu        sync.Mutex
	calls     []string
	payloads  [][]byte
	publicKey string
	sendFn    func(domain.PushSubscription) error
}

func (m *pushSenderMock) Send(_ context.Context, sub domain.PushSubscription, payload []byte, _ domain.Priority) error {
	m.mu.Lock()
	m.calls = append(m.calls, sub.Endpoint)
	m.payloads = append(m.payloads, payload)
	m.mu.Unlock()
	if m.sendFn == nil {
		return nil
	}
	return m.sendFn(sub)
}

func (m *pushSenderMock) PublicKey() string { return m.publicKey }

func (m *pushSenderMock) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func subscription(endpoint string) domain.PushSubscription {
	return domain.PushSubscription{
		Endpoint: endpoint,
		Keys:     domain.SubscriptionKeys{P256dh: "BPk", Auth: "au"},
	}
}

func newTestNotification(channels ...domain.Channel) *domain.Notification {
	return domain.NewNotification(domain.CreateInput{
		Type:      domain.TypeTeam,
		Priority:  domain.PriorityHigh,
		Recipient: uuid.New(),
		Title:     "Invitation",
		Content:   "You were invited to team Orbit",
		Channels:  channels,
		ActionURL: "https://gaiathon.dev/teams/orbit",
	}, time.Now())
}
