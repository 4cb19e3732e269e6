package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gaiathon25/gaiathon-notify/internal/gateway/middleware"
	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/application"
	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	ws "github.com/gaiathon25/gaiathon-notify/internal/modules/notification/infrastructure/websocket"
	notificationhttp "github.com/gaiathon25/gaiathon-notify/internal/modules/notification/interfaces/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notificationServiceStub struct {
	createFn        func(context.Context, domain.CreateInput, []uuid.UUID) ([]*domain.Notification, error)
	findFn          func(context.Context, uuid.UUID) (*domain.Notification, error)
	getFn           func(context.Context, uuid.UUID, uuid.UUID) (*domain.Notification, error)
	listFn          func(context.Context, uuid.UUID, domain.Filter, domain.Page) ([]domain.Notification, error)
	unreadCountFn   func(context.Context, uuid.UUID) (int, error)
	markAsReadFn    func(context.Context, uuid.UUID, []uuid.UUID) (int, error)
	markAllAsReadFn func(context.Context, uuid.UUID) (int64, error)
	deleteFn        func(context.Context, uuid.UUID, []uuid.UUID) (int, error)
	deleteAllFn     func(context.Context, uuid.UUID) (int64, error)
}

func (s notificationServiceStub) CreateForRecipients(ctx context.Context, in domain.CreateInput, r []uuid.UUID) ([]*domain.Notification, error) {
	return s.createFn(ctx, in, r)
}
func (s notificationServiceStub) Find(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	return s.findFn(ctx, id)
}
func (s notificationServiceStub) Get(ctx context.Context, u, id uuid.UUID) (*domain.Notification, error) {
	return s.getFn(ctx, u, id)
}
func (s notificationServiceStub) List(ctx context.Context, u uuid.UUID, f domain.Filter, p domain.Page) ([]domain.Notification, error) {
	return s.listFn(ctx, u, f, p)
}
func (s notificationServiceStub) UnreadCount(ctx context.Context, u uuid.UUID) (int, error) {
	return s.unreadCountFn(ctx, u)
}
func (s notificationServiceStub) MarkAsRead(ctx context.Context, u uuid.UUID, ids []uuid.UUID) (int, error) {
	return s.markAsReadFn(ctx, u, ids)
}
func (s notificationServiceStub) MarkAllAsRead(ctx context.Context, u uuid.UUID) (int64, error) {
	return s.markAllAsReadFn(ctx, u)
}
func (s notificationServiceStub) Delete(ctx context.Context, u uuid.UUID, ids []uuid.UUID) (int, error) {
	return s.deleteFn(ctx, u, ids)
}
func (s notificationServiceStub) DeleteAll(ctx context.Context, u uuid.UUID) (int64, error) {
	return s.deleteAllFn(ctx, u)
}
func (s notificationServiceStub) Group(items []domain.Notification, rules domain.GroupingRules) map[string][]domain.Notification {
	return domain.Group(items, rules)
}

type preferenceServiceStub struct {
	getFn    func(context.Context, uuid.UUID) (*domain.Preferences, error)
	updateFn func(context.Context, uuid.UUID, domain.PreferencesUpdate) (*domain.Preferences, error)
}

func (s preferenceServiceStub) Get(ctx context.Context, u uuid.UUID) (*domain.Preferences, error) {
	return s.getFn(ctx, u)
}
func (s preferenceServiceStub) Update(ctx context.Context, u uuid.UUID, upd domain.PreferencesUpdate) (*domain.Preferences, error) {
	return s.updateFn(ctx, u, upd)
}

type pushServiceStub struct {
	saveFn      func(context.Context, uuid.UUID, domain.PushSubscription) error
	deleteFn    func(context.Context, uuid.UUID, string) error
	publicKey   string
	keyErr      error
	broadcastFn func(context.Context, []uuid.UUID, *domain.Notification) application.BroadcastReport
}

func (s pushServiceStub) Save(ctx context.Context, u uuid.UUID, sub domain.PushSubscription) error {
	return s.saveFn(ctx, u, sub)
}
func (s pushServiceStub) Delete(ctx context.Context, u uuid.UUID, endpoint string) error {
	return s.deleteFn(ctx, u, endpoint)
}
func (s pushServiceStub) PublicKey() (string, error) { return s.publicKey, s.keyErr }
func (s pushServiceStub) Broadcast(ctx context.Context, users []uuid.UUID, n *domain.Notification) application.BroadcastReport {
	return s.broadcastFn(ctx, users, n)
}

func authedRequest(method, path, body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.ContextKeyUserId, userID)
	return req.WithContext(ctx)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func sampleNotification(recipient uuid.UUID, typ domain.Type) domain.Notification {
	return *domain.NewNotification(domain.CreateInput{
		Type:      typ,
		Recipient: recipient,
		Title:     "Judging",
		Content:   "Judging starts at 15:00",
		Channels:  []domain.Channel{domain.ChannelInApp},
	}, time.Now())
}

func TestNotificationHandler_List(t *testing.T) {
	userID := uuid.New()
	var gotFilter domain.Filter
	var gotPage domain.Page
	h := notificationhttp.NewNotificationHandler(notificationServiceStub{
		listFn: func(_ context.Context, u uuid.UUID, f domain.Filter, p domain.Page) ([]domain.Notification, error) {
			assert.Equal(t, userID, u)
			gotFilter, gotPage = f, p
			return []domain.Notification{sampleNotification(u, domain.TypeEvent), sampleNotification(u, domain.TypeTask)}, nil
		},
	}, nil, nil, nil, nil)

	w := httptest.NewRecorder()
	h.List(w, authedRequest(http.MethodGet, "/notifications?type=event&priority=high&isRead=false&startDate=2025-03-01&endDate=2025-03-02T10:00:00Z&page=2&limit=500", "", userID))
	require.Equal(t, http.StatusOK, w.Code)

	var items []domain.Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	assert.Len(t, items, 2)

	assert.Equal(t, domain.TypeEvent, gotFilter.Type)
	assert.Equal(t, domain.PriorityHigh, gotFilter.Priority)
	require.NotNil(t, gotFilter.IsRead)
	assert.False(t, *gotFilter.IsRead)
	require.NotNil(t, gotFilter.StartDate)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *gotFilter.StartDate)
	require.NotNil(t, gotFilter.EndDate)
	assert.Equal(t, domain.Page{Number: 2, Limit: domain.MaxPageLimit}, gotPage)

	t.Run("grouped", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.List(w, authedRequest(http.MethodGet, "/notifications?groupBy=type", "", userID))
		require.Equal(t, http.StatusOK, w.Code)

		var groups map[string][]domain.Notification
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &groups))
		assert.Len(t, groups["event"], 1)
		assert.Len(t, groups["task"], 1)
	})

	t.Run("defaults", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.List(w, authedRequest(http.MethodGet, "/notifications", "", userID))
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, gotFilter.IsEmpty())
		assert.Equal(t, domain.Page{Number: 1, Limit: domain.DefaultPageLimit}, gotPage)
	})
}

func TestNotificationHandler_ListEmptyIsArray(t *testing.T) {
	h := notificationhttp.NewNotificationHandler(notificationServiceStub{
		listFn: func(context.Context, uuid.UUID, domain.Filter, domain.Page) ([]domain.Notification, error) {
			return []domain.Notification{}, nil
		},
	}, nil, nil, nil, nil)

	w := httptest.NewRecorder()
	h.List(w, authedRequest(http.MethodGet, "/notifications?page=1&limit=20", "", uuid.New()))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestNotificationHandler_ListBadQuery(t *testing.T) {
	h := notificationhttp.NewNotificationHandler(notificationServiceStub{}, nil, nil, nil, nil)

	for _, q := range []string{"type=PARTY", "priority=critical", "isRead=maybe", "startDate=yesterday", "page=one", "page=461168601842738792", "page=100001", "groupBy=team"} {
		t.Run(q, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.List(w, authedRequest(http.MethodGet, "/notifications?"+q, "", uuid.New()))
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decodeError(t, w))
		})
	}
}

func TestNotificationHandler_Unauthorized(t *testing.T) {
	h := notificationhttp.NewNotificationHandler(notificationServiceStub{}, preferenceServiceStub{}, pushServiceStub{}, nil, nil)

	handlers := map[string]http.HandlerFunc{
		"list":        h.List,
		"get":         h.Get,
		"create":      h.Create,
		"markRead":    h.MarkAsRead,
		"markAllRead": h.MarkAllAsRead,
		"delete":      h.Delete,
		"unread":      h.UnreadCount,
		"getPrefs":    h.GetPreferences,
		"putPrefs":    h.UpdatePreferences,
		"subscribe":   h.SubscribePush,
		"unsubscribe": h.UnsubscribePush,
		"ws":          h.Subscribe,
	}
	for name, fn := range handlers {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			fn(w, httptest.NewRequest(http.MethodGet, "/notifications", nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "unauthorized", decodeError(t, w))
		})
	}
}

func TestNotificationHandler_Get(t *testing.T) {
	userID := uuid.New()
	n := sampleNotification(userID, domain.TypeTeam)
	h := notificationhttp.NewNotificationHandler(notificationServiceStub{
		getFn: func(_ context.Context, u, id uuid.UUID) (*domain.Notification, error) {
			if u != userID || id != n.ID {
				return nil, domain.ErrNotificationNotFound
			}
			return &n, nil
		},
	}, nil, nil, nil, nil)

	w := httptest.NewRecorder()
	h.Get(w, withURLParam(authedRequest(http.MethodGet, "/notifications/"+n.ID.String(), "", userID), "id", n.ID.String()))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), n.ID.String())

	w = httptest.NewRecorder()
	h.Get(w, withURLParam(authedRequest(http.MethodGet, "/notifications/x", "", uuid.New()), "id", n.ID.String()))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, domain.ErrNotificationNotFound.Error(), decodeError(t, w))

	w = httptest.NewRecorder()
	h.Get(w, withURLParam(authedRequest(http.MethodGet, "/notifications/x", "", userID), "id", "not-a-uuid"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationHandler_Create(t *testing.T) {
	caller := uuid.New()
	a, b := uuid.New(), uuid.New()

	var gotInput domain.CreateInput
	var gotRecipients []uuid.UUID
	h := notificationhttp.NewNotificationHandler(notificationServiceStub{
		createFn: func(_ context.Context, in domain.CreateInput, recipients []uuid.UUID) ([]*domain.Notification, error) {
			gotInput, gotRecipients = in, recipients
			out := make([]*domain.Notification, 0, len(recipients))
			for _, r := range recipients {
				in.Recipient = r
				out = append(out, domain.NewNotification(in, time.Now()))
			}
			return out, nil
		},
	}, nil, nil, nil, nil)

	body := `{"type":"announcement","title":"Submissions close","content":"One hour left","channels":["in-app","push"],"recipients":["` + a.String() + `","` + b.String() + `"]}`
	w := httptest.NewRecorder()
	h.Create(w, authedRequest(http.MethodPost, "/notifications", body, caller))
	require.Equal(t, http.StatusCreated, w.Code)

	var created []domain.Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Len(t, created, 2)
	assert.Equal(t, []uuid.UUID{a, b}, gotRecipients)
	require.NotNil(t, gotInput.Sender)
	assert.Equal(t, caller, *gotInput.Sender)
	assert.Equal(t, []domain.Channel{domain.ChannelInApp, domain.ChannelPush}, gotInput.Channels)

	t.Run("single recipient field", func(t *testing.T) {
		body := `{"type":"team","recipient":"` + a.String() + `","title":"t","content":"c","channels":["in-app"]}`
		w := httptest.NewRecorder()
		h.Create(w, authedRequest(http.MethodPost, "/notifications", body, caller))
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, []uuid.UUID{a}, gotRecipients)
	})

	t.Run("validation error", func(t *testing.T) {
		h := notificationhttp.NewNotificationHandler(notificationServiceStub{
			createFn: func(context.Context, domain.CreateInput, []uuid.UUID) ([]*domain.Notification, error) {
				return nil, domain.NewValidationError("channels", "is required")
			},
		}, nil, nil, nil, nil)
		w := httptest.NewRecorder()
		h.Create(w, authedRequest(http.MethodPost, "/notifications", `{"type":"team"}`, caller))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "channels: is required", decodeError(t, w))
	})

	t.Run("malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Create(w, authedRequest(http.MethodPost, "/notifications", `{`, caller))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid request body", decodeError(t, w))
	})
}

func TestNotificationHandler_MarkAsRead(t *testing.T) {
	userID := uuid.New()
	id1, id2 := uuid.New(), uuid.New()
	h := notificationhttp.NewNotificationHandler(notificationServiceStub{
		markAsReadFn: func(_ context.Context, u uuid.UUID, ids []uuid.UUID) (int, error) {
			assert.Equal(t, userID, u)
			assert.Equal(t, []uuid.UUID{id1, id2}, ids)
			return 1, nil
		},
		markAllAsReadFn: func(context.Context, uuid.UUID) (int64, error) { return 7, nil },
	}, nil, nil, nil, nil)

	w := httptest.NewRecorder()
	h.MarkAsRead(w, authedRequest(http.MethodPut, "/notifications", `{"notificationIds":["`+id1.String()+`","`+id2.String()+`"]}`, userID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"count":1}`, w.Body.String())

	w = httptest.NewRecorder()
	h.MarkAsRead(w, authedRequest(http.MethodPut, "/notifications", `{"notificationIds":[]}`, userID))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.MarkAsRead(w, authedRequest(http.MethodPut, "/notifications", `{"notificationIds":["nope"]}`, userID))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.MarkAllAsRead(w, authedRequest(http.MethodPut, "/notifications/read-all", "", userID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"count":7}`, w.Body.String())
}

func TestNotificationHandler_Delete(t *testing.T) {
	userID := uuid.New()
	id := uuid.New()
	h := notificationhttp.NewNotificationHandler(notificationServiceStub{
		deleteFn: func(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (int, error) {
			if ids[0] != id {
				return 0, domain.ErrNotificationNotFound
			}
			return 1, nil
		},
		deleteAllFn: func(context.Context, uuid.UUID) (int64, error) { return 3, nil },
	}, nil, nil, nil, nil)

	w := httptest.NewRecorder()
	h.Delete(w, authedRequest(http.MethodDelete, "/notifications", `{"notificationIds":["`+id.String()+`"]}`, userID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"count":1}`, w.Body.String())

	w = httptest.NewRecorder()
	h.Delete(w, authedRequest(http.MethodDelete, "/notifications", `{"notificationIds":["`+uuid.NewString()+`"]}`, userID))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.Delete(w, authedRequest(http.MethodDelete, "/notifications", `{"all":true}`, userID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"count":3}`, w.Body.String())

	w = httptest.NewRecorder()
	h.Delete(w, authedRequest(http.MethodDelete, "/notifications", `{}`, userID))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationHandler_InternalErrorsAreNotLeaked(t *testing.T) {
	h := notificationhttp.NewNotificationHandler(notificationServiceStub{
		unreadCountFn: func(context.Context, uuid.UUID) (int, error) {
			return 0, errors.New("pq: password authentication failed")
		},
	}, nil, nil, nil, nil)

	w := httptest.NewRecorder()
	h.UnreadCount(w, authedRequest(http.MethodGet, "/notifications/unread-count", "", uuid.New()))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestNotificationHandler_UnreadCount(t *testing.T) {
	h := notificationhttp.NewNotificationHandler(notificationServiceStub{
		unreadCountFn: func(context.Context, uuid.UUID) (int, error) { return 5, nil },
	}, nil, nil, nil, nil)

	w := httptest.NewRecorder()
	h.UnreadCount(w, authedRequest(http.MethodGet, "/notifications/unread-count", "", uuid.New()))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":5}`, w.Body.String())
}

func TestNotificationHandler_Preferences(t *testing.T) {
	userID := uuid.New()
	h := notificationhttp.NewNotificationHandler(nil, preferenceServiceStub{
		getFn: func(_ context.Context, u uuid.UUID) (*domain.Preferences, error) {
			p := domain.DefaultPreferences(u)
			return &p, nil
		},
		updateFn: func(_ context.Context, u uuid.UUID, upd domain.PreferencesUpdate) (*domain.Preferences, error) {
			if err := domain.Validate(upd); err != nil {
				return nil, err
			}
			p := domain.DefaultPreferences(u).Apply(upd, time.Now())
			return &p, nil
		},
	}, nil, nil, nil)

	w := httptest.NewRecorder()
	h.GetPreferences(w, authedRequest(http.MethodGet, "/notifications/preferences", "", userID))
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, true, got["email"])
	assert.Equal(t, true, got["push"])
	assert.Equal(t, "DAILY", got["digest"])

	w = httptest.NewRecorder()
	h.UpdatePreferences(w, authedRequest(http.MethodPut, "/notifications/preferences", `{"push":false,"digest":"WEEKLY"}`, userID))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, false, got["push"])
	assert.Equal(t, "WEEKLY", got["digest"])

	w = httptest.NewRecorder()
	h.UpdatePreferences(w, authedRequest(http.MethodPut, "/notifications/preferences", `{"digest":"HOURLY"}`, userID))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationHandler_Push(t *testing.T) {
	userID := uuid.New()
	var saved domain.PushSubscription
	var deleted string
	push := pushServiceStub{
		saveFn: func(_ context.Context, _ uuid.UUID, sub domain.PushSubscription) error {
			if err := domain.Validate(sub); err != nil {
				return err
			}
			saved = sub
			return nil
		},
		deleteFn: func(_ context.Context, _ uuid.UUID, endpoint string) error {
			deleted = endpoint
			return nil
		},
		publicKey: "BPublicKey",
	}
	h := notificationhttp.NewNotificationHandler(nil, nil, push, nil, nil)

	w := httptest.NewRecorder()
	h.SubscribePush(w, authedRequest(http.MethodPost, "/notifications/push", `{"endpoint":"https://fcm.googleapis.com/fcm/send/abc","keys":{"p256dh":"BPk","auth":"au"}}`, userID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://fcm.googleapis.com/fcm/send/abc", saved.Endpoint)
	assert.Equal(t, "au", saved.Keys.Auth)

	w = httptest.NewRecorder()
	h.SubscribePush(w, authedRequest(http.MethodPost, "/notifications/push", `{"endpoint":"https://x.example/1"}`, userID))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.UnsubscribePush(w, authedRequest(http.MethodDelete, "/notifications/push", `{"endpoint":"https://fcm.googleapis.com/fcm/send/abc"}`, userID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://fcm.googleapis.com/fcm/send/abc", deleted)

	w = httptest.NewRecorder()
	h.PublicKey(w, authedRequest(http.MethodGet, "/notifications/push", "", userID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"vapidPublicKey":"BPublicKey"}`, w.Body.String())

	push.keyErr = domain.ErrVAPIDNotConfigured
	h = notificationhttp.NewNotificationHandler(nil, nil, push, nil, nil)
	w = httptest.NewRecorder()
	h.PublicKey(w, authedRequest(http.MethodGet, "/notifications/push", "", userID))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNotificationHandler_Broadcast(t *testing.T) {
	n := sampleNotification(uuid.New(), domain.TypeAnnouncement)
	users := []uuid.UUID{uuid.New(), uuid.New()}
	h := notificationhttp.NewNotificationHandler(notificationServiceStub{
		findFn: func(_ context.Context, id uuid.UUID) (*domain.Notification, error) {
			if id != n.ID {
				return nil, domain.ErrNotificationNotFound
			}
			return &n, nil
		},
	}, nil, pushServiceStub{
		broadcastFn: func(_ context.Context, got []uuid.UUID, pushed *domain.Notification) application.BroadcastReport {
			assert.Equal(t, users, got)
			assert.Equal(t, n.ID, pushed.ID)
			return application.BroadcastReport{Users: 2, Failed: 1}
		},
	}, nil, nil)

	body := `{"notificationId":"` + n.ID.String() + `","userIds":["` + users[0].String() + `","` + users[1].String() + `"]}`
	w := httptest.NewRecorder()
	h.Broadcast(w, authedRequest(http.MethodPost, "/notifications/broadcast", body, uuid.New()))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"users":2,"failed":1}`, w.Body.String())

	w = httptest.NewRecorder()
	h.Broadcast(w, authedRequest(http.MethodPost, "/notifications/broadcast", `{"notificationId":"`+uuid.NewString()+`","userIds":["`+users[0].String()+`"]}`, uuid.New()))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.Broadcast(w, authedRequest(http.MethodPost, "/notifications/broadcast", `{"notificationId":"`+n.ID.String()+`"}`, uuid.New()))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationHandler_SubscribeStreamsLiveNotifications(t *testing.T) {
	hub := ws.NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	userID := uuid.New()
	h := notificationhttp.NewNotificationHandler(nil, nil, nil, hub, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), middleware.ContextKeyUserId, userID)
		h.Subscribe(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connections() == 1 }, time.Second, 10*time.Millisecond)
	hub.SendToUser(userID, []byte(`{"event":"notification"}`))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"notification"}`, string(msg))
}
