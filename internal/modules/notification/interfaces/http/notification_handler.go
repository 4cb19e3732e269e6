package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gaiathon25/gaiathon-notify/internal/gateway/middleware"
	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/domain"
	"github.com/gaiathon25/gaiathon-notify/internal/modules/notification/infrastructure/websocket"
	"github.com/gaiathon25/gaiathon-notify/internal/shared/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type NotificationHandler struct {
	notifications NotificationService
	preferences   PreferenceService
	push          PushService
	hub           *websocket.Hub
	logger        *zap.Logger
}

func NewNotificationHandler(notifications NotificationService, preferences PreferenceService, push PushService, hub *websocket.Hub, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{
		notifications: notifications,
		preferences:   preferences,
		push:          push,
		hub:           hub,
		logger:        logger.Named("http"),
	}
}

// Subscribe upgrades to a websocket that receives the caller's in-app
// notifications as they are delivered.
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	websocket.ServeWs(h.hub, w, r, userID)
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		h.writeServiceError(w, "ListNotifications", err)
		return
	}

	items, err := h.notifications.List(r.Context(), userID, q.Filter, q.Page)
	if err != nil {
		h.writeServiceError(w, "ListNotifications", err)
		return
	}

	if q.GroupBy != nil {
		utils.WriteJSON(w, http.StatusOK, h.notifications.Group(items, *q.GroupBy))
		return
	}
	utils.WriteJSON(w, http.StatusOK, items)
}

func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid notification id", nil)
		return
	}

	n, err := h.notifications.Get(r.Context(), userID, id)
	if err != nil {
		h.writeServiceError(w, "GetNotification", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, n)
}

// Create is the collaborator entry point used by the team, announcement and
// event services.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req CreateNotificationRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Sender == nil {
		req.Sender = &callerID
	}
	recipients := req.Recipients
	if len(recipients) == 0 && req.Recipient != uuid.Nil {
		recipients = []uuid.UUID{req.Recipient}
	}

	created, err := h.notifications.CreateForRecipients(r.Context(), req.CreateInput, recipients)
	if err != nil {
		h.writeServiceError(w, "CreateNotification", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, created)
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req IDsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.NotificationIDs) == 0 {
		utils.WriteError(w, http.StatusBadRequest, "notification ids array is required", nil)
		return
	}

	n, err := h.notifications.MarkAsRead(r.Context(), userID, req.NotificationIDs)
	if err != nil {
		h.writeServiceError(w, "MarkAsRead", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, Count: n})
}

func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	n, err := h.notifications.MarkAllAsRead(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "MarkAllAsRead", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, Count: int(n)})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req DeleteRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.All {
		n, err := h.notifications.DeleteAll(r.Context(), userID)
		if err != nil {
			h.writeServiceError(w, "DeleteAll", err)
			return
		}
		utils.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, Count: int(n)})
		return
	}

	if len(req.NotificationIDs) == 0 {
		utils.WriteError(w, http.StatusBadRequest, "notification ids array is required", nil)
		return
	}
	n, err := h.notifications.Delete(r.Context(), userID, req.NotificationIDs)
	if err != nil {
		h.writeServiceError(w, "DeleteNotifications", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, Count: n})
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	count, err := h.notifications.UnreadCount(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "UnreadCount", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, UnreadCountResponse{Count: count})
}

func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	p, err := h.preferences.Get(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, "GetPreferences", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, p)
}

func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req domain.PreferencesUpdate
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.preferences.Update(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, "UpdatePreferences", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, p)
}

func (h *NotificationHandler) SubscribePush(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var sub domain.PushSubscription
	if !h.decode(w, r, &sub) {
		return
	}
	if err := h.push.Save(r.Context(), userID, sub); err != nil {
		h.writeServiceError(w, "SubscribePush", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, Count: 1})
}

func (h *NotificationHandler) UnsubscribePush(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req UnsubscribeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.push.Delete(r.Context(), userID, req.Endpoint); err != nil {
		h.writeServiceError(w, "UnsubscribePush", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true, Count: 1})
}

func (h *NotificationHandler) PublicKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.push.PublicKey()
	if err != nil {
		h.writeServiceError(w, "PublicKey", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, PublicKeyResponse{VAPIDPublicKey: key})
}

// Broadcast pushes an existing notification to a list of users.
func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req BroadcastRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.NotificationID == uuid.Nil {
		utils.WriteError(w, http.StatusBadRequest, "notificationId is required", nil)
		return
	}
	if len(req.UserIDs) == 0 {
		utils.WriteError(w, http.StatusBadRequest, "userIds array is required", nil)
		return
	}

	n, err := h.notifications.Find(r.Context(), req.NotificationID)
	if err != nil {
		h.writeServiceError(w, "Broadcast", err)
		return
	}
	report := h.push.Broadcast(r.Context(), req.UserIDs, n)
	utils.WriteJSON(w, http.StatusOK, BroadcastResponse{Users: report.Users, Failed: report.Failed})
}

func (h *NotificationHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

// writeServiceError maps domain errors onto status codes. Anything
// unclassified is logged and reported as a generic 500.
func (h *NotificationHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.WriteError(w, http.StatusBadRequest, verr.Error(), nil)
	case errors.Is(err, domain.ErrUnauthorized):
		utils.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
	case errors.Is(err, domain.ErrNotificationNotFound):
		utils.WriteError(w, http.StatusNotFound, err.Error(), nil)
	default:
		h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "internal server error", nil)
	}
}
