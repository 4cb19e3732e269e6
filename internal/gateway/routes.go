package gateway

import (
	"net/http"

	"github.com/gaiathon25/gaiathon-notify/internal/gateway/middleware"
	notification_http "github.com/gaiathon25/gaiathon-notify/internal/modules/notification/interfaces/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig holds all the handlers and middleware needed for routing
type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleWare
	NotificationHandler *notification_http.NotificationHandler
	Logger              *zap.Logger
	AllowedOrigins      string
}

// SetupRoutes creates and configures all application routes
func SetupRoutes(config RouterConfig) *Router {
	router := NewRouter(config.Logger, config.AllowedOrigins)
	r := router.Mux()
	h := config.NotificationHandler

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.With(config.AuthMiddleware.RequireAuth).Get("/ws", h.Subscribe)

	r.Route("/notifications", func(r chi.Router) {
		// Public so browsers can fetch it before subscribing
		r.Get("/push", h.PublicKey)

		r.Group(func(r chi.Router) {
			r.Use(config.AuthMiddleware.RequireAuth)

			r.Get("/", h.List)
			r.Put("/", h.MarkAsRead)
			r.Delete("/", h.Delete)
			r.Get("/unread-count", h.UnreadCount)
			r.Put("/read-all", h.MarkAllAsRead)

			r.Get("/preferences", h.GetPreferences)
			r.Put("/preferences", h.UpdatePreferences)

			r.Post("/push", h.SubscribePush)
			r.Delete("/push", h.UnsubscribePush)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleOrganizer))
				r.Post("/", h.Create)
				r.Post("/broadcast", h.Broadcast)
			})

			r.Get("/{id}", h.Get)
		})
	})

	return router
}
