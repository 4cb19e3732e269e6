package gateway

import (
	"net/http"

	"github.com/gaiathon25/gaiathon-notify/internal/gateway/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Router wraps a chi mux carrying the shared middleware stack
type Router struct {
	mux chi.Router
}

// NewRouter creates a router with request ids, logging, panic recovery,
// CORS and request metrics installed.
func NewRouter(logger *zap.Logger, allowedOrigins string) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.RequestLogger(logger))
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.CORS(allowedOrigins))
	mux.Use(middleware.PrometheusMiddleware)
	return &Router{mux: mux}
}

// Mux returns the underlying chi router
func (r *Router) Mux() chi.Router {
	return r.mux
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
