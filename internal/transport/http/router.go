package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trustgate/pkg/platform/middleware/auth"
	"trustgate/pkg/platform/middleware/requestid"
	"trustgate/pkg/platform/middleware/requesttime"
)

// NewRouter assembles the HTTP surface: identity endpoints plus health.
// Bearer auth is optional at the middleware level; handlers that need a
// session enforce it through the service.
func NewRouter(h *Handler, verifier auth.TokenVerifier) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(auth.Optional(verifier))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	h.Register(r)
	return r
}

// NewMetricsHandler serves the Prometheus scrape endpoint, kept off the
// public listener.
func NewMetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
