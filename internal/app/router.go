package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/accessgate/accessgate/internal/assignments"
	"github.com/accessgate/accessgate/internal/catalog"
	"github.com/accessgate/accessgate/internal/grants"
	"github.com/accessgate/accessgate/internal/identity"
	"github.com/accessgate/accessgate/internal/mock"
	"github.com/accessgate/accessgate/internal/observability"
	"github.com/accessgate/accessgate/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	IdentityHandler    *identity.Handler
	CatalogHandler     *catalog.Handler
	GrantsHandler      *grants.Handler
	AssignmentsHandler *assignments.Handler
	MockHandler        *mock.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Accessgate defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Use(AuthRateLimiter(params.Config))
		params.IdentityHandler.MountAuthRoutes(r)
	})
	r.Route("/users", func(r chi.Router) {
		params.IdentityHandler.MountUserRoutes(r)
		r.Route("/role", params.AssignmentsHandler.MountRoutes)
	})
	r.Route("/applications", params.CatalogHandler.MountRoutes)
	r.Route("/permissions", params.GrantsHandler.MountRoutes)
	if params.MockHandler != nil {
		r.Route("/mock-view", params.MockHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Get("/metrics", params.Metrics.Handler().ServeHTTP)
	}

	return r
}
