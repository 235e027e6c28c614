package arbitrage

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/colconnect/arbitrage/pkg/authz"
	"github.com/colconnect/arbitrage/pkg/tenancy"
)

// NewRouter creates a chi router with the arbitrage API routes, mounted by
// the host under /api/v1. The collectivite group establishes the caller
// identity, resolves tenancy and checks access; the system group stays open
// for probes.
func NewRouter(svc *Service, authCfg *authz.Config, logger *slog.Logger) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}
	if authCfg == nil {
		authCfg = authz.DefaultConfig()
	}

	r := chi.NewRouter()

	r.Route("/collectivites/{collectiviteID}", func(r chi.Router) {
		r.Use(authz.IdentityMiddleware(authCfg))
		r.Use(tenancy.Middleware)
		r.Use(authz.RequireCollectiviteAccess(authCfg))

		r.Post("/arbitrage:run", runHandler(svc, logger))
		r.Get("/arbitrage:last", latestHandler(svc, logger))
		r.Get("/arbitrages", listRunsHandler(svc, logger))
		r.Get("/arbitrages:cursor", listRunsCursorHandler(svc, logger))
		r.Get("/arbitrages/{arbitrageID}", getRunHandler(svc, logger))

		r.Get("/settings", getSettingsHandler(svc, logger))
		r.Put("/settings", putSettingsHandler(svc, logger))
	})

	r.Route("/system", func(r chi.Router) {
		r.Get("/health", healthHandler(svc))
		r.Get("/version", versionHandler())
	})

	return r
}
