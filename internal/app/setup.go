// Package app wires the order service together.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/orders/internal/catalog"
	"github.com/abgdnv/orders/internal/config"
	"github.com/abgdnv/orders/internal/reconcile"
	"github.com/abgdnv/orders/internal/service"
	"github.com/abgdnv/orders/internal/store"
	"github.com/abgdnv/orders/internal/transport/rest"
	"github.com/abgdnv/orders/pkg/messaging"
	"github.com/abgdnv/orders/pkg/server"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies contains the assembled collaborators of the service.
type Dependencies struct {
	OrderService service.OrderService
	Logger       *slog.Logger
}

// SetupDependencies builds the service graph on top of the given
// infrastructure handles.
func SetupDependencies(dbPool *pgxpool.Pool, cat catalog.Catalog, publisher messaging.Publisher, logger *slog.Logger) *Dependencies {
	orderStore := store.NewPgStore(dbPool)
	resolver := catalog.NewResolver(cat)
	reconciler := reconcile.NewReconciler(cat, logger)
	orderService := service.NewService(orderStore, resolver, reconciler, publisher, logger)
	return &Dependencies{
		OrderService: orderService,
		Logger:       logger,
	}
}

// SetupHttpHandler creates the router, registers the order routes and
// exposes the Prometheus metrics endpoint.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	handler := rest.NewHandler(deps.OrderService, deps.Logger)
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// SetupHttpServer creates the HTTP server with the configured timeouts.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}, SetupHttpHandler(deps))
}
