// Package api assembles the public HTTP surface: routing, the global
// middleware chain, and the separate health/metrics listener.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bibliod/bibliod/pkg/auth"
	"github.com/bibliod/bibliod/pkg/catalog"
	"github.com/bibliod/bibliod/pkg/config"
	"github.com/bibliod/bibliod/pkg/httputil"
	"github.com/bibliod/bibliod/pkg/middleware"
	"github.com/bibliod/bibliod/pkg/observability"
)

// Server is the composed HTTP handler for the public API
type Server struct {
	router  *mux.Router
	handler http.Handler
}

// NewServer builds the router and wraps it in the global middleware chain.
// metrics may be nil when metrics are disabled.
func NewServer(
	cfg config.ServerConfig,
	logger *observability.Logger,
	metrics *observability.Metrics,
	authService *auth.Service,
	catalogService *catalog.Service,
) *Server {
	router := mux.NewRouter()

	authn := middleware.NewAuth(authService)
	auth.NewHandlers(authService).RegisterRoutes(router)
	catalog.NewHandlers(catalogService).RegisterRoutes(router, authn)

	middlewares := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
	}
	if metrics != nil {
		middlewares = append(middlewares, observability.HTTPMetricsMiddleware(metrics))
	}
	middlewares = append(middlewares,
		httputil.RecoveryMiddleware(logger),
		httputil.CORSMiddleware(cfg.AllowedOrigins),
		httputil.MaxBytesMiddleware(cfg.MaxBodyBytes),
	)

	return &Server{
		router:  router,
		handler: httputil.Chain(middlewares...)(router),
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// NewOpsHandler builds the handler served on the health port: liveness and
// readiness probes, plus the Prometheus endpoint when a registry is given.
func NewOpsHandler(checker *observability.HealthChecker, registry *prometheus.Registry) http.Handler {
	opsMux := http.NewServeMux()
	observability.RegisterHealthRoutes(opsMux, checker)
	if registry != nil {
		observability.RegisterMetricsEndpoint(opsMux, registry)
	}
	return opsMux
}
