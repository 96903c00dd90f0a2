// Package observability provides structured logging, Prometheus metrics,
// health checks, and graceful shutdown for the bibliod catalog service.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.Info("server started")
//
// Context-aware logging:
//
//	logger.WithField("request_id", reqID).WithError(err).Error("request failed")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.HTTPRequestsTotal.WithLabelValues("GET", "/books", "200").Inc()
//
// # Health Checks
//
// The HealthChecker exposes Kubernetes-style probes:
//
//	GET /health/live   - process liveness, always 200 while serving
//	GET /health/ready  - readiness, pings the database with a timeout
//
// # Graceful Shutdown
//
// ShutdownManager waits for SIGINT/SIGTERM, drains the HTTP server, then runs
// registered shutdown functions (database close, etc.) under a single timeout.
package observability
