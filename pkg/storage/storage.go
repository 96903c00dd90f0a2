// Package storage defines the combined persistence contract and shared
// instrumentation for the database backends.
package storage

import (
	"context"
	"time"

	"github.com/bibliod/bibliod/pkg/auth"
	"github.com/bibliod/bibliod/pkg/catalog"
	"github.com/bibliod/bibliod/pkg/observability"
)

// Store is the full persistence surface: user records for the auth service
// and book records for the catalog, behind a single connection.
type Store interface {
	auth.UserStore
	catalog.Store

	// EnsureSchema creates missing tables and indexes. Idempotent.
	EnsureSchema(ctx context.Context) error

	// Ping verifies the backing connection is alive.
	Ping(ctx context.Context) error

	Close() error
}

// Observe records one store operation's duration and outcome. Backends call
// it via defer with the operation start time; metrics may be nil.
func Observe(metrics *observability.Metrics, backend, operation string, start time.Time, err error) {
	if metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
		metrics.StoreErrorsTotal.WithLabelValues(operation, backend, "query").Inc()
	}
	metrics.StoreOperationsTotal.WithLabelValues(operation, backend, status).Inc()
	metrics.StoreOperationDuration.WithLabelValues(operation, backend).Observe(time.Since(start).Seconds())
}
