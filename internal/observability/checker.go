// Package observability hosts the Prometheus metrics and the dedicated
// probes/metrics HTTP server.
package observability

import "context"

// Checker is the contract for any component reporting health status.
// Implementations must be thread-safe and non-blocking.
type Checker interface {
	// Name returns the component identifier (e.g. "postgres", "redis").
	Name() string
	// Check returns nil when healthy. It must respect the context deadline.
	Check(ctx context.Context) error
}
