package ports

import "context"

// HealthChecker probes one backing dependency of the cache, such as the
// database, redis or the NATS connection. A nil result means usable.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
