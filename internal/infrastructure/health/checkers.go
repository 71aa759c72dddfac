package health

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"

	"github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/core/ports"
	infraDB "github.com/WishUponASnowflake/astrbot-plugin-angel-eye/internal/infrastructure/db"
)

// dbHealthChecker wraps the database for health checks.
type dbHealthChecker struct{ db *infraDB.Database }

func (d *dbHealthChecker) Name() string                    { return "database" }
func (d *dbHealthChecker) Check(ctx context.Context) error { return d.db.DB.PingContext(ctx) }

// redisHealthChecker wraps the redis client for health checks.
type redisHealthChecker struct{ client *redis.Client }

func (r *redisHealthChecker) Name() string                    { return "redis" }
func (r *redisHealthChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// natsHealthChecker wraps the NATS connection for health checks.
type natsHealthChecker struct{ conn *nats.Conn }

func (n *natsHealthChecker) Name() string { return "nats" }
func (n *natsHealthChecker) Check(_ context.Context) error {
	if !n.conn.IsConnected() {
		return errors.New("nats connection lost")
	}
	return nil
}

// NewDBHealthChecker creates a health checker for the database.
func NewDBHealthChecker(db *infraDB.Database) ports.HealthChecker { return &dbHealthChecker{db: db} }

// NewRedisHealthChecker creates a health checker for Redis.
func NewRedisHealthChecker(client *redis.Client) ports.HealthChecker {
	return &redisHealthChecker{client: client}
}

// NewNATSHealthChecker creates a health checker for the NATS connection.
func NewNATSHealthChecker(conn *nats.Conn) ports.HealthChecker {
	return &natsHealthChecker{conn: conn}
}
