package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Pinger is the minimal surface shared by the pgx pool and the event
// publisher for readiness probing.
type Pinger interface{ Ping(ctx context.Context) error }

// BuildReadinessChecks returns the db, redis and kafka checks handed to the
// HTTP server. A nil dependency yields a check that reports it unconfigured;
// the readiness handler skips nil check funcs entirely, so callers that
// deliberately run without a dependency should pass the returned func only
// when the dependency is expected.
func BuildReadinessChecks(pool Pinger, rdb *redis.Client, events Pinger) (
	dbCheck func(ctx context.Context) error,
	redisCheck func(ctx context.Context) error,
	kafkaCheck func(ctx context.Context) error,
) {
	dbCheck = func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db not configured")
		}
		return pool.Ping(ctx)
	}
	redisCheck = func(ctx context.Context) error {
		if rdb == nil {
			return fmt.Errorf("redis not configured")
		}
		return rdb.Ping(ctx).Err()
	}
	kafkaCheck = func(ctx context.Context) error {
		if events == nil {
			return fmt.Errorf("event stream not configured")
		}
		return events.Ping(ctx)
	}
	return dbCheck, redisCheck, kafkaCheck
}
