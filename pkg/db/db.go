// pkg/db/db.go
package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"idgate/pkg/config"
)

// MustConnect opens the tenant inventory pool, or returns nil when no
// DATABASE_URL is set so callers fall back to the memory store. Any other
// failure is fatal: a half-configured inventory is worse than none.
func MustConnect(cfg config.Config, log *zap.SugaredLogger) *pgxpool.Pool {
	if cfg.DatabaseURL == "" {
		return nil
	}
	pc, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalw("pg config", "err", err)
	}
	// Saga steps hold connections only briefly; recycle them well inside
	// typical LB idle cutoffs.
	pc.MaxConnLifetime = 30 * time.Minute
	pc.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), pc)
	if err != nil {
		log.Fatalw("pg connect", "err", err)
	}
	if err := ping(cfg, pool.Ping); err != nil {
		log.Fatalw("pg ping", "err", err)
	}
	log.Infow("postgres ready", "dsn", redactDSN(cfg.DatabaseURL))
	return pool
}

// MustRedis opens the shared credential cache, or returns nil when no
// REDIS_URL is set so the broker keeps an in-process cache.
func MustRedis(cfg config.Config, log *zap.SugaredLogger) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalw("redis parse", "err", err)
	}
	cli := redis.NewClient(opts)
	if err := ping(cfg, func(ctx context.Context) error { return cli.Ping(ctx).Err() }); err != nil {
		log.Fatalw("redis ping", "err", err)
	}
	log.Infow("redis ready", "addr", opts.Addr)
	return cli
}

// ping bounds the startup probe by the saga step deadline; an unreachable
// backend should fail the boot in the same window a step would fail in.
func ping(cfg config.Config, probe func(ctx context.Context) error) error {
	timeout := cfg.StepTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return probe(ctx)
}

func redactDSN(dsn string) string {
	if i := strings.Index(dsn, "@"); i > 0 {
		return "***@" + dsn[i+1:]
	}
	return dsn
}
