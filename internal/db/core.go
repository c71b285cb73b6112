package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions tunes the core pool. Zero values keep the pgx defaults.
type PoolOptions struct {
	// ApplicationName shows up in pg_stat_activity.
	ApplicationName string
	// FanoutLimit is the deployment task limit. Every delivery task writes
	// its own record, so the pool is sized to serve them alongside requests.
	FanoutLimit int
}

// requestConns is the headroom kept for API requests and the sweeper on
// top of the delivery tasks.
const requestConns = 8

// maxCoreConns caps the pool when the task limit is very large or
// unlimited.
const maxCoreConns = 64

// NewCorePool connects to the database holding applications and deployments.
func NewCorePool(ctx context.Context, databaseURL string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := corePoolConfig(databaseURL, opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create core db pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping core db: %w", err)
	}

	return pool, nil
}

func corePoolConfig(databaseURL string, opts PoolOptions) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse core db config: %w", err)
	}

	if opts.ApplicationName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = opts.ApplicationName
	}
	cfg.MaxConns = corePoolSize(opts.FanoutLimit)
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	return cfg, nil
}

// corePoolSize sizes the pool for a task limit. A limit of zero or less
// means unlimited tasks and gets the cap.
func corePoolSize(fanout int) int32 {
	if fanout <= 0 || fanout+requestConns > maxCoreConns {
		return maxCoreConns
	}
	return int32(fanout + requestConns)
}
