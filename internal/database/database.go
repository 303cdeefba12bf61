package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "go-lms"

type DB struct {
	Pool *pgxpool.Pool
}

type Options struct {
	URL      string
	MaxConns int32
	MinConns int32
	// StatementTimeout bounds every query server-side. Zero leaves the
	// server default.
	StatementTimeout time.Duration
}

func New(ctx context.Context, opts Options) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	cfg.MinConns = opts.MinConns
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	runtime := cfg.ConnConfig.RuntimeParams
	if _, set := runtime["application_name"]; !set {
		runtime["application_name"] = applicationName
	}
	if opts.StatementTimeout > 0 {
		runtime["statement_timeout"] = fmt.Sprintf("%d", opts.StatementTimeout.Milliseconds())
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	started := time.Now()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database connected",
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns,
		"ping_ms", time.Since(started).Milliseconds(),
	)
	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health pings the pool. Callers bound it with their own deadline.
func (db *DB) Health(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database pool not initialized")
	}
	return db.Pool.Ping(ctx)
}
