// Package database owns the Postgres pool behind the subscriber tables and the
// notification ledger. An empty URL yields an unconfigured DB and the caller
// falls back to the in-memory store.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajasatyajit/QuakeAlert/config"
	"github.com/rajasatyajit/QuakeAlert/internal/logger"
	"github.com/rajasatyajit/QuakeAlert/internal/metrics"
)

const (
	connectTimeout  = 30 * time.Second
	healthTimeout   = 5 * time.Second
	statsInterval   = 30 * time.Second
	applicationName = "quakealert"
)

// ErrNotConfigured is returned by every operation on a DB without a pool.
var ErrNotConfigured = errors.New("database not configured")

type DB struct {
	pool *pgxpool.Pool
	cfg  config.DatabaseConfig

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	if cfg.URL == "" {
		logger.Info("DATABASE_URL not set, subscribers and ledger stay in memory")
		return &DB{cfg: cfg}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	db := &DB{
		pool: pool,
		cfg:  cfg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go db.reportPoolStats()

	logger.Info("Connected to Postgres",
		"host", poolCfg.ConnConfig.Host,
		"database", poolCfg.ConnConfig.Database,
		"max_conns", cfg.MaxConns,
	)
	return db, nil
}

// Close stops the stats reporter and closes the pool. Safe to call twice.
func (d *DB) Close(ctx context.Context) {
	if d.pool == nil {
		return
	}
	d.closeOnce.Do(func() {
		close(d.stop)
		<-d.done
		d.pool.Close()
		logger.Info("Postgres pool closed")
	})
}

// reportPoolStats publishes pool usage until Close. It runs on its own
// lifetime, not the context New was called with.
func (d *DB) reportPoolStats() {
	defer close(d.done)

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		metrics.SetDBConnectionsActive(float64(d.pool.Stat().AcquiredConns()))
		select {
		case <-d.stop:
			return
		case <-ticker.C:
		}
	}
}

// observe logs and counts one round trip.
func observe(op, sql string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		logger.Error("Database "+op+" failed", "error", err, "sql", sql)
	}
	metrics.RecordDBQuery(op, status)
	logger.Debug("Database "+op, "sql", sql, "duration_ms", time.Since(start).Milliseconds())
}

// Exec runs a statement and reports how many rows it touched. The ledger
// relies on the count to detect ON CONFLICT DO NOTHING.
func (d *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if d.pool == nil {
		return 0, ErrNotConfigured
	}
	start := time.Now()
	tag, err := d.pool.Exec(ctx, sql, args...)
	observe("exec", sql, start, err)
	return tag.RowsAffected(), err
}

// Query returns pgx.Rows; the caller closes them.
func (d *DB) Query(ctx context.Context, sql string, args ...any) (interface{}, error) {
	if d.pool == nil {
		return nil, ErrNotConfigured
	}
	start := time.Now()
	rows, err := d.pool.Query(ctx, sql, args...)
	observe("query", sql, start, err)
	return rows, err
}

// QueryRow returns a pgx.Row, or nil when no pool is configured.
func (d *DB) QueryRow(ctx context.Context, sql string, args ...any) interface{} {
	if d.pool == nil {
		return nil
	}
	metrics.RecordDBQuery("query_row", "success")
	return d.pool.QueryRow(ctx, sql, args...)
}

func (d *DB) Health(ctx context.Context) error {
	if d.pool == nil {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return d.pool.Ping(ctx)
}

func (d *DB) IsConfigured() bool {
	return d.pool != nil
}
