package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// DBConfig describes the ledger database and its connection pool.
type DBConfig struct {
	URL         string
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration

	// Attempts bounds how often Open pings before giving up, RetryDelay
	// apart. The API waits out a database that is still starting; ledgerctl
	// fails fast.
	Attempts   int
	RetryDelay time.Duration
}

// Open returns a pooled handle to the ledger database once it answers a
// ping.
func Open(ctx context.Context, cfg DBConfig, logger *slog.Logger) (*sql.DB, error) {
	attempts := max(cfg.Attempts, 1)

	var err error
	for i := 1; ; i++ {
		var db *sql.DB
		if db, err = connect(ctx, cfg); err == nil {
			return db, nil
		}
		if i == attempts {
			break
		}
		logger.Info("waiting for database", "attempt", i, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("Open: %w", ctx.Err())
		case <-time.After(cfg.RetryDelay):
		}
	}
	return nil, fmt.Errorf("Open: gave up after %d attempts: %w", attempts, err)
}

func connect(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(cfg.MaxLifetime)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}
