package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"
	"github.com/mockly/apiserver/config"
)

const (
	driverName  = "postgres"
	pingTimeout = 5 * time.Second
)

// URL is the postgres connection string used by the server, the worker and
// the migrate command.
func URL(cfg config.DatabaseConfig) string {
	query := url.Values{}
	if cfg.UseSSL {
		query.Set("sslmode", "require")
	} else {
		query.Set("sslmode", "disable")
	}

	return (&url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     cfg.DBName,
		RawQuery: query.Encode(),
	}).String()
}

// Open returns a pooled connection to the accounts, interviews and resources
// database. It fails unless the database answers a ping.
func Open(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	pool, err := sql.Open(driverName, URL(cfg.Database))
	if err != nil {
		return nil, err
	}

	if cfg.Database.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping %s:%d/%s: %w", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, err)
	}
	return pool, nil
}
