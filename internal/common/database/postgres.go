// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"maritime-edge/internal/common/config"

	_ "github.com/lib/pq"
)

const (
	applicationName = "maritime-edge"
	pingTimeout     = 2 * time.Second
)

// PostgresClient backs the "postgres" repository driver and its readiness check.
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens a pool. It does not dial until first use.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// dsn tags sessions so edge traffic is visible in pg_stat_activity.
func dsn(cfg config.PostgresConfig) string {
	return cfg.GetDSN() + " application_name=" + applicationName
}

// Ping is bounded so a hung database cannot stall /ready.
func (c *PostgresClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
