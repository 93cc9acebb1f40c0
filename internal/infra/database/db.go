package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const defaultConnMaxLifetime = 1 * time.Minute

// Connector opens a database handle that the caller must close.
type Connector func(ctx context.Context) (*sql.DB, error)

// NewPostgresConnection creates and returns a new PostgreSQL database connection.
// It also pings the database to ensure connectivity.
// The handle is limited to a single connection; it is meant for one unit of work.
func NewPostgresConnection(ctx context.Context, dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	if err = db.PingContext(ctx); err != nil {
		db.Close() // Close the connection if ping fails
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// PostgresConnector returns a Connector that dials dataSourceName on every call.
func PostgresConnector(dataSourceName string) Connector {
	return func(ctx context.Context) (*sql.DB, error) {
		return NewPostgresConnection(ctx, dataSourceName)
	}
}
