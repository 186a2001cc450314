// Package resultsdb indexes stored results into DuckDB for cross-run queries.
package resultsdb

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
)

//go:embed schema.sql
var schemaDDL string

// SchemaDDL returns the schema applied by EnsureSchema.
func SchemaDDL() string {
	return schemaDDL
}

// EnsureSchema applies the schema DDL to the provided database connection.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("resultsdb: db is nil")
	}
	_, err := db.ExecContext(ctx, schemaDDL)
	return err
}

// DB wraps a DuckDB connection holding indexed results.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema. An
// empty path or ":memory:" opens an in-memory database.
func Open(ctx context.Context, path string) (*DB, error) {
	dsn := path
	if dsn == ":memory:" {
		dsn = ""
	}
	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	if err := EnsureSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{db: conn}, nil
}

// New wraps an existing connection whose schema is already applied.
func New(conn *sql.DB) *DB {
	return &DB{db: conn}
}

// Close releases the connection.
func (d *DB) Close() error {
	return d.db.Close()
}
