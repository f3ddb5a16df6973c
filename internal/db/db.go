// Package db provides PostGIS access for the job store: schema bootstrap,
// the atomic per-row upsert and read-back queries.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Default target table, matching the analytics SQL and dashboard.
const (
	DefaultSchema = "public"
	DefaultTable  = "jobs"
)

// Table names the schema-qualified jobs table.
type Table struct {
	Schema string
	Name   string
}

// DefaultTarget returns public.jobs.
func DefaultTarget() Table {
	return Table{Schema: DefaultSchema, Name: DefaultTable}
}

func (t Table) withDefaults() Table {
	if strings.TrimSpace(t.Schema) == "" {
		t.Schema = DefaultSchema
	}
	if strings.TrimSpace(t.Name) == "" {
		t.Name = DefaultTable
	}
	return t
}

// Ident returns the quoted, schema-qualified table name.
func (t Table) Ident() string {
	t = t.withDefaults()
	return pgx.Identifier{t.Schema, t.Name}.Sanitize()
}

// runsIdent is the run log table living next to the jobs table.
func (t Table) runsIdent() string {
	t = t.withDefaults()
	return pgx.Identifier{t.Schema, t.Name + "_ingest_runs"}.Sanitize()
}

// indexIdent names an index idx_<table>_<suffix>.
func (t Table) indexIdent(suffix string) string {
	t = t.withDefaults()
	return pgx.Identifier{"idx_" + t.Name + "_" + suffix}.Sanitize()
}

func (t Table) String() string {
	t = t.withDefaults()
	return t.Schema + "." + t.Name
}

// DB wraps a PostgreSQL connection pool bound to one jobs table.
type DB struct {
	pool  *pgxpool.Pool
	table Table
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string, table Table) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool, table: table.withDefaults()}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Table returns the table this DB writes to.
func (db *DB) Table() Table {
	return db.table
}
