package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// schemaStatements returns the idempotent DDL for the jobs table.
// The ALTER statements bring tables created by the older CSV loader, which had
// no unique job_id and fewer columns, up to the current shape.
func schemaStatements(t Table) []string {
	t = t.withDefaults()
	jobs := t.Ident()
	return []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pgx.Identifier{t.Schema}.Sanitize()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			source_id BIGINT,
			job_id BIGINT NOT NULL,
			title TEXT,
			company TEXT,
			occupation TEXT,
			employment_type TEXT,
			work_time_extent TEXT,
			duration TEXT,
			positions INTEGER,
			unspecified_workplace BOOLEAN NOT NULL DEFAULT FALSE,
			municipality TEXT,
			region TEXT,
			city TEXT,
			street_address TEXT,
			postal_code TEXT,
			description TEXT,
			published_at TIMESTAMP NULL,
			last_application_at TIMESTAMP NULL,
			expiration_at TIMESTAMP NULL,
			lon DOUBLE PRECISION,
			lat DOUBLE PRECISION,
			location geometry(Point, 4326),
			ingested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, jobs),
		fmt.Sprintf(`ALTER TABLE %s
			ADD COLUMN IF NOT EXISTS work_time_extent TEXT,
			ADD COLUMN IF NOT EXISTS duration TEXT,
			ADD COLUMN IF NOT EXISTS positions INTEGER,
			ADD COLUMN IF NOT EXISTS unspecified_workplace BOOLEAN NOT NULL DEFAULT FALSE,
			ADD COLUMN IF NOT EXISTS description TEXT,
			ADD COLUMN IF NOT EXISTS ingested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			ADD COLUMN IF NOT EXISTS updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()`, jobs),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (job_id)`, t.indexIdent("job_id"), jobs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING GIST (location)`, t.indexIdent("location"), jobs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (municipality)`, t.indexIdent("municipality"), jobs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (occupation)`, t.indexIdent("occupation"), jobs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (published_at)`, t.indexIdent("published"), jobs),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			run_id UUID PRIMARY KEY,
			source TEXT NOT NULL,
			status TEXT NOT NULL,
			summary JSONB,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		)`, t.runsIdent()),
	}
}

// EnsureSchema creates the PostGIS extension, the jobs table, its unique key on
// job_id and its indexes. It is safe to run repeatedly.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(db.table) {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema for %s: %w", db.table, err)
		}
	}
	return nil
}
