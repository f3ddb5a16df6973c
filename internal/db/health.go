package db

import (
	"context"
	"fmt"
	"strings"
)

// Health is what the smoke command reports about the store.
type Health struct {
	PostGISVersion string
	Jobs           int64
	WithGeometry   int64
	NearbySample   int64
}

// Stockholm city centre, the reference point of the smoke check.
const (
	smokeLon     = 18.0686
	smokeLat     = 59.3293
	smokeRadiusM = 50000
)

// Health checks PostGIS and counts rows, with and without geometry. It also
// counts rows within 50 km of Stockholm as a spatial index sanity check.
func (db *DB) Health(ctx context.Context) (*Health, error) {
	var h Health

	var full string
	if err := db.pool.QueryRow(ctx, `SELECT postgis_full_version()`).Scan(&full); err != nil {
		return nil, fmt.Errorf("failed to query PostGIS version: %w", err)
	}
	h.PostGISVersion = parsePostGISVersion(full)

	err := db.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*), COUNT(location) FROM %s`, db.table.Ident()),
	).Scan(&h.Jobs, &h.WithGeometry)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	err = db.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s
		 WHERE location IS NOT NULL
		   AND ST_DWithin(location::geography, ST_SetSRID(ST_MakePoint($1::double precision, $2::double precision), 4326)::geography, $3::double precision)`,
			db.table.Ident()),
		smokeLon, smokeLat, smokeRadiusM,
	).Scan(&h.NearbySample)
	if err != nil {
		return nil, fmt.Errorf("failed to run nearby query: %w", err)
	}

	return &h, nil
}

// parsePostGISVersion pulls "3.4.2" out of `POSTGIS="3.4.2 c19ce56" [EXTENSION] ...`.
func parsePostGISVersion(full string) string {
	parts := strings.SplitN(full, "\"", 3)
	if len(parts) < 3 {
		return strings.TrimSpace(full)
	}
	if fields := strings.Fields(parts[1]); len(fields) > 0 {
		return fields[0]
	}
	return strings.TrimSpace(full)
}
