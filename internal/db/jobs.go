package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jonathan/jobgeo/internal/types"
)

// UpsertResult tells whether an upsert created or replaced the row.
type UpsertResult int

const (
	Inserted UpsertResult = iota + 1
	Updated
)

func (r UpsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}

// upsertSQL is a single INSERT ... ON CONFLICT statement so concurrent writers of
// the same job_id serialize on the unique index. xmax is 0 only for a freshly
// inserted tuple.
func upsertSQL(t Table) string {
	return fmt.Sprintf(`INSERT INTO %s (
			job_id, source_id, title, company, occupation,
			employment_type, work_time_extent, duration, positions, unspecified_workplace,
			municipality, region, city, street_address, postal_code, description,
			published_at, last_application_at, expiration_at,
			lon, lat, location
		)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16,
			$17, $18, $19,
			$20::double precision, $21::double precision,
			CASE WHEN $20::double precision IS NOT NULL AND $21::double precision IS NOT NULL
			     THEN ST_SetSRID(ST_MakePoint($20::double precision, $21::double precision), $22::integer)
			     ELSE NULL END
		)
		ON CONFLICT (job_id) DO UPDATE SET
			source_id = EXCLUDED.source_id,
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			occupation = EXCLUDED.occupation,
			employment_type = EXCLUDED.employment_type,
			work_time_extent = EXCLUDED.work_time_extent,
			duration = EXCLUDED.duration,
			positions = EXCLUDED.positions,
			unspecified_workplace = EXCLUDED.unspecified_workplace,
			municipality = EXCLUDED.municipality,
			region = EXCLUDED.region,
			city = EXCLUDED.city,
			street_address = EXCLUDED.street_address,
			postal_code = EXCLUDED.postal_code,
			description = EXCLUDED.description,
			published_at = EXCLUDED.published_at,
			last_application_at = EXCLUDED.last_application_at,
			expiration_at = EXCLUDED.expiration_at,
			lon = EXCLUDED.lon,
			lat = EXCLUDED.lat,
			location = EXCLUDED.location,
			updated_at = NOW()
		RETURNING (xmax = 0) AS inserted`, t.Ident())
}

// upsertArgs orders the record's fields for upsertSQL. Coordinates are only
// passed for geolocatable records, so a rejected pair can never produce a geometry.
func upsertArgs(rec *types.JobRecord) []any {
	var lon, lat *float64
	if rec.Geolocatable && rec.Lon != nil && rec.Lat != nil {
		lon, lat = rec.Lon, rec.Lat
	}
	return []any{
		rec.ExternalID, rec.SourceID, rec.Title, rec.Company, rec.Occupation,
		rec.EmploymentType, rec.WorkTimeExtent, rec.Duration, rec.Positions, rec.UnspecifiedWorkplace,
		rec.Municipality, rec.Region, rec.City, rec.StreetAddress, rec.PostalCode, rec.Description,
		rec.PublishedAt, rec.LastApplicationAt, rec.ExpirationAt,
		lon, lat, types.SRID,
	}
}

// UpsertJob writes one record, replacing any existing row with the same job_id.
// Failures are returned as *WriteError.
func (db *DB) UpsertJob(ctx context.Context, rec *types.JobRecord) (UpsertResult, error) {
	if rec == nil {
		return 0, &WriteError{Cause: errors.New("nil record")}
	}

	var inserted bool
	err := db.pool.QueryRow(ctx, upsertSQL(db.table), upsertArgs(rec)...).Scan(&inserted)
	if err != nil {
		return 0, &WriteError{ExternalID: rec.ExternalID, Cause: err}
	}
	if inserted {
		return Inserted, nil
	}
	return Updated, nil
}

// JobRow is a stored row read back with its geometry decoded to coordinates.
type JobRow struct {
	JobID        int64
	SourceID     *int64
	Title        *string
	Company      *string
	Municipality *string
	Lon          *float64
	Lat          *float64
	HasLocation  bool
	GeomLon      *float64
	GeomLat      *float64
	SRID         *int
	PublishedAt  *time.Time
	UpdatedAt    time.Time
}

// GetJob retrieves a job row by external id. Returns nil when absent.
func (db *DB) GetJob(ctx context.Context, jobID int64) (*JobRow, error) {
	var r JobRow
	err := db.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT job_id, source_id, title, company, municipality, lon, lat,
		        location IS NOT NULL, ST_X(location), ST_Y(location), ST_SRID(location),
		        published_at, updated_at
		 FROM %s WHERE job_id = $1`, db.table.Ident()),
		jobID,
	).Scan(&r.JobID, &r.SourceID, &r.Title, &r.Company, &r.Municipality, &r.Lon, &r.Lat,
		&r.HasLocation, &r.GeomLon, &r.GeomLat, &r.SRID, &r.PublishedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job %d: %w", jobID, err)
	}
	return &r, nil
}

// CountJobs returns the number of rows stored for a job id.
func (db *DB) CountJobs(ctx context.Context, jobID int64) (int, error) {
	var n int
	err := db.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE job_id = $1`, db.table.Ident()),
		jobID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count job %d: %w", jobID, err)
	}
	return n, nil
}
