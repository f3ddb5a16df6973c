package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobgeo/internal/types"
)

func TestTable_Ident(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		want  string
	}{
		{"defaults", Table{}, `"public"."jobs"`},
		{"custom", Table{Schema: "geo", Name: "af_jobs"}, `"geo"."af_jobs"`},
		{"quotes escaped", Table{Schema: "public", Name: `we"ird`}, `"public"."we""ird"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.table.Ident())
		})
	}
}

func TestTable_DerivedNames(t *testing.T) {
	tbl := Table{Schema: "geo", Name: "jobs"}
	assert.Equal(t, `"geo"."jobs_ingest_runs"`, tbl.runsIdent())
	assert.Equal(t, `"idx_jobs_location"`, tbl.indexIdent("location"))
	assert.Equal(t, "geo.jobs", tbl.String())
}

func TestUpsertSQL_IsSingleAtomicStatement(t *testing.T) {
	sql := upsertSQL(DefaultTarget())

	assert.Equal(t, 1, strings.Count(sql, "INSERT INTO"))
	assert.Contains(t, sql, `INSERT INTO "public"."jobs"`)
	assert.Contains(t, sql, "ON CONFLICT (job_id) DO UPDATE SET")
	assert.Contains(t, sql, "location = EXCLUDED.location")
	assert.Contains(t, sql, "ST_SetSRID(ST_MakePoint(")
	assert.Contains(t, sql, "RETURNING (xmax = 0)")
	assert.NotContains(t, sql, "SELECT")
}

func TestUpsertArgs_Geometry(t *testing.T) {
	lon, lat := 18.0686, 59.3293

	t.Run("geolocatable passes coordinates", func(t *testing.T) {
		args := upsertArgs(&types.JobRecord{ExternalID: 7, Lon: &lon, Lat: &lat, Geolocatable: true})
		require.Len(t, args, 22)
		assert.Equal(t, int64(7), args[0])
		assert.Equal(t, &lon, args[19])
		assert.Equal(t, &lat, args[20])
		assert.Equal(t, types.SRID, args[21])
	})

	t.Run("not geolocatable passes nulls", func(t *testing.T) {
		args := upsertArgs(&types.JobRecord{ExternalID: 8, Lon: &lon, Lat: &lat, Geolocatable: false})
		assert.Nil(t, args[19])
		assert.Nil(t, args[20])
	})
}

func TestUpsertResult_String(t *testing.T) {
	assert.Equal(t, "inserted", Inserted.String())
	assert.Equal(t, "updated", Updated.String())
	assert.Equal(t, "unknown", UpsertResult(0).String())
}

func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements(Table{Schema: "public", Name: "jobs"})
	joined := strings.Join(stmts, ";\n")

	assert.Contains(t, joined, "CREATE EXTENSION IF NOT EXISTS postgis")
	assert.Contains(t, joined, `CREATE UNIQUE INDEX IF NOT EXISTS "idx_jobs_job_id" ON "public"."jobs" (job_id)`)
	assert.Contains(t, joined, `USING GIST (location)`)
	assert.Contains(t, joined, "geometry(Point, 4326)")
	for _, stmt := range stmts {
		assert.Contains(t, stmt, "IF NOT EXISTS", "statement must be idempotent: %s", stmt)
	}
}

func TestParsePostGISVersion(t *testing.T) {
	assert.Equal(t, "3.4.2", parsePostGISVersion(`POSTGIS="3.4.2 c19ce56" [EXTENSION] PGSQL="160"`))
	assert.Equal(t, "unknown", parsePostGISVersion("unknown"))
}

func TestWriteError_Unwrap(t *testing.T) {
	cause := assert.AnError
	err := &WriteError{ExternalID: 42, Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "job 42")
}
