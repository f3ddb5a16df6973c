package pipeline

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobgeo/internal/report"
	"github.com/jonathan/jobgeo/internal/types"
)

func newTestPipeline(store Store, opts ...Option) *Pipeline {
	return New(store, report.NewRecorder(string(types.SourceFile)), nil, opts...)
}

func fileRow(ref string, kv ...string) types.RawRecord {
	row := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		row[kv[i]] = kv[i+1]
	}
	return types.FileRecord(ref, row)
}

func TestProcess_StockholmRow(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(store)

	tally := p.Process(context.Background(), fileRow("row 1",
		"job_id", "29500001",
		"title", "Backend-utvecklare",
		"workplace_municipality", "Stockholm",
		"workplace_longitude", "18.0686",
		"workplace_latitude", "59.3293",
	))

	assert.Equal(t, report.Tally{TotalSeen: 1, NormalizedOK: 1, Geolocatable: 1, Upserted: 1, Inserted: 1}, tally)
	row, ok := store.row(29500001)
	require.True(t, ok)
	require.NotNil(t, row.Lon)
	require.NotNil(t, row.Lat)
	assert.InDelta(t, 18.0686, *row.Lon, 1e-9)
	assert.InDelta(t, 59.3293, *row.Lat, 1e-9)
	assert.True(t, row.Geolocatable)
	assert.Equal(t, "Stockholm", *row.Municipality)
}

func TestProcess_ZeroZeroIsGeolocatable(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(store)

	tally := p.Process(context.Background(), fileRow("row 1", "job_id", "7", "workplace_longitude", "0", "workplace_latitude", "0"))

	assert.Equal(t, int64(1), tally.Geolocatable)
	row, _ := store.row(7)
	require.NotNil(t, row.Lon)
	assert.Equal(t, 0.0, *row.Lon)
	assert.True(t, row.Geolocatable)
}

func TestProcess_NotGeolocatableStillWritten(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat string
	}{
		{"absent", "", ""},
		{"partial", "18.0", ""},
		{"lon out of range", "200", "59"},
		{"lat out of range", "18", "-91"},
		{"unparseable", "east", "north"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			p := newTestPipeline(store)
			id := int64(100 + i)

			tally := p.Process(context.Background(), fileRow("row 1",
				"job_id", strconv.FormatInt(id, 10),
				"title", "Lagerarbetare",
				"workplace_longitude", tt.lon,
				"workplace_latitude", tt.lat,
			))

			assert.Equal(t, int64(1), tally.NotGeolocatable)
			assert.Equal(t, int64(1), tally.Upserted)
			row, ok := store.row(id)
			require.True(t, ok, "row is written without geometry")
			assert.False(t, row.Geolocatable)
			assert.Nil(t, row.Lon)
			assert.Nil(t, row.Lat)
			assert.Equal(t, "Lagerarbetare", *row.Title)
		})
	}
}

func TestProcess_NormalizationFailure(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(store)

	tally := p.Process(context.Background(), fileRow("row 9", "title", "no id"))

	assert.Equal(t, report.Tally{TotalSeen: 1, NormalizedFailed: 1}, tally)
	assert.Zero(t, store.count())
	sum := p.Recorder().Summary()
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, "row 9", sum.Failures[0].Ref)
	assert.Equal(t, report.StageNormalize, sum.Failures[0].Stage)
}

func TestProcess_WriteFailureContinues(t *testing.T) {
	store := newMemStore()
	store.fail[2] = errConnReset
	p := newTestPipeline(store)

	for _, id := range []string{"1", "2", "3"} {
		p.Process(context.Background(), fileRow("row "+id, "job_id", id))
	}

	sum := p.Recorder().Summary()
	assert.Equal(t, int64(3), sum.Counts.TotalSeen)
	assert.Equal(t, int64(2), sum.Counts.Upserted)
	assert.Equal(t, int64(1), sum.Counts.WriteFailed)
	assert.Equal(t, int64(1), sum.Counts.Failed())
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, int64(2), sum.Failures[0].ExternalID)
	assert.Equal(t, report.StageWrite, sum.Failures[0].Stage)
	assert.Equal(t, errConnReset.Error(), sum.Failures[0].Reason)
	assert.Equal(t, 2, store.count())
}

func TestProcess_Idempotent(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(store)
	raw := fileRow("row 1", "job_id", "42", "title", "Kock", "workplace_longitude", "11.97", "workplace_latitude", "57.70")

	first := p.Process(context.Background(), raw)
	before, _ := store.row(42)
	second := p.Process(context.Background(), raw)
	after, _ := store.row(42)

	assert.Equal(t, int64(1), first.Inserted)
	assert.Equal(t, int64(1), second.Updated)
	assert.Equal(t, 1, store.count())
	assert.Equal(t, before, after)
}

func TestProcess_ConvergesOnLastWrite(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(store)

	p.Process(context.Background(), fileRow("row 1", "job_id", "42", "title", "Kock", "workplace_longitude", "11.97", "workplace_latitude", "57.70"))
	p.Process(context.Background(), fileRow("row 2", "job_id", "42", "title", "Souschef", "workplace_longitude", "", "workplace_latitude", ""))

	row, _ := store.row(42)
	assert.Equal(t, 1, store.count())
	assert.Equal(t, "Souschef", *row.Title)
	assert.Nil(t, row.Lon, "geometry follows the last write")
	assert.False(t, row.Geolocatable)
}

func TestProcess_Counters(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(store)

	rows := []types.RawRecord{
		fileRow("row 1", "job_id", "1", "workplace_longitude", "18", "workplace_latitude", "59"),
		fileRow("row 2", "job_id", "2"),
		fileRow("row 3", "job_id", "x"),
		fileRow("row 4", "job_id", "4", "workplace_longitude", "500", "workplace_latitude", "59"),
	}
	for _, r := range rows {
		p.Process(context.Background(), r)
	}

	c := p.Recorder().Summary().Counts
	assert.Equal(t, int64(4), c.TotalSeen)
	assert.Equal(t, c.TotalSeen, c.NormalizedOK+c.NormalizedFailed)
	assert.Equal(t, c.NormalizedOK, c.Geolocatable+c.NotGeolocatable)
	assert.Equal(t, c.NormalizedOK, c.Upserted+c.WriteFailed)
	assert.Equal(t, int64(1), c.Geolocatable)
}

func TestProcess_ProgressCallback(t *testing.T) {
	var events []ProgressEvent
	p := newTestPipeline(newMemStore(), WithProgress(2, func(e ProgressEvent) {
		events = append(events, e)
	}))

	for _, id := range []string{"1", "2", "3", "4", "5"} {
		p.Process(context.Background(), fileRow("row "+id, "job_id", id))
	}

	require.Len(t, events, 2)
	assert.Equal(t, "records", events[0].Step)
	assert.Equal(t, int64(4), events[1].Counts.TotalSeen)
	assert.Equal(t, p.Recorder().RunID().String(), events[0].RunID)
}
