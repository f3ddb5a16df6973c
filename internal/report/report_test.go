package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobgeo/internal/logger"
)

func TestRecorder_ConcurrentMerge(t *testing.T) {
	r := NewRecorder("api")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Merge(Tally{TotalSeen: 1, Upserted: 1})
			if i%10 == 0 {
				r.Merge(Tally{FetchFailed: 1})
				r.Fail(Failure{Ref: "x", Stage: StageDetail, Reason: "boom"})
			}
		}(i)
	}
	wg.Wait()

	s := r.Summary()
	assert.Equal(t, int64(50), s.Counts.TotalSeen)
	assert.Equal(t, int64(50), s.Counts.Upserted)
	assert.Equal(t, int64(5), s.Counts.FetchFailed)
	assert.Len(t, s.Failures, 5)
	assert.Equal(t, "api", s.Source)
	assert.Equal(t, r.RunID().String(), s.RunID)
}

func TestSummary_IsSnapshot(t *testing.T) {
	r := NewRecorder("file")
	r.Fail(Failure{ExternalID: 1, Stage: StageWrite, Reason: "first"})

	s := r.Summary()
	r.Fail(Failure{ExternalID: 2, Stage: StageWrite, Reason: "second"})
	r.Merge(Tally{WriteFailed: 2})

	assert.Len(t, s.Failures, 1)
	assert.Equal(t, int64(0), s.Counts.WriteFailed)
}

func TestTally_Failed(t *testing.T) {
	tally := Tally{NormalizedFailed: 1, WriteFailed: 2, FetchFailed: 3, DetailNotFound: 9}
	assert.Equal(t, int64(6), tally.Failed())
}

func TestSummary_JSONAndString(t *testing.T) {
	r := NewRecorder("file")
	r.Merge(Tally{TotalSeen: 3, NormalizedOK: 2, NormalizedFailed: 1, Upserted: 2, Inserted: 1, Updated: 1})
	r.Fail(Failure{Ref: "row 4", Stage: StageNormalize, Reason: "missing external id"})

	s := r.Summary()
	data, err := s.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	counts := decoded["counts"].(map[string]any)
	assert.Equal(t, float64(2), counts["upserted"])
	assert.Len(t, decoded["failures"], 1)

	assert.Contains(t, s.String(), "upserted=2 (inserted=1 updated=1) failed=1")
}

func TestSummary_WriteTextfile(t *testing.T) {
	s := Summary{
		Source:     "api",
		FinishedAt: time.Unix(1700000000, 0),
		Duration:   2 * time.Second,
		Counts:     Tally{TotalSeen: 5, Upserted: 4, FetchFailed: 1, PagesFetched: 1},
	}

	path := filepath.Join(t.TempDir(), "jobgeo.prom")
	require.NoError(t, s.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `jobgeo_ingest_records{outcome="upserted",source="api"} 4`), text)
	assert.True(t, strings.Contains(text, `jobgeo_ingest_pages{outcome="fetched",source="api"} 1`), text)
	assert.True(t, strings.Contains(text, `jobgeo_ingest_duration_seconds{source="api"} 2`), text)
}

func TestSummary_Log(t *testing.T) {
	s := Summary{Failures: []Failure{{ExternalID: 3, Stage: StageDetail, Reason: "timeout"}}}
	s.Log(logger.Nop())
}
