// Package report accumulates per-run counters and failures for an ingestion run.
package report

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stage names a pipeline stage a failure is attributed to.
type Stage string

const (
	StageSearch    Stage = "search"
	StageDetail    Stage = "detail"
	StageRead      Stage = "read"
	StageNormalize Stage = "normalize"
	StageWrite     Stage = "write"
)

// Failure identifies one record (or page) that did not make it into the store.
// ExternalID is zero when the identifier was never known.
type Failure struct {
	ExternalID int64  `json:"external_id,omitempty"`
	Ref        string `json:"ref,omitempty"`
	Stage      Stage  `json:"stage"`
	Reason     string `json:"reason"`
}

// Tally is a plain counter set. Stages build one per record or page and the
// Recorder merges them.
type Tally struct {
	TotalSeen        int64 `json:"total_seen"`
	NormalizedOK     int64 `json:"normalized_ok"`
	NormalizedFailed int64 `json:"normalized_failed"`
	Geolocatable     int64 `json:"geolocatable"`
	NotGeolocatable  int64 `json:"not_geolocatable"`
	Upserted         int64 `json:"upserted"`
	Inserted         int64 `json:"inserted"`
	Updated          int64 `json:"updated"`
	WriteFailed      int64 `json:"write_failed"`
	FetchFailed      int64 `json:"fetch_failed"`
	DetailNotFound   int64 `json:"detail_not_found"`
	PagesFetched     int64 `json:"pages_fetched"`
	PagesFailed      int64 `json:"pages_failed"`
}

// Add returns the field-wise sum of t and o.
func (t Tally) Add(o Tally) Tally {
	t.TotalSeen += o.TotalSeen
	t.NormalizedOK += o.NormalizedOK
	t.NormalizedFailed += o.NormalizedFailed
	t.Geolocatable += o.Geolocatable
	t.NotGeolocatable += o.NotGeolocatable
	t.Upserted += o.Upserted
	t.Inserted += o.Inserted
	t.Updated += o.Updated
	t.WriteFailed += o.WriteFailed
	t.FetchFailed += o.FetchFailed
	t.DetailNotFound += o.DetailNotFound
	t.PagesFetched += o.PagesFetched
	t.PagesFailed += o.PagesFailed
	return t
}

// Failed is the number of records that did not reach the store.
func (t Tally) Failed() int64 {
	return t.NormalizedFailed + t.WriteFailed + t.FetchFailed
}

// Recorder is the per-run accumulator. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	runID    uuid.UUID
	source   string
	started  time.Time
	now      func() time.Time
	tally    Tally
	failures []Failure
}

// NewRecorder starts a run for the given source label ("file" or "api").
func NewRecorder(source string) *Recorder {
	r := &Recorder{
		runID:  uuid.New(),
		source: source,
		now:    time.Now,
	}
	r.started = r.now()
	return r
}

// RunID identifies the run in logs and summaries.
func (r *Recorder) RunID() uuid.UUID {
	return r.runID
}

// Merge adds a tally to the run totals.
func (r *Recorder) Merge(t Tally) {
	r.mu.Lock()
	r.tally = r.tally.Add(t)
	r.mu.Unlock()
}

// Fail records an attributable failure. It does not touch counters; the caller
// merges the matching Tally.
func (r *Recorder) Fail(f Failure) {
	r.mu.Lock()
	r.failures = append(r.failures, f)
	r.mu.Unlock()
}

// Summary returns a snapshot of the run. The returned value shares no memory
// with the recorder.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	failures := make([]Failure, len(r.failures))
	copy(failures, r.failures)

	finished := r.now()
	return Summary{
		RunID:      r.runID.String(),
		Source:     r.source,
		StartedAt:  r.started,
		FinishedAt: finished,
		Duration:   finished.Sub(r.started),
		Counts:     r.tally,
		Failures:   failures,
	}
}

// Summary is the immutable end-of-run report.
type Summary struct {
	RunID      string        `json:"run_id"`
	Source     string        `json:"source"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
	Counts     Tally         `json:"counts"`
	Failures   []Failure     `json:"failures,omitempty"`
}

// JSON renders the summary for --summary-out.
func (s Summary) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run summary: %w", err)
	}
	return append(data, '\n'), nil
}

// String is a one-line human summary printed at the end of a run.
func (s Summary) String() string {
	c := s.Counts
	return fmt.Sprintf(
		"seen=%d normalized=%d geolocatable=%d not_geolocatable=%d upserted=%d (inserted=%d updated=%d) failed=%d",
		c.TotalSeen, c.NormalizedOK, c.Geolocatable, c.NotGeolocatable,
		c.Upserted, c.Inserted, c.Updated, c.Failed(),
	)
}
