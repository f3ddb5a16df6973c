// Package pipeline wires sources, normalization, coordinate validation and the
// store into one ingestion run.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/jobgeo/internal/db"
	"github.com/jonathan/jobgeo/internal/geo"
	"github.com/jonathan/jobgeo/internal/logger"
	"github.com/jonathan/jobgeo/internal/normalize"
	"github.com/jonathan/jobgeo/internal/report"
	"github.com/jonathan/jobgeo/internal/types"
)

// Store is the write side of the job table.
type Store interface {
	UpsertJob(ctx context.Context, rec *types.JobRecord) (db.UpsertResult, error)
}

// ProgressEvent is emitted every ProgressEvery records and once per page.
type ProgressEvent struct {
	Step    string       `json:"step"`
	Message string       `json:"message"`
	RunID   string       `json:"run_id,omitempty"`
	Counts  report.Tally `json:"counts"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Pipeline processes raw records one at a time. Records are written in the
// order they are handed in, so the last record for a job_id wins.
type Pipeline struct {
	store    Store
	log      *logger.Logger
	recorder *report.Recorder

	onProgress    ProgressCallback
	progressEvery int64
}

type Option func(*Pipeline)

// WithProgress registers a callback fired every n records.
func WithProgress(n int64, cb ProgressCallback) Option {
	return func(p *Pipeline) {
		if n > 0 && cb != nil {
			p.progressEvery = n
			p.onProgress = cb
		}
	}
}

func New(store Store, recorder *report.Recorder, log *logger.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	p := &Pipeline{
		store:    store,
		log:      log.With("run_id", recorder.RunID().String()),
		recorder: recorder,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Recorder returns the run's recorder.
func (p *Pipeline) Recorder() *report.Recorder {
	return p.recorder
}

// Process normalizes, validates and upserts one raw record. Failures are
// recorded on the run and never returned; the returned tally is what the record
// contributed to the run totals.
func (p *Pipeline) Process(ctx context.Context, raw types.RawRecord) report.Tally {
	t := report.Tally{TotalSeen: 1}
	defer func() { p.merge(t) }()

	rec, err := normalize.Record(raw)
	if err != nil {
		t.NormalizedFailed++
		p.recorder.Fail(report.Failure{Ref: raw.Ref, Stage: report.StageNormalize, Reason: err.Error()})
		p.log.Warn("Record rejected", "ref", raw.Ref, "source", string(raw.Kind), "error", err)
		return t
	}
	t.NormalizedOK++

	outcome := geo.Apply(rec)
	if outcome.Geolocatable {
		t.Geolocatable++
	} else {
		t.NotGeolocatable++
		p.log.Debug("Record not geolocatable", "job_id", rec.ExternalID, "reason", outcome.Reason)
	}

	res, err := p.store.UpsertJob(ctx, rec)
	if err != nil {
		t.WriteFailed++
		p.recorder.Fail(report.Failure{ExternalID: rec.ExternalID, Ref: raw.Ref, Stage: report.StageWrite, Reason: writeReason(err)})
		p.log.Error("Upsert failed", "job_id", rec.ExternalID, "error", err)
		return t
	}
	t.Upserted++
	switch res {
	case db.Inserted:
		t.Inserted++
	case db.Updated:
		t.Updated++
	}
	return t
}

func (p *Pipeline) merge(t report.Tally) {
	p.recorder.Merge(t)
	if p.onProgress == nil {
		return
	}
	counts := p.recorder.Summary().Counts
	if counts.TotalSeen%p.progressEvery == 0 {
		p.onProgress(ProgressEvent{
			Step:    "records",
			Message: fmt.Sprintf("%d records processed", counts.TotalSeen),
			RunID:   p.recorder.RunID().String(),
			Counts:  counts,
		})
	}
}

func writeReason(err error) string {
	var we *db.WriteError
	if errors.As(err, &we) && we.Cause != nil {
		return we.Cause.Error()
	}
	return err.Error()
}
