package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/jonathan/jobgeo/internal/db"
	"github.com/jonathan/jobgeo/internal/types"
)

// memStore keeps one row per external id, like the unique index on job_id.
type memStore struct {
	mu     sync.Mutex
	rows   map[int64]types.JobRecord
	writes []int64
	fail   map[int64]error
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]types.JobRecord{}, fail: map[int64]error{}}
}

func (s *memStore) UpsertJob(ctx context.Context, rec *types.JobRecord) (db.UpsertResult, error) {
	if err := ctx.Err(); err != nil {
		return 0, &db.WriteError{ExternalID: rec.ExternalID, Cause: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.fail[rec.ExternalID]; ok {
		return 0, &db.WriteError{ExternalID: rec.ExternalID, Cause: err}
	}
	s.writes = append(s.writes, rec.ExternalID)
	_, exists := s.rows[rec.ExternalID]
	s.rows[rec.ExternalID] = *rec
	if exists {
		return db.Updated, nil
	}
	return db.Inserted, nil
}

func (s *memStore) row(id int64) (types.JobRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	return r, ok
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

var errConnReset = errors.New("connection reset by peer")
