package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Run statuses recorded in the ingest run log.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// StartRun records the beginning of an ingestion run.
func (db *DB) StartRun(ctx context.Context, runID uuid.UUID, source string) error {
	_, err := db.pool.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (run_id, source, status) VALUES ($1, $2, $3)
		 ON CONFLICT (run_id) DO NOTHING`, db.table.runsIdent()),
		runID, source, RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// FinishRun stores the final status and the JSON summary of a run.
func (db *DB) FinishRun(ctx context.Context, runID uuid.UUID, status string, summary any) error {
	jsonBytes, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET status = $1, summary = $2, completed_at = NOW() WHERE run_id = $3`,
			db.table.runsIdent()),
		status, jsonBytes, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}
