package db

import "fmt"

// WriteError is a store rejection for a single row. It never aborts a batch.
type WriteError struct {
	ExternalID int64
	Cause      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to upsert job %d: %v", e.ExternalID, e.Cause)
}

func (e *WriteError) Unwrap() error {
	return e.Cause
}
