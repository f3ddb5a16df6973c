package pipeline

import "fmt"

// SetupError is a failure that prevents any record from being processed: the
// store is unreachable, the source file is missing or unreadable, the override
// payload is malformed or the remote API never answered.
type SetupError struct {
	Op    string
	Cause error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup failed: %s: %v", e.Op, e.Cause)
}

func (e *SetupError) Unwrap() error {
	return e.Cause
}

// Setup wraps err as a SetupError. It returns nil for a nil err.
func Setup(op string, err error) error {
	if err == nil {
		return nil
	}
	return &SetupError{Op: op, Cause: err}
}
