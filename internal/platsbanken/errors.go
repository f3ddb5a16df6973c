package platsbanken

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// ErrNotFound is returned by Detail when the posting no longer exists.
var ErrNotFound = errors.New("platsbanken: job not found")

// ErrRemoteUnavailable is returned by Fetcher.Run when not a single search page
// could be fetched.
var ErrRemoteUnavailable = errors.New("platsbanken: search API unavailable")

// StatusError is a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("platsbanken: %s %s: http status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("platsbanken: %s %s: http status %d", e.Method, e.URL, e.StatusCode)
}

// DecodeError is a response body that is not the expected JSON document.
type DecodeError struct {
	URL   string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("platsbanken: decode %s: %v", e.URL, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// retryableStatus lists the server-side failures worth another attempt.
var retryableStatus = map[int]struct{}{
	http.StatusRequestTimeout:      {},
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// IsTransient reports whether err is a network failure, a timeout or a retryable
// HTTP status. Cancellation, other 4xx responses, not-found and undecodable bodies
// are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNotFound) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		_, ok := retryableStatus[statusErr.StatusCode]
		return ok
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}
