package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidRange reports a missing, unparsable, or inverted date range.
	// No request is made when it is returned.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrMalformedResponse reports a success response without the required
	// attendance arrays.
	ErrMalformedResponse = errors.New("malformed attendance response")
)

// TransportError reports a failed request or a non-success status.
// Status is zero when no response was received.
type TransportError struct {
	Status  int
	Message string
	Err     error
}

// Error implements error.
func (e *TransportError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request failed: %s", e.Message)
	}
	return fmt.Sprintf("unexpected status %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Unwrap returns the underlying network error, if any.
func (e *TransportError) Unwrap() error {
	return e.Err
}
