package model

import (
	"context"
	"errors"
	"fmt"
)

// Completer sends a single user prompt to a chat-completion service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// StatusError is returned when the completion service answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d - %s", e.Code, e.Body)
}

// Retryable reports whether the request may succeed if sent again.
func (e *StatusError) Retryable() bool {
	return e.Code == 429 || e.Code >= 500
}

// TransportError wraps failures that happened before a usable response was read:
// network errors, timeouts, malformed bodies.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func isRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, errMalformed)
	}
	return false
}

var errMalformed = errors.New("malformed completion response")
