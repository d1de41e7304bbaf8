package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMoreContent reports that the remote returned an empty page, which
	// ends pagination for the task early regardless of the announced count.
	ErrNoMoreContent = errors.New("no more content")

	// ErrSinkFailure marks persistence failures surfaced by the batch saver.
	ErrSinkFailure = errors.New("sink failure")
)

type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport: %v", e.Err)
	}
	return fmt.Sprintf("transport: HTTP %d", e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "parse: " + e.Reason }
