package etl

import (
	"fmt"
	"time"
)

// ExtractError aborts a run before anything was published.
type ExtractError struct {
	Err error
}

func (e *ExtractError) Error() string { return "extract: " + e.Err.Error() }
func (e *ExtractError) Unwrap() error { return e.Err }

type PublishKind int

const (
	// Transient failures (network, throttling) are retried by the Publisher.
	Transient PublishKind = iota
	// Terminal failures need an operator: permissions, credentials,
	// cancellation or exhausted retries.
	Terminal
)

func (k PublishKind) String() string {
	if k == Transient {
		return "transient"
	}
	return "terminal"
}

type PublishError struct {
	Kind     PublishKind
	Key      string
	Attempts int
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s (%s after %d attempt(s)): %v", e.Key, e.Kind, e.Attempts, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// PersistError means the artifact is already in the lake but the watermark
// could not be advanced. The next run republishes the same rows under a new
// key.
type PersistError struct {
	Watermark time.Time
	Key       string
	Err       error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist watermark %s (already published as %s): %v",
		e.Watermark.Format(time.RFC3339Nano), e.Key, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
