// Package storage provides the object storage backends artifacts are
// published to.
package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUploadFailed = errors.New("upload failed")
	ErrStatFailed   = errors.New("stat failed")
)

// ObjectStorage is the subset of a bucket API the publisher needs. Upload
// must be an atomic single-object put: readers see the whole object or none.
type ObjectStorage interface {
	// Upload copies the file at localPath to objectPath, replacing any
	// existing object.
	Upload(ctx context.Context, localPath, objectPath string) error

	// Exists reports whether objectPath is readable.
	Exists(ctx context.Context, objectPath string) (bool, error)
}

// Error is returned by every backend. Permanent marks failures a retry
// cannot fix (credentials, permissions, missing bucket or source file).
type Error struct {
	Op        error
	Key       string
	Permanent bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Op, e.Err}
}

// Temporary reports whether retrying the same call may succeed.
func (e *Error) Temporary() bool {
	return !e.Permanent
}
