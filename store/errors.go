package store

import (
	"errors"
	"fmt"

	"github.com/kjk/todostore/idgen"
)

// ErrCapacityExceeded is returned by Create when id space is exhausted
var ErrCapacityExceeded = idgen.ErrCapacityExceeded

// NotFoundError is returned when there's no record with a given id
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no item with id: %s", e.ID)
}

// WriteError is returned when persisting a record failed
type WriteError struct {
	ID  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("error writing item %s: %s", e.ID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ReadError is returned when reading a record or listing the
// data directory failed. ID is empty for listing errors.
type ReadError struct {
	ID  string
	Err error
}

func (e *ReadError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("error listing items: %s", e.Err)
	}
	return fmt.Sprintf("error reading item %s: %s", e.ID, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// DirectoryUnavailableError is returned by Open when data directory
// doesn't exist and can't be created
type DirectoryUnavailableError struct {
	Dir string
	Err error
}

func (e *DirectoryUnavailableError) Error() string {
	return fmt.Sprintf("data directory '%s' unavailable: %s", e.Dir, e.Err)
}

func (e *DirectoryUnavailableError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if err is or wraps *NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
