package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the adapter and the session synchronizer
var (
	// ErrConfiguration is returned when required configuration (e.g. a signing secret) is missing
	ErrConfiguration = errors.New("configuration error")

	// ErrNotFound is returned when a referenced entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrRemoteOperation matches any failure reported by the query client
	ErrRemoteOperation = errors.New("remote operation failed")

	// ErrUnsupported is returned for filter operators the query client cannot express
	ErrUnsupported = errors.New("unsupported operation")
)

// RemoteError records which query client call failed.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRemoteOperation, e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is makes every RemoteError match ErrRemoteOperation
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteOperation
}

// Remote wraps a query client failure. A nil err stays nil.
func Remote(err error, op string) error {
	if err == nil {
		return nil
	}
	return &RemoteError{Op: op, Err: err}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
