// Package errors provides common error handling for the application.
// It wraps github.com/pkg/errors so call sites get stack traces and
// printf-style message formatting from a single import.
package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// New returns an error with the supplied message and a stack trace.
// The message is formatted when arguments are given.
func New(format string, args ...interface{}) error {
	if len(args) == 0 {
		return errors.New(format)
	}
	return errors.Errorf(format, args...)
}

// Wrap returns an error annotating err with a stack trace and message.
// Returns nil if err is nil.
func Wrap(err error, format string, args ...interface{}) error {
	if len(args) == 0 {
		return errors.Wrap(err, format)
	}
	return errors.Wrapf(err, format, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Cause returns the underlying cause of the error, if possible.
func Cause(err error) error {
	return errors.Cause(err)
}

// Sentinel is a constant-compatible error type for package-level sentinels.
type Sentinel string

func (s Sentinel) Error() string {
	return string(s)
}

// Sentinelf formats a Sentinel error.
func Sentinelf(format string, args ...interface{}) Sentinel {
	return Sentinel(fmt.Sprintf(format, args...))
}
