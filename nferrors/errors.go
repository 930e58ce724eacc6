// Package nferrors is the error taxonomy of the filesystem: the bitmap
// allocator and the storage engine report failures as a DriverError
// wrapping the syscall.Errno that the FUSE bridge hands back to the kernel.
package nferrors

import (
	"fmt"
	"syscall"
)

// DriverError is a wrapper around a system errno code, with an optional
// customized error message.
type DriverError struct {
	ErrnoCode syscall.Errno
	message   string
}

// Error implements the `error` interface.
func (e *DriverError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.ErrnoCode.Error()
}

// Unwrap lets errors.Is/errors.As see through to the underlying errno.
func (e *DriverError) Unwrap() error {
	return e.ErrnoCode
}

// Negated returns the negative errno value the operation table in the
// filesystem's external interface uses on failure (e.g. -2 for ENOENT).
func (e *DriverError) Negated() int {
	return -int(e.ErrnoCode)
}

// New creates a DriverError with a default message derived from errnoCode.
func New(errnoCode syscall.Errno) *DriverError {
	return &DriverError{ErrnoCode: errnoCode, message: errnoCode.Error()}
}

// NewWithMessage creates a DriverError from errnoCode with a custom message.
func NewWithMessage(errnoCode syscall.Errno, message string) *DriverError {
	return &DriverError{
		ErrnoCode: errnoCode,
		message:   fmt.Sprintf("%s: %s", errnoCode.Error(), message),
	}
}

// AsErrno reports the negated errno for err, or 0 if err is nil, or -EIO if
// err isn't a DriverError. Bridges and CLI tools use this to turn an error
// into the integer status their caller expects.
func AsErrno(err error) int {
	if err == nil {
		return 0
	}
	if de, ok := err.(*DriverError); ok {
		return de.Negated()
	}
	return -int(syscall.EIO)
}

// The errno codes the filesystem's operations are documented to return.
// These are plain aliases of the standard syscall constants, named here so
// callers don't need to import syscall directly just to compare error codes.
const (
	ENOENT    = syscall.ENOENT
	ENOTDIR   = syscall.ENOTDIR
	EISDIR    = syscall.EISDIR
	EACCES    = syscall.EACCES
	EDQUOT    = syscall.EDQUOT
	EINVAL    = syscall.EINVAL
	EALREADY  = syscall.EALREADY
	ENOTEMPTY = syscall.ENOTEMPTY
	EIO       = syscall.EIO
	EEXIST    = syscall.EEXIST
)
