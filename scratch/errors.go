package scratch

import (
	"fmt"

	"emperror.dev/errors"
)

type ErrorCode string

const (
	// ErrCodeCapacityExhausted is returned when the tree is physically full at
	// its minimum depth. The error is fatal to the Tree instance; callers must
	// construct a new Tree with a different root or a larger geometry.
	ErrCodeCapacityExhausted ErrorCode = "E_CAPACITY"
	// ErrCodeInvalidArgument is returned when a destroy target resolves outside
	// the tree root, or the entry on disk does not match the claimed kind.
	ErrCodeInvalidArgument ErrorCode = "E_BADARG"
	// ErrCodeIOError wraps any underlying filesystem failure. These are never
	// retried and no consistency repair is attempted.
	ErrCodeIOError ErrorCode = "E_IO"
	// ErrCodeInconsistentTree is returned when a listing encounters structure
	// that violates the expected depth or entry type.
	ErrCodeInconsistentTree ErrorCode = "E_INCONSISTENT"
)

type Error struct {
	code ErrorCode

	// path is the file or directory relevant to this error, if there is one.
	path string

	// err is the underlying cause, if any.
	err error
}

// newError returns a new tracked error wrapping the provided cause.
func newError(code ErrorCode, err error, path string) error {
	return errors.WithStackDepthIf(&Error{code: code, err: err, path: path}, 1)
}

func (e *Error) Code() ErrorCode {
	return e.code
}

func (e *Error) Error() string {
	switch e.code {
	case ErrCodeCapacityExhausted:
		return "scratch: tree has no space left for temporary entries"
	case ErrCodeInvalidArgument:
		if e.path != "" {
			return fmt.Sprintf("scratch: invalid target [%s]: not a member of the tree or kind mismatch", e.path)
		}
		return "scratch: invalid argument"
	case ErrCodeInconsistentTree:
		p := e.path
		if p == "" {
			p = "<unknown>"
		}
		return fmt.Sprintf("scratch: tree structure is inconsistent at [%s]", p)
	}
	if e.err != nil {
		return fmt.Sprintf("scratch: filesystem error: %s", e.err)
	}
	return "scratch: filesystem error"
}

func (e *Error) Unwrap() error {
	return e.err
}

// newInvalidArgument returns a new error for a destroy or stat target that is
// not an acceptable member of the tree.
func newInvalidArgument(path string) error {
	return errors.WithStackDepthIf(&Error{code: ErrCodeInvalidArgument, path: path}, 1)
}

// wrapIOError wraps an underlying filesystem error so it surfaces to callers
// with the IOError code while preserving the cause chain.
func wrapIOError(err error, path string) error {
	return errors.WithStackDepthIf(&Error{code: ErrCodeIOError, err: err, path: path}, 1)
}

// IsErrorCode checks if "err" is a scratch Error with the given code, even
// when the error is wrapped with additional stack context.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.code == code
	}
	return false
}
