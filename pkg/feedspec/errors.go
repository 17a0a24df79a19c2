package feedspec

import (
	"errors"
	"fmt"
)

// ErrorKind classifies feed errors into the taxonomy callers dispatch on.
type ErrorKind string

const (
	// ErrConfig covers invalid or missing configuration, including
	// duplicate feed registration.
	ErrConfig ErrorKind = "config"

	// ErrArgument covers invalid call arguments: bad page numbers,
	// empty user lists, blank user IDs.
	ErrArgument ErrorKind = "argument"

	// ErrTransport covers connection acquisition and network I/O failures.
	ErrTransport ErrorKind = "transport"

	// ErrTimeout covers deadline-exceeded sub-operations.
	ErrTimeout ErrorKind = "timeout"

	// ErrProvider covers unexpected replies from the backing store.
	ErrProvider ErrorKind = "provider"

	// ErrNotFound covers operations that require existing user state.
	ErrNotFound ErrorKind = "not_found"
)

// FeedError is the error type produced by feeds and providers.
// Configuration and argument errors are returned synchronously;
// per-user operation errors are captured inside a Response.
type FeedError struct {
	Kind    ErrorKind
	Op      string
	UserID  string
	Message string
	Err     error
}

func (e *FeedError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.UserID != "" {
		return fmt.Sprintf("feedspec: %s [%s] user %s: %s", e.Op, e.Kind, e.UserID, msg)
	}
	if e.Op != "" {
		return fmt.Sprintf("feedspec: %s [%s]: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("feedspec: [%s]: %s", e.Kind, msg)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a FeedError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var fe *FeedError
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

func newError(kind ErrorKind, op, userID, format string, args ...interface{}) *FeedError {
	return &FeedError{Kind: kind, Op: op, UserID: userID, Message: fmt.Sprintf(format, args...)}
}

func configError(format string, args ...interface{}) *FeedError {
	return newError(ErrConfig, "", "", format, args...)
}

func argumentError(op, format string, args ...interface{}) *FeedError {
	return newError(ErrArgument, op, "", format, args...)
}

func wrapError(kind ErrorKind, op, userID string, err error) *FeedError {
	return &FeedError{Kind: kind, Op: op, UserID: userID, Err: err}
}
