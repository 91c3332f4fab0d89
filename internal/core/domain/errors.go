package domain

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrNotParticipant    = errors.New("user is not part of this connection")
	ErrStaleState        = errors.New("response superseded by a newer state")
	ErrPersistence       = errors.New("persistence failure")

	// Matched by RemoteError through errors.Is.
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBadRequest   = errors.New("bad request")
)

// ValidationError reports bad input detected before any remote call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// ValidationErrors aggregates several field failures.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// RemoteError is a rejection from a remote operation. Code follows HTTP status
// semantics; Error returns the backend message verbatim so it can be shown to users.
type RemoteError struct {
	Op      string
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Is maps the status code onto the package sentinels.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrConflict:
		return e.Code == http.StatusConflict
	case ErrBadRequest:
		return e.Code == http.StatusBadRequest
	}
	return false
}

// NewRemoteError builds a RemoteError.
func NewRemoteError(op string, code int, msg string) *RemoteError {
	return &RemoteError{Op: op, Code: code, Message: msg}
}

// IsValidation reports whether err is (or wraps) a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}

// Message extracts the user-facing message of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var ves ValidationErrors
	if errors.As(err, &ves) {
		return ves.Error()
	}
	return err.Error()
}
