package authcore

import (
	"errors"
	"fmt"
)

// Sentinel causes. User-visible failures wrap one of these inside an *AuthError.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrNotAuthenticated   = errors.New("not authenticated")

	// ErrRecordNotFound is returned by directory stores when a lookup matches nothing.
	ErrRecordNotFound = errors.New("directory record not found")

	// ErrDirectoryConflict matches a *DirectoryWriteError caused by a unique constraint.
	ErrDirectoryConflict = errors.New("directory record conflict")
)

// Error codes rendered to clients
const (
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeEmailExists        = "email_exists"
	ErrCodeNotAuthenticated   = "not_authenticated"
	ErrCodeDirectoryWrite     = "directory_write_failed"
	ErrCodeInvalidClaims      = "invalid_claims"
	ErrCodeMissingField       = "missing_field"
	ErrCodeInvalidEmail       = "invalid_email"
	ErrCodeWeakPassword       = "weak_password"
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeInternal           = "internal_error"
)

// AuthError is a structured, user-visible failure. Code, Message and Field are
// safe to send to clients; Err carries the internal cause and is never rendered.
type AuthError struct {
	Code    string
	Message string
	Field   string
	Err     error
}

// NewAuthError creates an AuthError without an internal cause.
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// DirectoryWriteError reports a failed directory insert. Body holds the remote
// diagnostic text as returned by the directory.
type DirectoryWriteError struct {
	Status   int
	Body     string
	Conflict bool
	Err      error
}

func (e *DirectoryWriteError) Error() string {
	msg := "directory write failed"
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DirectoryWriteError) Unwrap() error { return e.Err }

func (e *DirectoryWriteError) Is(target error) bool {
	return target == ErrDirectoryConflict && e.Conflict
}

func invalidCredentials(cause error) *AuthError {
	return &AuthError{
		Code:    ErrCodeInvalidCredentials,
		Message: "Invalid email or password",
		Err:     fmt.Errorf("%w: %w", ErrInvalidCredentials, cause),
	}
}

func emailExists(cause error) *AuthError {
	err := ErrEmailAlreadyExists
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrEmailAlreadyExists, cause)
	}
	return &AuthError{
		Code:    ErrCodeEmailExists,
		Message: "An account with this email already exists",
		Field:   "email",
		Err:     err,
	}
}

func directoryWriteFailed(err error) *AuthError {
	return &AuthError{
		Code:    ErrCodeDirectoryWrite,
		Message: err.Error(),
		Err:     err,
	}
}
