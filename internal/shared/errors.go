package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation, e.g. a duplicate role
	// assignment or a second grant row for the same (element, role) pair.
	ErrConflict = errors.New("already exists")
	// ErrInvalidOperation indicates a mutation rejected by a business rule,
	// e.g. revoking a principal's last remaining role.
	ErrInvalidOperation = errors.New("operation not allowed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
