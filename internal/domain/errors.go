package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied marks store operations rejected by the
	// backend's security rules.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound marks a missing remote document.
	ErrNotFound = errors.New("not found")

	// ErrNoIdentity is returned by operations that require a signed-in
	// user.
	ErrNoIdentity = errors.New("no authenticated identity")

	// ErrSystemContact is returned when a caller tries to remove a
	// built-in bot from the roster.
	ErrSystemContact = errors.New("system contacts cannot be removed")
)

// AuthReason is a machine-readable sign-in/sign-up failure code.
type AuthReason string

const (
	AuthReasonInvalidUIN  AuthReason = "invalid-uin"
	AuthReasonUnavailable AuthReason = "network-unavailable"
)

// AuthError is the identity provider's error surface.
type AuthError struct {
	Reason AuthReason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("auth: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }
