package service

import (
	"errors"

	"github.com/grmaxv/users_api/internal/repo"
	"github.com/grmaxv/users_api/internal/tokens"
)

var (
	// Validation failures, reported with a specific reason.
	ErrUsernameRequired = errors.New("username is required")
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrWeakPassword     = errors.New("password must be at least 8 characters")
	ErrUserExists       = errors.New("username or email already in use")
	ErrEmailUnknown     = errors.New("no account with that email")

	// Authentication failures. The HTTP layer surfaces all of them as a
	// uniform 401; the distinct values exist for logs and tests.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTokenMalformed     = tokens.ErrTokenMalformed
	ErrTokenExpired       = tokens.ErrTokenExpired
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrUnknownSubject     = errors.New("token subject does not exist")

	// Conflict: revocation is a one-time event per token.
	ErrAlreadyRevoked = repo.ErrAlreadyRevoked

	// Storage unavailable or otherwise broken. The only class a caller may
	// retry; never to be mistaken for an authentication failure.
	ErrInternal = errors.New("internal error")
)

// IsAuthFailure reports whether err belongs to the authentication class.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrUnknownSubject)
}
