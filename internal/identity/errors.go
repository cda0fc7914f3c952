// Package identity is the authentication backend: email/password accounts,
// signed session tokens and the per-client auth binding that tracks who is
// signed in.
package identity

import "errors"

// Failure classes reported by the identity backend.
var (
	ErrEmailInUse        = errors.New("identity: email already in use")
	ErrWeakPassword      = errors.New("identity: weak password")
	ErrPasswordTooLong   = errors.New("identity: password must be 72 bytes or fewer")
	ErrInvalidEmail      = errors.New("identity: invalid email")
	ErrUserNotFound      = errors.New("identity: user not found")
	ErrWrongPassword     = errors.New("identity: wrong password")
	ErrInvalidCredential = errors.New("identity: invalid credential")
	ErrTooManyRequests   = errors.New("identity: too many requests")
	ErrInvalidToken      = errors.New("identity: invalid token")
	ErrTokenExpired      = errors.New("identity: token expired")
	ErrNotSignedIn       = errors.New("identity: not signed in")
)
