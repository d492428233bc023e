// Package common defines shared constants and sentinel errors used across
// client and server layers of gophidentity. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConfiguration  = errors.New("configuration error")

	// Credential errors. ErrInvalidCredentials never says which factor failed.
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrAccountLocked        = errors.New("account locked")
	ErrUsernameTaken        = errors.New("username already taken")
	ErrWeakCredential       = errors.New("password does not satisfy policy")
	ErrWrongCurrentPassword = errors.New("current password is incorrect")

	// Role errors.
	ErrDuplicateRole   = errors.New("role already exists")
	ErrUnknownRole     = errors.New("unknown role")
	ErrUnknownIdentity = errors.New("unknown identity")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)
