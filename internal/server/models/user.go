// Package models holds the persistent records of the identity store.
package models

import "time"

// User is a registered identity. NormalizedUserName is the unique
// comparison key; PasswordHash is owned by the password hasher.
type User struct {
	ID                 string
	UserName           string
	NormalizedUserName string
	Email              string
	FullName           string
	PasswordHash       string
	AccessFailedCount  int
	LockoutEnd         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsLockedOut reports whether the lockout window is still open at now.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// LockoutState is the failed-attempt bookkeeping returned by the store
// after a failed login.
type LockoutState struct {
	AccessFailedCount int
	LockoutEnd        *time.Time
}
