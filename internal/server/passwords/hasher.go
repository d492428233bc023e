// Package passwords hashes credentials and enforces the password policy
// applied on registration and password change.
package passwords

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns a password into an opaque hash and checks candidates
// against it.
type Hasher interface {
	Hash(password string) (string, error)
	// Compare returns ErrMismatch when password does not produce hash.
	Compare(hash, password string) error
}

var ErrMismatch = errors.New("password mismatch")

type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, or bcrypt.DefaultCost when
// cost is out of range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
