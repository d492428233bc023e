// Package services contains server-side business logic: credential
// verification with lockout, role assignment, and the registration and
// profile flows that end in a freshly issued token.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/logging"
	"github.com/dmitrijs2005/gophidentity/internal/server/config"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
	"github.com/dmitrijs2005/gophidentity/internal/server/passwords"
	"github.com/dmitrijs2005/gophidentity/internal/server/repositories/repomanager"
)

// CredentialVerifier checks a username/password pair and maintains the
// failed-attempt counter and lockout window of the identity.
type CredentialVerifier struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	hasher          passwords.Hasher
	maxAttempts     int
	lockoutDuration time.Duration
	now             func() time.Time
	log             logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewCredentialVerifier(db *sql.DB, m repomanager.RepositoryManager, hasher passwords.Hasher, cfg *config.Config, log logging.Logger) *CredentialVerifier {
	return &CredentialVerifier{
		db:              db,
		repomanager:     m,
		hasher:          hasher,
		maxAttempts:     cfg.LockoutMaxFailedAttempts,
		lockoutDuration: cfg.LockoutDuration,
		now:             time.Now,
		log:             log.With("module", "credentials"),
	}
}

// WithClock replaces the time source used for lockout decisions.
func (v *CredentialVerifier) WithClock(now func() time.Time) *CredentialVerifier {
	v.now = now
	return v
}

// Verify returns the identity when password matches. Unknown users and wrong
// passwords both yield common.ErrInvalidCredentials. While the lockout
// window is open every attempt fails with common.ErrAccountLocked, and so
// does the failed attempt that opens it.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*models.User, error) {
	name := common.NormalizeName(username)
	if name == "" {
		return nil, common.ErrInvalidCredentials
	}

	repo := v.repomanager.Users(v.db)

	user, err := repo.GetUserByLogin(ctx, name)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn a comparison so unknown names cost the same as known ones
			_ = v.hasher.Compare(v.placeholderHash(), password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	now := v.now()
	if user.IsLockedOut(now) {
		return nil, common.ErrAccountLocked
	}

	err = v.hasher.Compare(user.PasswordHash, password)
	if errors.Is(err, passwords.ErrMismatch) {
		return nil, v.recordFailure(ctx, user, now)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	if user.AccessFailedCount > 0 || user.LockoutEnd != nil {
		if err := repo.ResetLockout(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}
		user.AccessFailedCount = 0
		user.LockoutEnd = nil
	}

	return user, nil
}

func (v *CredentialVerifier) recordFailure(ctx context.Context, user *models.User, now time.Time) error {
	state, err := v.repomanager.Users(v.db).RecordFailedAttempt(ctx, user.ID, v.maxAttempts, now.Add(v.lockoutDuration))
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	if state.LockoutEnd != nil && state.LockoutEnd.After(now) {
		v.log.Warn(ctx, "account locked", "user_id", user.ID, "until", *state.LockoutEnd)
		return common.ErrAccountLocked
	}

	return common.ErrInvalidCredentials
}

func (v *CredentialVerifier) placeholderHash() string {
	v.dummyOnce.Do(func() {
		h, err := v.hasher.Hash("placeholder-password")
		if err == nil {
			v.dummyHash = h
		}
	})
	return v.dummyHash
}
