package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/server/models"
)

// Repository is the identity store. Lookups by name take the normalized
// form (see common.NormalizeName).
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByLogin(ctx context.Context, normalizedUserName string) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error
	RecordFailedAttempt(ctx context.Context, id string, maxAttempts int, lockoutEnd time.Time) (models.LockoutState, error)
	ResetLockout(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
