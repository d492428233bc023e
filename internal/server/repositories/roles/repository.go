package roles

import (
	"context"

	"github.com/dmitrijs2005/gophidentity/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, role *models.Role) (*models.Role, error)
	GetByName(ctx context.Context, normalizedName string) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	AddUserToRole(ctx context.Context, userID, roleID string) error
	RemoveUserFromRole(ctx context.Context, userID, roleID string) error
	RolesOf(ctx context.Context, userID string) ([]string, error)
}
