package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/dbx"
	"github.com/dmitrijs2005/gophidentity/internal/logging"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
	"github.com/dmitrijs2005/gophidentity/internal/server/repositories/repomanager"
)

// RoleService creates roles and manages which identities hold them.
type RoleService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewRoleService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *RoleService {
	return &RoleService{db: db, repomanager: m, log: log.With("module", "roles")}
}

// CreateRole stores a new role and returns its id.
func (s *RoleService) CreateRole(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: role name is empty", common.ErrInvalidInput)
	}

	role, err := s.repomanager.Roles(s.db).Create(ctx, &models.Role{
		Name:           name,
		NormalizedName: common.NormalizeName(name),
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return "", common.ErrDuplicateRole
		}
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	s.log.Info(ctx, "role created", "role", role.Name, "role_id", role.ID)
	return role.ID, nil
}

// EnsureRole creates the role unless a role with the same normalized name
// already exists.
func (s *RoleService) EnsureRole(ctx context.Context, name string) error {
	_, err := s.CreateRole(ctx, name)
	if errors.Is(err, common.ErrDuplicateRole) {
		return nil
	}
	return err
}

// GrantRole adds the identity named email to roleName. Granting a held role
// succeeds without change.
func (s *RoleService) GrantRole(ctx context.Context, email, roleName string) error {
	return s.changeMembership(ctx, email, roleName, true)
}

// RevokeRole removes the identity named email from roleName. Revoking a role
// that is not held succeeds without change.
func (s *RoleService) RevokeRole(ctx context.Context, email, roleName string) error {
	return s.changeMembership(ctx, email, roleName, false)
}

func (s *RoleService) changeMembership(ctx context.Context, email, roleName string, grant bool) error {
	userName := common.NormalizeName(email)
	if userName == "" {
		return common.ErrUnknownIdentity
	}
	normalizedRole := common.NormalizeName(roleName)
	if normalizedRole == "" {
		return common.ErrUnknownRole
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repomanager.Users(tx).GetUserByLogin(ctx, userName)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUnknownIdentity
			}
			return fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}

		roles := s.repomanager.Roles(tx)

		role, err := roles.GetByName(ctx, normalizedRole)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUnknownRole
			}
			return fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}

		if grant {
			err = roles.AddUserToRole(ctx, user.ID, role.ID)
		} else {
			err = roles.RemoveUserFromRole(ctx, user.ID, role.ID)
		}
		if err != nil {
			return fmt.Errorf("%w: %w", common.ErrorInternal, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "role membership changed", "user", userName, "role", normalizedRole, "granted", grant)
	return nil
}

// RolesOf returns the role names held by userID in ascending order.
func (s *RoleService) RolesOf(ctx context.Context, userID string) ([]string, error) {
	names, err := s.repomanager.Roles(s.db).RolesOf(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return names, nil
}

func (s *RoleService) ListRoles(ctx context.Context) ([]models.Role, error) {
	list, err := s.repomanager.Roles(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return list, nil
}
