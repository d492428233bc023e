package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/logging"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
	"github.com/dmitrijs2005/gophidentity/internal/server/passwords"
	"github.com/dmitrijs2005/gophidentity/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// TokenIssuer signs a session token for an identity and its roles.
type TokenIssuer interface {
	IssueToken(user *models.User, roles []string) (string, error)
}

// LoginResult is what a successful login hands back to the caller.
type LoginResult struct {
	Token string
	User  *models.User
	Roles []string
}

// UserService implements registration, login and the profile flows. Every
// flow that changes what a token would say ends by issuing a new one.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	verifier    *CredentialVerifier
	roles       *RoleService
	issuer      TokenIssuer
	hasher      passwords.Hasher
	policy      passwords.Policy
	log         logging.Logger
}

func NewUserService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	verifier *CredentialVerifier,
	roles *RoleService,
	issuer TokenIssuer,
	hasher passwords.Hasher,
	policy passwords.Policy,
	log logging.Logger,
) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		verifier:    verifier,
		roles:       roles,
		issuer:      issuer,
		hasher:      hasher,
		policy:      policy,
		log:         log.With("module", "users"),
	}
}

// Register creates an identity and returns a token for it. The new identity
// holds no roles yet.
func (s *UserService) Register(ctx context.Context, username, password, fullName string) (string, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return "", fmt.Errorf("%w: user name is empty", common.ErrInvalidInput)
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetUserByLogin(ctx, common.NormalizeName(name))
	switch {
	case err == nil:
		return "", common.ErrUsernameTaken
	case !errors.Is(err, common.ErrorNotFound):
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	if err := s.policy.Validate(name, password); err != nil {
		return "", err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	user, err := repo.Create(ctx, &models.User{
		UserName:           name,
		NormalizedUserName: common.NormalizeName(name),
		Email:              name,
		FullName:           strings.TrimSpace(fullName),
		PasswordHash:       hash,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return "", common.ErrUsernameTaken
		}
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)

	return s.issue(user, nil)
}

// Login verifies credentials and issues a token carrying the identity's
// current roles.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		return nil, err
	}

	roles, err := s.roles.RolesOf(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	token, err := s.issue(user, roles)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, User: user, Roles: roles}, nil
}

func (s *UserService) GetProfile(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, id)
}

// UpdateProfile renames the identity and changes its display name, then
// returns a token reflecting the new name.
func (s *UserService) UpdateProfile(ctx context.Context, id, newUserName, newFullName string) (string, error) {
	name := strings.TrimSpace(newUserName)
	if name == "" {
		return "", fmt.Errorf("%w: user name is empty", common.ErrInvalidInput)
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return "", err
	}

	user.UserName = name
	user.NormalizedUserName = common.NormalizeName(name)
	user.Email = name
	user.FullName = strings.TrimSpace(newFullName)

	if err := s.repomanager.Users(s.db).UpdateProfile(ctx, user); err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			return "", common.ErrUsernameTaken
		case errors.Is(err, common.ErrorNotFound):
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	roles, err := s.roles.RolesOf(ctx, user.ID)
	if err != nil {
		return "", err
	}

	return s.issue(user, roles)
}

// ChangePassword replaces the password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}

	if err := s.hasher.Compare(user.PasswordHash, currentPassword); err != nil {
		if errors.Is(err, passwords.ErrMismatch) {
			return common.ErrWrongCurrentPassword
		}
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	if err := s.policy.Validate(user.UserName, newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	if err := s.repomanager.Users(s.db).UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	s.log.Info(ctx, "password changed", "user_id", user.ID)
	return nil
}

// DeleteIdentity removes the identity. Role memberships go with it.
func (s *UserService) DeleteIdentity(ctx context.Context, id string) error {
	if !validID(id) {
		return common.ErrorNotFound
	}

	if err := s.repomanager.Users(s.db).Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	s.log.Info(ctx, "user deleted", "user_id", id)
	return nil
}

func (s *UserService) getUser(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, common.ErrorNotFound
	}

	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return user, nil
}

func (s *UserService) issue(user *models.User, roles []string) (string, error) {
	token, err := s.issuer.IssueToken(user, roles)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return token, nil
}

// validID reports whether id can name a stored identity. Anything that is
// not a UUID cannot.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
