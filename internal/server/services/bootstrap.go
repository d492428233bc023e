package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophidentity/internal/common"
)

// BootstrapAdmin makes sure adminRole exists and that userName holds it, so
// a fresh store has someone allowed to manage roles. A missing user is
// registered with password; without a password it is a configuration error.
// Running it again changes nothing.
func (s *UserService) BootstrapAdmin(ctx context.Context, userName, password, adminRole string) error {
	if err := s.roles.EnsureRole(ctx, adminRole); err != nil {
		return fmt.Errorf("ensure role %s: %w", adminRole, err)
	}

	userName = strings.TrimSpace(userName)
	if userName == "" {
		return nil
	}

	_, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, common.NormalizeName(userName))
	switch {
	case errors.Is(err, common.ErrorNotFound):
		if password == "" {
			return fmt.Errorf("%w: bootstrap admin %q does not exist and no password is set", common.ErrConfiguration, userName)
		}
		if _, err := s.Register(ctx, userName, password, userName); err != nil {
			return fmt.Errorf("register bootstrap admin: %w", err)
		}
		s.log.Info(ctx, "bootstrap admin registered", "user", userName)
	case err != nil:
		return fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}

	if err := s.roles.GrantRole(ctx, userName, adminRole); err != nil {
		return fmt.Errorf("grant %s to %s: %w", adminRole, userName, err)
	}

	return nil
}
