package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophidentity/internal/common"
)

// Register prompts for a user name, full name and password and creates the
// account. The server logs the new identity in.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}

	fullName, err := getSimpleText(a.reader, "Enter full name (optional)", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Register(ctx, userName, password, fullName); err != nil {
		return err
	}

	printlnFn("Registered and logged in as", userName)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.api.Login(ctx, userName, password)
	if err != nil {
		return err
	}

	printlnFn("Login successful:", res.User.UserName, formatRoles(res.Roles))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.api.Logout()
	printlnFn("Logged out")
	return nil
}

// WhoAmI prints what the current token says about the caller.
func (a *App) WhoAmI(ctx context.Context) error {
	s, err := a.api.Session()
	if err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("id: %s\nname: %s\nroles: %s\nexpires: %s",
		s.UserID, s.Name, formatRoles(s.Roles), s.ExpiresAt.Local().Format("2006-01-02 15:04:05")))
	return nil
}

func formatRoles(roles []string) string {
	if len(roles) == 0 {
		return "[]"
	}
	return "[" + strings.Join(roles, ", ") + "]"
}
