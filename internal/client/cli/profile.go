package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophidentity/internal/common"
)

// Profile shows the caller's profile and optionally edits it. Empty answers
// keep the current values.
func (a *App) Profile(ctx context.Context) error {
	s, err := a.api.Session()
	if err != nil {
		return err
	}

	u, err := a.api.Profile(ctx, s.UserID)
	if err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("id: %s\nuser name: %s\nemail: %s\nfull name: %s", u.ID, u.UserName, u.Email, u.FullName))

	edit, err := confirm(a.reader, "Edit profile?", a.out)
	if err != nil || !edit {
		return err
	}

	userName, err := getSimpleText(a.reader, "New user name (empty to keep)", a.out)
	if err != nil {
		return err
	}
	if userName == "" {
		userName = u.UserName
	}

	fullName, err := getSimpleText(a.reader, "New full name (empty to keep)", a.out)
	if err != nil {
		return err
	}
	if fullName == "" {
		fullName = u.FullName
	}

	if err := a.api.UpdateProfile(ctx, u.ID, userName, fullName); err != nil {
		return err
	}

	printlnFn("Profile updated")
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	s, err := a.api.Session()
	if err != nil {
		return err
	}

	current, err := getPassword(a.out, "Current password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)

	next, err := getPassword(a.out, "New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	if err := a.api.ChangePassword(ctx, s.UserID, current, next); err != nil {
		return err
	}

	printlnFn("Password changed")
	return nil
}

// DeleteMe deletes the caller's identity after confirmation and ends the
// session.
func (a *App) DeleteMe(ctx context.Context) error {
	s, err := a.api.Session()
	if err != nil {
		return err
	}

	ok, err := confirm(a.reader, "Delete identity "+s.Name+"? This cannot be undone.", a.out)
	if err != nil || !ok {
		return err
	}

	if err := a.api.DeleteUser(ctx, s.UserID); err != nil {
		return err
	}

	a.api.Logout()
	printlnFn("Identity deleted")
	return nil
}
