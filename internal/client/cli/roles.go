package cli

import (
	"context"
	"fmt"
)

func (a *App) Roles(ctx context.Context) error {
	roles, err := a.api.ListRoles(ctx)
	if err != nil {
		return err
	}

	if len(roles) == 0 {
		printlnFn("No roles")
		return nil
	}
	for _, r := range roles {
		printlnFn(fmt.Sprintf("%s  %s", r.ID, r.Name))
	}
	return nil
}

func (a *App) CreateRole(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter role name", a.out)
	if err != nil {
		return err
	}

	id, err := a.api.CreateRole(ctx, name)
	if err != nil {
		return err
	}

	printlnFn("Role created:", id)
	return nil
}

func (a *App) Grant(ctx context.Context) error {
	return a.setUserRole(ctx, false)
}

func (a *App) Revoke(ctx context.Context) error {
	return a.setUserRole(ctx, true)
}

func (a *App) setUserRole(ctx context.Context, remove bool) error {
	user, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}

	role, err := getSimpleText(a.reader, "Enter role name", a.out)
	if err != nil {
		return err
	}

	if err := a.api.SetUserRole(ctx, user, role, remove); err != nil {
		return err
	}

	if remove {
		printlnFn("Role", role, "revoked from", user)
	} else {
		printlnFn("Role", role, "granted to", user)
	}
	return nil
}
