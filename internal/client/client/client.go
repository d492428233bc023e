package client

import (
	"context"
	"time"
)

type Client interface {
	Ping(ctx context.Context) error
	Register(ctx context.Context, userName string, password []byte, fullName string) error
	Login(ctx context.Context, userName string, password []byte) (*LoginResult, error)
	Logout()
	Session() (*Session, error)
	Profile(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, id, userName, fullName string) error
	ChangePassword(ctx context.Context, id string, current, next []byte) error
	DeleteUser(ctx context.Context, id string) error
	ListRoles(ctx context.Context) ([]Role, error)
	CreateRole(ctx context.Context, name string) (string, error)
	SetUserRole(ctx context.Context, email, role string, remove bool) error
}

type User struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type Role struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type LoginResult struct {
	Token string   `json:"token"`
	User  User     `json:"user"`
	Roles []string `json:"roles"`
}

// Session is what the client knows about the current token. The token is
// decoded without verification; the server remains the authority.
type Session struct {
	UserID    string
	Name      string
	Roles     []string
	ExpiresAt time.Time
}
