package rest

import (
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/server/models"
)

type loginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

type registerRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type updateUserRequest struct {
	UserName string `json:"userName"`
	FullName string `json:"fullName"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type deleteUserRequest struct {
	ID string `json:"id"`
}

type createRoleRequest struct {
	Name string `json:"name"`
}

// updateUserRoleRequest grants Role to the identity named Email, or revokes
// it when Delete is set.
type updateUserRoleRequest struct {
	Email  string `json:"email"`
	Role   string `json:"role"`
	Delete bool   `json:"delete"`
}

type userResponse struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type roleResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
	Roles []string     `json:"roles"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, UserName: u.UserName, Email: u.Email, FullName: u.FullName}
}
