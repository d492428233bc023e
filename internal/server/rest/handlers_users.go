package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(r.Context(), h.log, w, "login", err)
		return
	}

	res, err := h.users.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		writeMappedError(r.Context(), h.log, w, "login", err)
		return
	}

	roles := res.Roles
	if roles == nil {
		roles = []string{}
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: res.Token, User: toUserResponse(res.User), Roles: roles})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(r.Context(), h.log, w, "register", err)
		return
	}

	token, err := h.users.Register(r.Context(), req.UserName, req.Password, req.FullName)
	if err != nil {
		writeMappedError(r.Context(), h.log, w, "register", err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(r.Context(), h.log, w, "get_user", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(r.Context(), h.log, w, "update_user", err)
		return
	}

	token, err := h.users.UpdateProfile(r.Context(), chi.URLParam(r, "id"), req.UserName, req.FullName)
	if err != nil {
		writeMappedError(r.Context(), h.log, w, "update_user", err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(r.Context(), h.log, w, "change_password", err)
		return
	}

	if err := h.users.ChangePassword(r.Context(), chi.URLParam(r, "id"), req.CurrentPassword, req.NewPassword); err != nil {
		writeMappedError(r.Context(), h.log, w, "change_password", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// deleteUser takes the target id from the body.
func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	var req deleteUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(r.Context(), h.log, w, "delete_user", err)
		return
	}

	if err := h.authorizeTarget(r.Context(), req.ID); err != nil {
		writeMappedError(r.Context(), h.log, w, "delete_user", err)
		return
	}

	if err := h.users.DeleteIdentity(r.Context(), req.ID); err != nil {
		writeMappedError(r.Context(), h.log, w, "delete_user", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
