package rest

import (
	"net/http"
)

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(r.Context(), h.log, w, "create_role", err)
		return
	}

	id, err := h.roles.CreateRole(r.Context(), req.Name)
	if err != nil {
		writeMappedError(r.Context(), h.log, w, "create_role", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	list, err := h.roles.ListRoles(r.Context())
	if err != nil {
		writeMappedError(r.Context(), h.log, w, "list_roles", err)
		return
	}

	out := make([]roleResponse, 0, len(list))
	for _, role := range list {
		out = append(out, roleResponse{ID: role.ID, Name: role.Name, CreatedAt: role.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) updateUserRole(w http.ResponseWriter, r *http.Request) {
	var req updateUserRoleRequest
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(r.Context(), h.log, w, "update_user_role", err)
		return
	}

	var err error
	if req.Delete {
		err = h.roles.RevokeRole(r.Context(), req.Email, req.Role)
	} else {
		err = h.roles.GrantRole(r.Context(), req.Email, req.Role)
	}
	if err != nil {
		writeMappedError(r.Context(), h.log, w, "update_user_role", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
