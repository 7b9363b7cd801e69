package api

import (
	"net/http"

	"github.com/serroba/opsportal/internal/acl"
)

// PermissionRequest is the request body for creating a route permission.
type PermissionRequest struct {
	Route       string   `json:"route"`
	Description string   `json:"description"`
	Roles       []string `json:"roles"`
	UserIDs     []int64  `json:"userIds"`
}

// PermissionUpdateRequest is the request body for updating a route
// permission. Omitted fields are left unchanged.
type PermissionUpdateRequest struct {
	Route       *string   `json:"route"`
	Description *string   `json:"description"`
	Roles       *[]string `json:"roles"`
	UserIDs     *[]int64  `json:"userIds"`
}

// handleListPermissions handles GET /api/permissions.
func (s *Server) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := s.admin.List(r.Context())
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, perms)
}

// handleGetPermission handles GET /api/permissions/{id}.
func (s *Server) handleGetPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	perm, err := s.admin.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, perm)
}

// handleCreatePermission handles POST /api/permissions.
func (s *Server) handleCreatePermission(w http.ResponseWriter, r *http.Request) {
	var req PermissionRequest
	if !decode(w, r, &req) {
		return
	}

	perm, err := s.admin.Create(r.Context(), UserIDFromContext(r.Context()), acl.Input(req))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, perm)
}

// handleUpdatePermission handles PATCH /api/permissions/{id}.
func (s *Server) handleUpdatePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req PermissionUpdateRequest
	if !decode(w, r, &req) {
		return
	}

	perm, err := s.admin.Update(r.Context(), UserIDFromContext(r.Context()), id, acl.Update(req))
	if err != nil {
		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, perm)
}

// handleDeletePermission handles DELETE /api/permissions/{id}.
func (s *Server) handleDeletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := s.admin.Delete(r.Context(), UserIDFromContext(r.Context()), id); err != nil {
		writeError(w, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
