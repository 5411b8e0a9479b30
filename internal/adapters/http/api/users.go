// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// UsersDependencies defines the interface for user listing operations.
type UsersDependencies interface {
	KnownUsernames(ctx context.Context) ([]string, error)
}

// UsersHandler handles tracked-user listing requests.
type UsersHandler struct {
	deps UsersDependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps UsersDependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

type usersResponse struct {
	Count     int      `json:"count"`
	Usernames []string `json:"usernames"`
}

// HandleListUsers handles GET /users requests.
func (h *UsersHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	usernames, err := h.deps.KnownUsernames(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, usersResponse{Count: len(usernames), Usernames: usernames})
}
