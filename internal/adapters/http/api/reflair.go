// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"
)

// ReflairDependencies defines the interface for reflair operations.
type ReflairDependencies interface {
	Reflair(ctx context.Context, username string) (Result, error)
}

// ReflairHandler handles manual re-evaluation requests.
type ReflairHandler struct {
	deps ReflairDependencies
}

// NewReflairHandler creates a new reflair handler.
func NewReflairHandler(deps ReflairDependencies) *ReflairHandler {
	return &ReflairHandler{deps: deps}
}

// HandleReflair handles POST /reflair/{username} requests.
func (h *ReflairHandler) HandleReflair(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	username := strings.TrimPrefix(r.URL.Path, "/reflair/")
	if username == "" || strings.Contains(username, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	result, err := h.deps.Reflair(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
