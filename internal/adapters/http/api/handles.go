// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// HandlesHandler handles judge-handle link requests.
type HandlesHandler struct {
	deps Dependencies
}

// NewHandlesHandler creates a new handles handler.
func NewHandlesHandler(deps Dependencies) *HandlesHandler {
	return &HandlesHandler{deps: deps}
}

type linkRequest struct {
	UserID string `json:"user_id"`
	Handle string `json:"handle"`
}

type handleResponse struct {
	UserID string `json:"user_id"`
	Handle string `json:"handle"`
}

// HandleHandles handles POST /handles (link) and DELETE /handles (unlink).
func (h *HandlesHandler) HandleHandles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleLink(w, r)
	case http.MethodDelete:
		h.handleUnlink(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *HandlesHandler) handleLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing user_id"))
		return
	}

	if err := h.deps.LinkHandle(r.Context(), req.UserID, req.Handle); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, handleResponse{UserID: req.UserID, Handle: strings.TrimSpace(req.Handle)})
}

func (h *HandlesHandler) handleUnlink(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	if err := h.deps.UnlinkHandle(r.Context(), req.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unlinked"})
}

// HandleGetHandle handles GET /handles/{user_id} requests.
func (h *HandlesHandler) HandleGetHandle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	userID := strings.TrimPrefix(r.URL.Path, "/handles/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	handle, err := h.deps.HandleOf(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, handleResponse{UserID: userID, Handle: handle})
}
