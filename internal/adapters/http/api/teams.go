// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// TeamsHandler handles team requests.
type TeamsHandler struct {
	deps Dependencies
}

// NewTeamsHandler creates a new teams handler.
func NewTeamsHandler(deps Dependencies) *TeamsHandler {
	return &TeamsHandler{deps: deps}
}

type teamRequest struct {
	Name   string `json:"name"`
	UserID string `json:"user_id"`
}

func decodeTeamRequest(w http.ResponseWriter, r *http.Request, needName bool) (teamRequest, bool) {
	var req teamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return req, false
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing user_id"))
		return req, false
	}
	if needName && strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing name"))
		return req, false
	}
	return req, true
}

// HandleTeams handles POST /teams (create) and GET /teams (list).
func (h *TeamsHandler) HandleTeams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		req, ok := decodeTeamRequest(w, r, true)
		if !ok {
			return
		}
		if err := h.deps.CreateTeam(r.Context(), req.Name, req.UserID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "created", "name": req.Name})
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Teams(r.Context()))
	default:
		http.NotFound(w, r)
	}
}

// HandleJoin handles POST /teams/join requests.
func (h *TeamsHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	req, ok := decodeTeamRequest(w, r, true)
	if !ok {
		return
	}
	if err := h.deps.JoinTeam(r.Context(), req.Name, req.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "joined", "name": req.Name})
}

// HandleMyTeam handles GET /teams/my?user_id= requests.
func (h *TeamsHandler) HandleMyTeam(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing user_id"))
		return
	}

	team, err := h.deps.MyTeam(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// HandleLeave handles POST /teams/leave requests.
func (h *TeamsHandler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	req, ok := decodeTeamRequest(w, r, false)
	if !ok {
		return
	}
	if err := h.deps.LeaveTeam(r.Context(), req.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}
