// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/cfduel/internal/domain/model"
)

// DuelsHandler handles duel lifecycle requests.
type DuelsHandler struct {
	deps Dependencies
}

// NewDuelsHandler creates a new duels handler.
func NewDuelsHandler(deps Dependencies) *DuelsHandler {
	return &DuelsHandler{deps: deps}
}

// startDuelRequest mirrors the POST /duels body.
type startDuelRequest struct {
	RequesterID string `json:"requester_id"`
	OpponentID  string `json:"opponent_id"`
	Channel     string `json:"channel"`
	Args        []int  `json:"args"`
}

func (r startDuelRequest) validate() error {
	switch {
	case strings.TrimSpace(r.RequesterID) == "":
		return errors.New("missing requester_id")
	case strings.TrimSpace(r.OpponentID) == "":
		return errors.New("missing opponent_id")
	}
	return nil
}

// userRequest is the body of operations scoped to one user's duel.
type userRequest struct {
	UserID string `json:"user_id"`
}

// HandleDuels handles POST /duels (start) and GET /duels (active list).
func (h *DuelsHandler) HandleDuels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleStart(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.deps.Active(r.Context()))
	default:
		http.NotFound(w, r)
	}
}

func (h *DuelsHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startDuelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	snap, err := h.deps.StartDuel(r.Context(), req.RequesterID, req.OpponentID, req.Channel, req.Args)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// checkResponse is the POST /duels/check payload: what changed plus the
// resulting state.
type checkResponse struct {
	Resolved []resolutionView      `json:"resolved"`
	Session  model.SessionSnapshot `json:"session"`
}

type resolutionView struct {
	ProblemID string `json:"problem_id"`
	Name      string `json:"name"`
	Outcome   string `json:"outcome"`
	Winner    string `json:"winner,omitempty"`
	Points    int    `json:"points"`
}

// HandleCheck handles POST /duels/check requests.
func (h *DuelsHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	userID, ok := decodeUserID(w, r)
	if !ok {
		return
	}

	resolved, snap, err := h.deps.Reconcile(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]resolutionView, 0, len(resolved))
	for _, res := range resolved {
		views = append(views, resolutionView{
			ProblemID: res.ProblemID,
			Name:      res.Name,
			Outcome:   string(res.Outcome.Kind),
			Winner:    res.Outcome.Winner,
			Points:    res.Points,
		})
	}
	writeJSON(w, http.StatusOK, checkResponse{Resolved: views, Session: snap})
}

// HandleStatus handles GET /duels/status?user_id= requests.
func (h *DuelsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing user_id"))
		return
	}

	snap, err := h.deps.Status(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleEnd handles POST /duels/end requests.
func (h *DuelsHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	userID, ok := decodeUserID(w, r)
	if !ok {
		return
	}

	snap, err := h.deps.EndDuel(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleRecent handles GET /recent requests.
func (h *DuelsHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	records, err := h.deps.Recent(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// decodeUserID reads the common {"user_id": ...} POST body.
func decodeUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return "", false
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return "", false
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing user_id"))
		return "", false
	}
	return req.UserID, true
}
