// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/cfduel/internal/adapters/judge"
	"github.com/okian/cfduel/internal/adapters/links"
	"github.com/okian/cfduel/internal/adapters/registry"
	"github.com/okian/cfduel/internal/adapters/teams"
	service "github.com/okian/cfduel/internal/app"
	"github.com/okian/cfduel/internal/domain/model"
	"github.com/okian/cfduel/internal/domain/selector"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	StartDuel(ctx context.Context, requesterID, opponentID, channel string, args []int) (model.SessionSnapshot, error)
	Reconcile(ctx context.Context, userID string) ([]model.Resolution, model.SessionSnapshot, error)
	Status(ctx context.Context, userID string) (model.SessionSnapshot, error)
	EndDuel(ctx context.Context, userID string) (model.SessionSnapshot, error)
	Active(ctx context.Context) []model.SessionSnapshot
	Recent(ctx context.Context) ([]model.RecentDuelRecord, error)

	LinkHandle(ctx context.Context, userID, handle string) error
	UnlinkHandle(ctx context.Context, userID string) error
	HandleOf(ctx context.Context, userID string) (string, error)

	CreateTeam(ctx context.Context, name, userID string) error
	JoinTeam(ctx context.Context, name, userID string) error
	LeaveTeam(ctx context.Context, userID string) error
	MyTeam(ctx context.Context, userID string) (teams.Team, error)
	Teams(ctx context.Context) []teams.Team
}

// Server wires HTTP routes for the duel API.
type Server struct {
	duelsHandler   *DuelsHandler
	handlesHandler *HandlesHandler
	teamsHandler   *TeamsHandler
	healthHandler  *HealthHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		duelsHandler:   NewDuelsHandler(deps),
		handlesHandler: NewHandlesHandler(deps),
		teamsHandler:   NewTeamsHandler(deps),
		healthHandler:  NewHealthHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/duels", MetricsMiddleware(s.duelsHandler.HandleDuels, "duels"))
	mux.HandleFunc("/duels/check", MetricsMiddleware(s.duelsHandler.HandleCheck, "duels_check"))
	mux.HandleFunc("/duels/status", MetricsMiddleware(s.duelsHandler.HandleStatus, "duels_status"))
	mux.HandleFunc("/duels/end", MetricsMiddleware(s.duelsHandler.HandleEnd, "duels_end"))
	mux.HandleFunc("/recent", MetricsMiddleware(s.duelsHandler.HandleRecent, "recent"))
	mux.HandleFunc("/handles", MetricsMiddleware(s.handlesHandler.HandleHandles, "handles"))
	mux.HandleFunc("/handles/", MetricsMiddleware(s.handlesHandler.HandleGetHandle, "handles_get"))
	mux.HandleFunc("/teams", MetricsMiddleware(s.teamsHandler.HandleTeams, "teams"))
	mux.HandleFunc("/teams/join", MetricsMiddleware(s.teamsHandler.HandleJoin, "teams_join"))
	mux.HandleFunc("/teams/leave", MetricsMiddleware(s.teamsHandler.HandleLeave, "teams_leave"))
	mux.HandleFunc("/teams/my", MetricsMiddleware(s.teamsHandler.HandleMyTeam, "teams_my"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates service and adapter sentinels to HTTP
// status codes; everything unrecognized is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotInSession),
		errors.Is(err, links.ErrNotLinked),
		errors.Is(err, teams.ErrTeamNotFound),
		errors.Is(err, teams.ErrNotInTeam):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, registry.ErrAlreadyActive),
		errors.Is(err, registry.ErrCapacityExceeded),
		errors.Is(err, links.ErrHandleTaken),
		errors.Is(err, teams.ErrTeamExists),
		errors.Is(err, teams.ErrAlreadyInTeam):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, service.ErrHandleNotLinked),
		errors.Is(err, service.ErrSelfDuel),
		errors.Is(err, model.ErrInvalidArguments),
		errors.Is(err, links.ErrInvalidHandle),
		errors.Is(err, teams.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, selector.ErrInsufficientProblems):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_problems", err)
	case errors.Is(err, judge.ErrUnavailable):
		// transient judge outage: callers should retry, nothing is broken
		writeError(w, http.StatusServiceUnavailable, "data_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
