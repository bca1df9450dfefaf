// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/slotmatch/internal/adapters/repository"
	service "github.com/okian/slotmatch/internal/app"
	"github.com/okian/slotmatch/internal/domain/plan"
	"github.com/okian/slotmatch/internal/domain/types"
)

// Default limits.
const (
	defaultListLimit = 20
	maxPlanBytes     = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit validates and queues a plan. The returned schedule is pending.
	Submit(ctx context.Context, p *plan.Plan) (types.Schedule, error)

	// Read operations expose stored schedules.
	Get(ctx context.Context, id string) (types.Schedule, error)
	List(ctx context.Context, n int) ([]types.Schedule, error)
	TeamSchedule(ctx context.Context, id string, number int) (types.TeamView, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	schedulesHandler *SchedulesHandler
	lookupHandler    *LookupHandler
}

// NewServer creates a new API server with all handlers. maxListLimit bounds
// GET /schedules?limit.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxListLimit int) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		schedulesHandler: NewSchedulesHandler(deps, maxListLimit),
		lookupHandler:    NewLookupHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/schedules", MetricsMiddleware(s.schedulesHandler.HandleSchedules, "schedules"))
	mux.HandleFunc("/schedules/", MetricsMiddleware(s.lookupHandler.HandleLookup, "schedule"))
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
		msg = Cause(err).Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates upstream errors to a status code.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPlan):
		writeError(w, http.StatusBadRequest, "invalid_plan", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, service.ErrTeamNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrNotReady):
		writeError(w, http.StatusConflict, "not_ready", WrapKind(op, ErrConflict, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
