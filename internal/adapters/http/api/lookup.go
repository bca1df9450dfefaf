// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/slotmatch/internal/domain/types"
)

// LookupDependencies defines the single-schedule read operations.
type LookupDependencies interface {
	Get(ctx context.Context, id string) (types.Schedule, error)
	TeamSchedule(ctx context.Context, id string, number int) (types.TeamView, error)
}

// LookupHandler handles /schedules/{id} and /schedules/{id}/teams/{number}.
type LookupHandler struct {
	deps LookupDependencies
}

// NewLookupHandler creates a new lookup handler.
func NewLookupHandler(deps LookupDependencies) *LookupHandler {
	return &LookupHandler{deps: deps}
}

// HandleLookup handles GET requests below /schedules/.
func (h *LookupHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_schedule"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameters after /schedules/
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/schedules/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		sch, err := h.deps.Get(r.Context(), parts[0])
		if err != nil {
			writeServiceError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, sch)
	case len(parts) == 3 && parts[0] != "" && parts[1] == "teams":
		number, err := strconv.Atoi(parts[2])
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		team, err := h.deps.TeamSchedule(r.Context(), parts[0], number)
		if err != nil {
			writeServiceError(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, team)
	default:
		writeError(w, http.StatusNotFound, "not_found", NewKind(op, ErrNotFound))
	}
}
