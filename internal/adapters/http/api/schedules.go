// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/slotmatch/internal/domain/plan"
	"github.com/okian/slotmatch/internal/domain/types"
)

// SchedulesDependencies defines the collection operations.
type SchedulesDependencies interface {
	Submit(ctx context.Context, p *plan.Plan) (types.Schedule, error)
	List(ctx context.Context, n int) ([]types.Schedule, error)
}

// SchedulesHandler handles /schedules requests.
type SchedulesHandler struct {
	deps     SchedulesDependencies
	maxLimit int
}

// NewSchedulesHandler creates a new schedules handler.
func NewSchedulesHandler(deps SchedulesDependencies, maxLimit int) *SchedulesHandler {
	if maxLimit < 1 {
		maxLimit = defaultListLimit
	}
	return &SchedulesHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleSchedules dispatches POST and GET /schedules.
func (h *SchedulesHandler) HandleSchedules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.HandleSubmit(w, r)
	case http.MethodGet:
		h.HandleList(w, r)
	default:
		http.NotFound(w, r)
	}
}

// HandleSubmit handles POST /schedules. The body is a plan in JSON, or YAML
// when the content type says so.
func (h *SchedulesHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_schedule"
	r.Body = http.MaxBytesReader(w, r.Body, maxPlanBytes)

	p, err := plan.Decode(r.Body, planFormat(r.Header.Get("Content-Type")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	sch, err := h.deps.Submit(r.Context(), p)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.Header().Set("Location", "/schedules/"+sch.ID)
	writeJSON(w, http.StatusAccepted, sch)
}

// HandleList handles GET /schedules?limit=N requests.
func (h *SchedulesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_schedules"
	n := min(defaultListLimit, h.maxLimit)
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", WrapKind(op, ErrBadRequest, errors.New("limit above "+strconv.Itoa(h.maxLimit))))
		return
	}
	list, err := h.deps.List(r.Context(), n)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func planFormat(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && strings.Contains(mediaType, "yaml") {
		return "yaml"
	}
	return "json"
}
