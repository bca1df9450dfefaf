package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/slotmatch/internal/adapters/http/api"
	"github.com/okian/slotmatch/internal/adapters/repository"
	service "github.com/okian/slotmatch/internal/app"
	"github.com/okian/slotmatch/internal/domain/plan"
	"github.com/okian/slotmatch/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDependencies struct {
	submitted []*plan.Plan
	submitErr error
	schedules map[string]types.Schedule
	listErr   error
	lastLimit int
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{schedules: make(map[string]types.Schedule)}
}

func (m *mockDependencies) Submit(_ context.Context, p *plan.Plan) (types.Schedule, error) {
	if m.submitErr != nil {
		return types.Schedule{}, m.submitErr
	}
	m.submitted = append(m.submitted, p)
	return types.Schedule{
		ID:          fmt.Sprintf("run-%d", len(m.submitted)),
		Name:        p.Name,
		Status:      types.StatusPending,
		SubmittedAt: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}, nil
}

func (m *mockDependencies) Get(_ context.Context, id string) (types.Schedule, error) {
	sch, ok := m.schedules[id]
	if !ok {
		return types.Schedule{}, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	return sch, nil
}

func (m *mockDependencies) List(_ context.Context, n int) ([]types.Schedule, error) {
	m.lastLimit = n
	if m.listErr != nil {
		return nil, m.listErr
	}
	list := make([]types.Schedule, 0, len(m.schedules))
	for _, sch := range m.schedules {
		list = append(list, sch)
	}
	return list, nil
}

func (m *mockDependencies) TeamSchedule(_ context.Context, id string, number int) (types.TeamView, error) {
	sch, ok := m.schedules[id]
	if !ok {
		return types.TeamView{}, repository.ErrNotFound
	}
	if sch.Result == nil {
		return types.TeamView{}, service.ErrNotReady
	}
	team, ok := sch.Result.Team(number)
	if !ok {
		return types.TeamView{}, service.ErrTeamNotFound
	}
	return team, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

const planJSON = `{
  "name": "qualifier",
  "quota": 1,
  "teams": [{"number": 1}],
  "sessions": [{"kind": "judging", "event_index": 0, "start": "2024-03-01T09:00:00Z", "duration_minutes": 30}]
}`

const planYAML = `name: qualifier
quota: 1
teams:
  - number: 1
sessions:
  - kind: judging
    event_index: 0
    start: "2024-03-01T09:00:00Z"
    duration_minutes: 30
`

func newTestMux(deps *mockDependencies) *http.ServeMux {
	stats := &mockStatsProvider{stats: map[string]interface{}{"started": true, "workerCount": 2}}
	server := api.NewServer(deps, stats, 50)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newTestMux(newMockDependencies())

		Convey("Then the health endpoint reports ok", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then the stats endpoint returns the provider's stats", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/stats", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]interface{}
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("Then the metrics endpoint serves the registry", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then unknown paths are not found", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/unknown", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are not found", func() {
			w := serve(mux, httptest.NewRequest(http.MethodDelete, "/schedules", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusNotFound)
			w = serve(mux, httptest.NewRequest(http.MethodPost, "/healthz", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSubmitSchedule(t *testing.T) {
	Convey("Given the schedules endpoint", t, func() {
		deps := newMockDependencies()
		mux := newTestMux(deps)

		Convey("When posting a JSON plan", func() {
			req := httptest.NewRequest(http.MethodPost, "/schedules", strings.NewReader(planJSON))
			req.Header.Set("Content-Type", "application/json")
			w := serve(mux, req)

			Convey("Then it is accepted with a location", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Header().Get("Location"), ShouldEqual, "/schedules/run-1")
				var sch types.Schedule
				So(json.Unmarshal(w.Body.Bytes(), &sch), ShouldBeNil)
				So(sch.Status, ShouldEqual, types.StatusPending)
				So(deps.submitted, ShouldHaveLength, 1)
				So(deps.submitted[0].Sessions[0].Kind, ShouldEqual, "judging")
			})
		})

		Convey("When posting a YAML plan", func() {
			req := httptest.NewRequest(http.MethodPost, "/schedules", strings.NewReader(planYAML))
			req.Header.Set("Content-Type", "application/yaml")
			w := serve(mux, req)

			Convey("Then it is decoded as YAML", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.submitted[0].Name, ShouldEqual, "qualifier")
			})
		})

		Convey("When posting malformed JSON", func() {
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/schedules", strings.NewReader(`{"teams":`)))

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
				So(deps.submitted, ShouldBeEmpty)
			})
		})

		Convey("When posting unknown fields", func() {
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/schedules", strings.NewReader(`{"quota":1,"talent":"x"}`)))

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the service rejects the plan", func() {
			deps.submitErr = fmt.Errorf("%w: no teams", service.ErrInvalidPlan)
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/schedules", strings.NewReader(planJSON)))

			Convey("Then it is reported as an invalid plan", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				body := decodeError(w)
				So(body["code"], ShouldEqual, "invalid_plan")
				So(body["message"], ShouldContainSubstring, "no teams")
			})
		})

		Convey("When the queue is full", func() {
			deps.submitErr = fmt.Errorf("%w: capacity 1", service.ErrQueueFull)
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/schedules", strings.NewReader(planJSON)))

			Convey("Then it signals backpressure", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decodeError(w)["code"], ShouldEqual, "backpressure")
			})
		})

		Convey("When the service is not running", func() {
			deps.submitErr = service.ErrNotStarted
			w := serve(mux, httptest.NewRequest(http.MethodPost, "/schedules", strings.NewReader(planJSON)))

			Convey("Then it is unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestListSchedules(t *testing.T) {
	Convey("Given stored schedules", t, func() {
		deps := newMockDependencies()
		deps.schedules["a"] = types.Schedule{ID: "a", Status: types.StatusCompleted}
		mux := newTestMux(deps)

		Convey("When listing without a limit", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/schedules", http.NoBody))

			Convey("Then the default limit applies", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 20)
				var list []types.Schedule
				So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
				So(list, ShouldHaveLength, 1)
			})
		})

		Convey("When listing with a valid limit", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/schedules?limit=5", http.NoBody))

			Convey("Then the limit is passed through", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastLimit, ShouldEqual, 5)
			})
		})

		Convey("When the limit is invalid", func() {
			for _, q := range []string{"0", "-3", "abc"} {
				w := serve(mux, httptest.NewRequest(http.MethodGet, "/schedules?limit="+q, http.NoBody))
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When the limit exceeds the maximum", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/schedules?limit=51", http.NoBody))

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "limit_exceeded")
			})
		})

		Convey("When the store fails", func() {
			deps.listErr = errors.New("disk I/O error")
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/schedules", http.NoBody))

			Convey("Then it is an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})
	})
}

func TestLookupSchedule(t *testing.T) {
	Convey("Given a completed and a pending schedule", t, func() {
		deps := newMockDependencies()
		start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		deps.schedules["done"] = types.Schedule{
			ID:     "done",
			Status: types.StatusCompleted,
			Result: &types.Assignment{
				Quota: 1,
				Teams: []types.TeamView{{
					Number:   7,
					Sessions: []types.SessionView{{ID: "judge-a", Kind: "judging", Start: start, End: start.Add(30 * time.Minute)}},
				}},
			},
		}
		deps.schedules["queued"] = types.Schedule{ID: "queued", Status: types.StatusPending}
		mux := newTestMux(deps)

		Convey("Then a schedule can be fetched by id", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/schedules/done", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
			var sch types.Schedule
			So(json.Unmarshal(w.Body.Bytes(), &sch), ShouldBeNil)
			So(sch.Result.Teams[0].Number, ShouldEqual, 7)
		})

		Convey("Then a missing schedule is not found", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/schedules/nope", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w)["code"], ShouldEqual, "not_found")
			So(decodeError(w)["message"], ShouldEqual, "schedule not found: nope")
		})

		Convey("Then a team's sessions can be fetched", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/schedules/done/teams/7", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
			var team types.TeamView
			So(json.Unmarshal(w.Body.Bytes(), &team), ShouldBeNil)
			So(team.Sessions, ShouldHaveLength, 1)
			So(team.Sessions[0].ID, ShouldEqual, "judge-a")
		})

		Convey("Then an unknown team is not found", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/schedules/done/teams/8", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then a pending schedule has no team sessions yet", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/schedules/queued/teams/7", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(decodeError(w)["code"], ShouldEqual, "not_ready")
		})

		Convey("Then a non-numeric team is a bad request", func() {
			w := serve(mux, httptest.NewRequest(http.MethodGet, "/schedules/done/teams/seven", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then malformed paths are not found", func() {
			for _, p := range []string{"/schedules/", "/schedules/done/players/7", "/schedules/done/teams"} {
				w := serve(mux, httptest.NewRequest(http.MethodGet, p, http.NoBody))
				So(w.Code, ShouldEqual, http.StatusNotFound)
			}
		})
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Given API errors", t, func() {
		cause := errors.New("boom")

		Convey("Then kinds and causes are both matchable", func() {
			err := api.WrapKind("api.op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
		})

		Convey("Then NewKind carries only the kind", func() {
			err := api.NewKind("api.op", api.ErrNotFound)
			So(errors.Is(err, api.ErrNotFound), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: not found")
		})

		Convey("Then Wrap keeps nil as nil", func() {
			So(api.Wrap("api.op", nil), ShouldBeNil)
			So(api.Wrap("api.op", cause).Error(), ShouldEqual, "api.op: boom")
		})

		Convey("Then Cause drops the op and kind tags", func() {
			So(api.Cause(api.WrapKind("api.op", api.ErrBadRequest, cause)), ShouldEqual, cause)
			So(api.Cause(api.NewKind("api.op", api.ErrNotFound)), ShouldEqual, api.ErrNotFound)
			So(api.Cause(cause), ShouldEqual, cause)
		})
	})
}
