package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	app "github.com/okian/slotmatch/internal/app"
	"github.com/okian/slotmatch/internal/config"
	"github.com/okian/slotmatch/internal/domain/types"
	"github.com/okian/slotmatch/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const testPlan = `{
  "name": "league-night",
  "quota": 1,
  "seed": 9,
  "teams": [{"number": 10}, {"number": 20}],
  "sessions": [
    {"kind": "judging", "event_index": 0, "start": "2024-03-01T09:00:00Z", "duration_minutes": 30},
    {"kind": "judging", "event_index": 0, "start": "2024-03-01T09:30:00Z", "duration_minutes": 30}
  ]
}`

func setEnv(kv map[string]string) func() {
	for k, v := range kv {
		_ = os.Setenv(k, v)
	}
	return func() {
		for k := range kv {
			_ = os.Unsetenv(k)
		}
	}
}

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			defer setEnv(map[string]string{
				"SLOTMATCH_ADDR":         ":8080",
				"SLOTMATCH_QUEUE_SIZE":   "1000",
				"SLOTMATCH_WORKER_COUNT": "4",
			})()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the store is unknown", func() {
			defer setEnv(map[string]string{"SLOTMATCH_STORE": "postgres"})()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	if err := logger.InitWithWriter(io.Discard, "text"); err != nil {
		t.Fatalf("init logger: %v", err)
	}

	convey.Convey("Given the server wired as in main", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg := config.New()
		cfg.WorkerCount = 1
		store, err := app.OpenStore(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)

		svc := app.New(append(app.FromConfig(cfg), app.WithStore(store))...)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		srv := httptest.NewServer(newMux(ctx, svc, cfg))
		defer srv.Close()

		convey.Convey("When a plan is posted and polled", func() {
			resp, err := http.Post(srv.URL+"/schedules", "application/json", strings.NewReader(testPlan))
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusAccepted)
			location := resp.Header.Get("Location")

			var sch types.Schedule
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				got, err := http.Get(srv.URL + location)
				convey.So(err, convey.ShouldBeNil)
				sch = types.Schedule{}
				_ = json.NewDecoder(got.Body).Decode(&sch)
				_ = got.Body.Close()
				if sch.Status.Done() {
					break
				}
				time.Sleep(10 * time.Millisecond)
			}

			convey.Convey("Then the schedule completes with one session per team", func() {
				convey.So(sch.Status, convey.ShouldEqual, types.StatusCompleted)
				convey.So(sch.Result.Seed, convey.ShouldEqual, int64(9))
				for _, team := range sch.Result.Teams {
					convey.So(team.Sessions, convey.ShouldHaveLength, 1)
				}
			})
		})

		convey.Convey("When the docs are requested", func() {
			resp, err := http.Get(srv.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()

			convey.Convey("Then they are served", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When the service metrics are refreshed", func() {
			convey.Convey("Then it does not panic", func() {
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})
		})
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given a service that was never started", t, func() {
		svc := app.New()

		convey.Convey("Then the updater returns once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
		})
	})
}
