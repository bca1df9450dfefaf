package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/slotmatch/internal/adapters/repository"
	service "github.com/okian/slotmatch/internal/app"
	"github.com/okian/slotmatch/internal/config"
	"github.com/okian/slotmatch/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func waitDone(ctx context.Context, svc *service.Service, id string) (types.Schedule, error) {
	deadline := time.Now().Add(5 * time.Second)
	for {
		sch, err := svc.Get(ctx, id)
		if err != nil {
			return sch, err
		}
		if sch.Status.Done() || time.Now().After(deadline) {
			return sch, nil
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service backed by SQLite", t, func() {
		store, err := repository.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "schedules.db"))
		So(err, ShouldBeNil)

		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(10),
			service.WithStore(store),
		)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("When a plan is submitted and processed", func() {
			sub, err := svc.Submit(ctx, smallPlan())
			So(err, ShouldBeNil)
			sch, err := waitDone(ctx, svc, sub.ID)

			Convey("Then the schedule completes with a full assignment", func() {
				So(err, ShouldBeNil)
				So(sch.Status, ShouldEqual, types.StatusCompleted)
				So(sch.CompletedAt, ShouldNotBeNil)
				So(sch.Result, ShouldNotBeNil)
				So(sch.Result.Seed, ShouldEqual, int64(7))
				So(sch.Result.Stats.UnfilledSessions, ShouldEqual, 0)
				So(sch.SubmittedAt.Equal(sub.SubmittedAt), ShouldBeTrue)
			})

			Convey("Then a team's sessions can be read back", func() {
				team, err := svc.TeamSchedule(ctx, sub.ID, 2)
				So(err, ShouldBeNil)
				So(team.Number, ShouldEqual, 2)
				So(team.Sessions, ShouldHaveLength, 2)
				So(team.Sessions[0].Start.Before(team.Sessions[1].Start), ShouldBeTrue)
			})

			Convey("Then unknown teams are reported", func() {
				_, err := svc.TeamSchedule(ctx, sub.ID, 99)
				So(errors.Is(err, service.ErrTeamNotFound), ShouldBeTrue)
			})

			Convey("Then it appears in the listing", func() {
				list, err := svc.List(ctx, 10)
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 1)
				So(list[0].ID, ShouldEqual, sub.ID)
				So(svc.GetStats()["storedSchedules"], ShouldEqual, 1)
			})
		})

		Convey("When reading an unknown schedule", func() {
			_, err := svc.Get(ctx, "missing")

			Convey("Then it is not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestServiceIntegration_NotReady(t *testing.T) {
	Convey("Given a service whose store holds a pending schedule", t, func() {
		store := repository.NewMemoryStore()
		ctx := context.Background()
		So(store.Save(ctx, types.Schedule{ID: "queued", Status: types.StatusPending, SubmittedAt: time.Now()}), ShouldBeNil)

		svc := service.New(service.WithStore(store), service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("Then team schedules are not ready", func() {
			_, err := svc.TeamSchedule(ctx, "queued", 1)
			So(errors.Is(err, service.ErrNotReady), ShouldBeTrue)
		})
	})
}

func TestOpenStore(t *testing.T) {
	Convey("Given a memory store configuration with a bound", t, func() {
		cfg := config.New()
		cfg.MaxStoredSchedules = 2
		ctx := context.Background()

		store, err := service.OpenStore(ctx, cfg)
		So(err, ShouldBeNil)
		defer func() { _ = store.Close() }()

		Convey("When more finished schedules are saved than the bound", func() {
			base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
			for i, id := range []string{"a", "b", "c", "d"} {
				sch := types.Schedule{ID: id, Status: types.StatusCompleted, SubmittedAt: base.Add(time.Duration(i) * time.Minute)}
				So(store.Save(ctx, sch), ShouldBeNil)
			}

			Convey("Then only the newest are kept", func() {
				n, err := store.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
				_, err = store.Get(ctx, "a")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = store.Get(ctx, "d")
				So(err, ShouldBeNil)
			})
		})
	})
}
