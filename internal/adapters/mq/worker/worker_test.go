package worker_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/slotmatch/internal/adapters/mq/queue"
	worker "github.com/okian/slotmatch/internal/adapters/mq/worker"
	"github.com/okian/slotmatch/internal/domain/types"
	logging "github.com/okian/slotmatch/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs chan queue.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	close(mq.jobs)
	return nil
}

type mockScheduler struct {
	mu         sync.Mutex
	fail       map[string]error
	calls      []string
	onSchedule func()
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{fail: make(map[string]error)}
}

func (ms *mockScheduler) Schedule(_ context.Context, job queue.Job) (*types.Assignment, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.calls = append(ms.calls, job.ID)
	if ms.onSchedule != nil {
		ms.onSchedule()
	}
	if err := ms.fail[job.ID]; err != nil {
		return nil, err
	}
	return &types.Assignment{Quota: 1, Seed: 5}, nil
}

type mockRecorder struct {
	mu      sync.Mutex
	history map[string][]types.Status
	latest  map[string]types.Schedule
	ctxErrs map[string][]error
	err     error
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{
		history: make(map[string][]types.Status),
		latest:  make(map[string]types.Schedule),
		ctxErrs: make(map[string][]error),
	}
}

func (mr *mockRecorder) Save(ctx context.Context, s types.Schedule) error { //nolint:gocritic // hugeParam: mirrors Store
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if mr.err != nil {
		return mr.err
	}
	mr.ctxErrs[s.ID] = append(mr.ctxErrs[s.ID], ctx.Err())
	mr.history[s.ID] = append(mr.history[s.ID], s.Status)
	mr.latest[s.ID] = s
	return nil
}

func (mr *mockRecorder) get(id string) (types.Schedule, []types.Status) {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	return mr.latest[id], append([]types.Status(nil), mr.history[id]...)
}

func (mr *mockRecorder) saveErrs(id string) []error {
	mr.mu.Lock()
	defer mr.mu.Unlock()
	return append([]error(nil), mr.ctxErrs[id]...)
}

func initLogger(t *testing.T) {
	t.Helper()
	if err := logging.InitWithWriter(io.Discard, "text"); err != nil {
		t.Fatalf("init logger: %v", err)
	}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	initLogger(t)

	convey.Convey("Given a worker wired to mocks", t, func() {
		q := newMockQueue()
		sched := newMockScheduler()
		rec := newMockRecorder()
		finished := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		w := worker.NewInMemoryWorker(q, sched, rec,
			worker.WithName("test-worker"),
			worker.WithClock(func() time.Time { return finished }),
		)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a job succeeds", func() {
			q.jobs <- queue.Job{ID: "ok", Name: "qualifier"}

			convey.Convey("Then it moves from running to completed with the result", func() {
				convey.So(waitFor(func() bool {
					_, h := rec.get("ok")
					return len(h) == 2
				}), convey.ShouldBeTrue)
				sch, history := rec.get("ok")
				convey.So(history, convey.ShouldResemble, []types.Status{types.StatusRunning, types.StatusCompleted})
				convey.So(sch.Result.Seed, convey.ShouldEqual, int64(5))
				convey.So(sch.Name, convey.ShouldEqual, "qualifier")
				convey.So(sch.CompletedAt.Equal(finished), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the matcher fails", func() {
			sched.fail["bad"] = errors.New("iteration limit reached")
			q.jobs <- queue.Job{ID: "bad"}

			convey.Convey("Then the schedule is marked failed with the reason", func() {
				convey.So(waitFor(func() bool {
					_, h := rec.get("bad")
					return len(h) == 2
				}), convey.ShouldBeTrue)
				sch, _ := rec.get("bad")
				convey.So(sch.Status, convey.ShouldEqual, types.StatusFailed)
				convey.So(sch.Error, convey.ShouldContainSubstring, "iteration limit")
				convey.So(sch.Result, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the worker context is cancelled while a job runs", func() {
			sched.onSchedule = cancel
			q.jobs <- queue.Job{ID: "interrupted"}

			convey.Convey("Then the outcome is still recorded on a live context", func() {
				convey.So(waitFor(func() bool {
					_, h := rec.get("interrupted")
					return len(h) == 2
				}), convey.ShouldBeTrue)
				sch, history := rec.get("interrupted")
				convey.So(history, convey.ShouldResemble, []types.Status{types.StatusRunning, types.StatusCompleted})
				convey.So(sch.Result, convey.ShouldNotBeNil)
				convey.So(rec.saveErrs("interrupted"), convey.ShouldResemble, []error{nil, nil})
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()

			convey.Convey("Then the worker stops", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given a recorder that fails", t, func() {
		q := newMockQueue()
		sched := newMockScheduler()
		rec := newMockRecorder()
		rec.err = errors.New("disk full")
		w := worker.NewInMemoryWorker(q, sched, rec)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)
		q.jobs <- queue.Job{ID: "lost"}
		_ = q.Close()

		convey.Convey("Then the matcher is never called", func() {
			convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			sched.mu.Lock()
			defer sched.mu.Unlock()
			convey.So(sched.calls, convey.ShouldBeEmpty)
		})
	})
}

func TestPool(t *testing.T) {
	initLogger(t)

	convey.Convey("Given a pool over a real queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(20))
		sched := newMockScheduler()
		rec := newMockRecorder()
		pool := worker.NewPool(3, q, sched, rec)
		convey.So(pool.Size(), convey.ShouldEqual, 3)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		ids := []string{"a", "b", "c", "d", "e", "f"}
		for _, id := range ids {
			convey.So(q.Enqueue(ctx, queue.Job{ID: id}), convey.ShouldBeNil)
		}

		convey.Convey("When shutting down after submitting jobs", func() {
			convey.So(waitFor(func() bool {
				for _, id := range ids {
					if _, h := rec.get(id); len(h) != 2 {
						return false
					}
				}
				return true
			}), convey.ShouldBeTrue)
			err := pool.Shutdown(context.Background())

			convey.Convey("Then every job completed once and the queue is closed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
				sched.mu.Lock()
				defer sched.mu.Unlock()
				convey.So(sched.calls, convey.ShouldHaveLength, len(ids))
			})
		})
	})
}
