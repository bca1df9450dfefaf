// Package worker runs queued schedule jobs through the matcher and records
// their outcome.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/slotmatch/internal/adapters/mq/queue"
	"github.com/okian/slotmatch/internal/domain/types"
	"github.com/okian/slotmatch/pkg/logger"
	"github.com/okian/slotmatch/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Scheduler computes the assignment for a job.
type Scheduler interface {
	Schedule(ctx context.Context, job queue.Job) (*types.Assignment, error)
}

// Recorder persists schedule state transitions.
type Recorder interface {
	Save(ctx context.Context, s types.Schedule) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker after the job in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	scheduler Scheduler
	recorder  Recorder
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
	now    func() time.Time
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, scheduler Scheduler, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		scheduler: scheduler,
		recorder:  recorder,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing job", logger.String("id", job.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process moves a job through running to completed or failed. A matching
// failure is recorded on the schedule and is not returned; only store
// failures are.
func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) error { //nolint:gocritic // hugeParam: Job must be passed by value for channel semantics
	start := time.Now()
	metrics.AddWorkerBusy(1)
	defer func() {
		metrics.AddWorkerBusy(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	// Records land even when ctx is cancelled mid-job.
	saveCtx := context.WithoutCancel(ctx)
	sch := types.Schedule{
		ID:          job.ID,
		Name:        job.Name,
		Status:      types.StatusRunning,
		SubmittedAt: job.SubmittedAt,
	}
	if err := w.recorder.Save(saveCtx, sch); err != nil {
		metrics.RecordErrorByComponent("worker", "store_error")
		return fmt.Errorf("mark %s running: %w", job.ID, err)
	}

	result, err := w.scheduler.Schedule(ctx, job)
	finished := w.now()
	sch.CompletedAt = &finished
	if err != nil {
		metrics.RecordErrorByComponent("worker", "schedule_failed")
		w.logger.Warn(ctx, "schedule failed", logger.String("id", job.ID), logger.Error(err))
		sch.Status = types.StatusFailed
		sch.Error = err.Error()
	} else {
		sch.Status = types.StatusCompleted
		sch.Result = result
	}

	if err := w.recorder.Save(saveCtx, sch); err != nil {
		metrics.RecordErrorByComponent("worker", "store_error")
		return fmt.Errorf("record %s %s: %w", job.ID, sch.Status, err)
	}
	w.logger.Info(ctx, "job finished",
		logger.String("id", job.ID),
		logger.String("status", string(sch.Status)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. A non-positive count uses one worker
// per CPU.
func NewPool(workerCount int, q Queue, scheduler Scheduler, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, scheduler, recorder, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, if it can be closed, and waits for the workers
// to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker %d: %w", i, shutdownCtx.Err())
		}
	}

	metrics.UpdateWorkerCount(0)
	return nil
}
