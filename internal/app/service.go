// Package service provides the scheduling service behind the HTTP API and
// the CLI: it accepts plans, queues them for the worker pool, runs the
// matcher and serves stored results.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/okian/slotmatch/internal/adapters/mq/queue"
	workerpool "github.com/okian/slotmatch/internal/adapters/mq/worker"
	"github.com/okian/slotmatch/internal/adapters/repository"
	"github.com/okian/slotmatch/internal/config"
	"github.com/okian/slotmatch/internal/domain/matching"
	"github.com/okian/slotmatch/internal/domain/plan"
	"github.com/okian/slotmatch/internal/domain/preference"
	"github.com/okian/slotmatch/internal/domain/quality"
	"github.com/okian/slotmatch/internal/domain/types"
	"github.com/okian/slotmatch/pkg/logger"
	"github.com/okian/slotmatch/pkg/metrics"
)

// Service implements the API dependencies for the scheduler.
type Service struct {
	mu sync.RWMutex

	// Core components
	store repository.Store
	jobs  *jobqueue.InMemoryQueue
	pool  *workerpool.Pool

	// Configuration
	workerCount   int
	queueSize     int
	defaultQuota  int
	seed          int64
	maxIterations int
	weights       preference.Weights
	meanGapWeight float64

	// State
	started    bool
	cancelPool context.CancelFunc

	// queued holds accepted jobs no worker has picked up yet.
	queuedMu sync.Mutex
	queued   map[string]types.Schedule

	logger logger.Logger
	newID  func() string
	now    func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of matching workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithStore sets the schedule store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDefaultQuota sets the quota for plans without one.
func WithDefaultQuota(quota int) Option {
	return func(s *Service) {
		if quota > 0 {
			s.defaultQuota = quota
		}
	}
}

// WithSeed fixes the matcher seed for plans without one. Zero keeps
// time-based seeds.
func WithSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithMaxIterations caps proposals per run; zero disables the cap.
func WithMaxIterations(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxIterations = n
		}
	}
}

// WithWeights sets the preference weights.
func WithWeights(w preference.Weights) Option {
	return func(s *Service) {
		s.weights = w
	}
}

// WithMeanGapWeight sets the mean gap term of the schedule quality metric.
func WithMeanGapWeight(w float64) Option {
	return func(s *Service) {
		if w >= 0 {
			s.meanGapWeight = w
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator overrides how run IDs are generated.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// FromConfig translates a loaded configuration into options. The store is
// not included: it needs a context and may fail to open.
func FromConfig(cfg *config.Config) []Option {
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDefaultQuota(cfg.DefaultQuota),
		WithSeed(cfg.Seed),
		WithMaxIterations(cfg.MaxIterations),
		WithWeights(preference.Weights{
			NeedBonus:            cfg.NeedBonus,
			GapWeight:            cfg.GapWeight,
			LoadWeight:           cfg.LoadWeight,
			PracticeOrderPenalty: cfg.PracticeOrderPenalty,
		}),
		WithMeanGapWeight(cfg.MeanGapWeight),
	}
}

// OpenStore opens the store selected by cfg.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.Store != config.StoreSQLite {
		return repository.NewMemoryStore(repository.WithMaxEntries(cfg.MaxStoredSchedules)), nil
	}
	store, err := repository.NewSQLiteStore(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU(),
		queueSize:    1_000,
		defaultQuota: 3,
		weights:      preference.DefaultWeights(),
		newID:        uuid.NewString,
		now:          time.Now,
		queued:       make(map[string]types.Schedule),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start creates the queue and the worker pool. It is a no-op on a started
// service. The workers outlive ctx: they stop when Stop has drained the
// queue.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}

	s.jobs = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.jobs, s, s.store)
	poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelPool = cancel
	s.pool.Start(poolCtx)

	s.started = true
	s.logger.Info(ctx, "scheduling service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("defaultQuota", s.defaultQuota),
	)

	return nil
}

// Stop drains the queue, waits for the workers and closes the store. If ctx
// ends first, jobs no worker has started are recorded as failed.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping scheduling service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("worker pool: %w", err))
	}
	s.cancelPool()
	if err := s.abandonQueued(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "scheduling service stopped")
	return errors.Join(errs...)
}

// Submit validates p and queues it for matching. The returned schedule is
// pending; poll Get for the outcome.
func (s *Service) Submit(ctx context.Context, p *plan.Plan) (types.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return types.Schedule{}, ErrNotStarted
	}

	tour, err := s.build(p)
	if err != nil {
		return types.Schedule{}, err
	}

	sch := types.Schedule{
		ID:          s.newID(),
		Name:        tour.Name,
		Status:      types.StatusPending,
		SubmittedAt: s.now().UTC(),
	}
	if err := s.store.Save(ctx, sch); err != nil {
		return types.Schedule{}, fmt.Errorf("save %s: %w", sch.ID, err)
	}

	job := jobqueue.Job{ID: sch.ID, Name: sch.Name, Tournament: tour, Seed: p.Seed, SubmittedAt: sch.SubmittedAt}
	s.track(sch)
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		s.untrack(sch.ID)
		sch.Status = types.StatusFailed
		sch.Error = err.Error()
		if saveErr := s.store.Save(ctx, sch); saveErr != nil {
			s.logger.Error(ctx, "failed to record rejected job", logger.String("id", sch.ID), logger.Error(saveErr))
		}
		if errors.Is(err, jobqueue.ErrFull) {
			return types.Schedule{}, fmt.Errorf("%w: %w", ErrQueueFull, err)
		}
		return types.Schedule{}, err
	}

	s.logger.Debug(ctx, "schedule submitted",
		logger.String("id", sch.ID),
		logger.Int("teams", len(tour.Teams)),
		logger.Int("sessions", len(tour.Sessions)),
		logger.Int("quota", tour.Quota),
	)
	return sch, nil
}

// Validate builds p and checks the session supply without running it.
func (s *Service) Validate(p *plan.Plan) (*plan.Tournament, error) {
	return s.build(p)
}

func (s *Service) build(p *plan.Plan) (*plan.Tournament, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: empty plan", ErrInvalidPlan)
	}
	tour, err := p.WithDefaults(s.defaultQuota).Build()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	if err := matching.CheckSupply(tour.Teams, tour.Sessions, tour.Quota); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	return tour, nil
}

// Schedule runs the matcher for a queued job. It implements the worker
// pool's Scheduler.
func (s *Service) Schedule(ctx context.Context, job jobqueue.Job) (*types.Assignment, error) { //nolint:gocritic // hugeParam: Job is passed by value through the queue
	s.untrack(job.ID)
	return s.Solve(ctx, job.Tournament, job.Seed)
}

func (s *Service) track(sch types.Schedule) { //nolint:gocritic // hugeParam: stored by value
	s.queuedMu.Lock()
	defer s.queuedMu.Unlock()
	s.queued[sch.ID] = sch
}

func (s *Service) untrack(id string) {
	s.queuedMu.Lock()
	defer s.queuedMu.Unlock()
	delete(s.queued, id)
}

// abandonQueued marks every job that never reached a worker as failed.
func (s *Service) abandonQueued(ctx context.Context) error {
	s.queuedMu.Lock()
	left := s.queued
	s.queued = make(map[string]types.Schedule)
	s.queuedMu.Unlock()

	if len(left) == 0 {
		return nil
	}
	s.logger.Warn(ctx, "service stopped with queued jobs", logger.Int("jobs", len(left)))

	saveCtx := context.WithoutCancel(ctx)
	finished := s.now().UTC()
	var errs []error
	for _, sch := range left {
		sch.Status = types.StatusFailed
		sch.Error = ErrStopped.Error()
		sch.CompletedAt = &finished
		if err := s.store.Save(saveCtx, sch); err != nil {
			errs = append(errs, fmt.Errorf("record abandoned %s: %w", sch.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Solve runs the matcher on tour and verifies the result. A nil seed falls
// back to the configured seed, then to a time-based one.
func (s *Service) Solve(ctx context.Context, tour *plan.Tournament, seed *int64) (*types.Assignment, error) {
	m := matching.New(s.matcherOptions(seed)...)
	res, err := m.Run(ctx, tour.Teams, tour.Sessions, tour.Quota)
	if err != nil {
		return nil, err
	}
	if err := matching.Verify(res.Teams, res.Sessions, tour.Quota); err != nil {
		metrics.RecordErrorByComponent("matcher", "verify_failed")
		return nil, err
	}
	return types.NewAssignment(res, tour.Quota), nil
}

func (s *Service) matcherOptions(seed *int64) []matching.Option {
	opts := []matching.Option{
		matching.WithPreferences(preference.NewSet(preference.WithWeights(s.weights))),
		matching.WithQuality(quality.Balanced(s.meanGapWeight)),
		matching.WithMaxIterations(s.maxIterations),
	}
	if s.logger != nil {
		opts = append(opts, matching.WithLogger(s.logger.Named("matcher")))
	}
	switch {
	case seed != nil:
		opts = append(opts, matching.WithSeed(*seed))
	case s.seed != 0:
		opts = append(opts, matching.WithSeed(s.seed))
	}
	return opts
}

// Get returns the schedule with id.
func (s *Service) Get(ctx context.Context, id string) (types.Schedule, error) {
	store, err := s.repo()
	if err != nil {
		return types.Schedule{}, err
	}
	return store.Get(ctx, id)
}

func (s *Service) repo() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.store == nil {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// TeamSchedule returns one team's sessions from a completed schedule.
func (s *Service) TeamSchedule(ctx context.Context, id string, number int) (types.TeamView, error) {
	sch, err := s.Get(ctx, id)
	if err != nil {
		return types.TeamView{}, err
	}
	if sch.Status != types.StatusCompleted || sch.Result == nil {
		return types.TeamView{}, fmt.Errorf("%w: schedule %s is %s", ErrNotReady, id, sch.Status)
	}
	team, ok := sch.Result.Team(number)
	if !ok {
		return types.TeamView{}, fmt.Errorf("%w: %d in schedule %s", ErrTeamNotFound, number, id)
	}
	return team, nil
}

// List returns up to n schedules, newest first.
func (s *Service) List(ctx context.Context, n int) ([]types.Schedule, error) {
	store, err := s.repo()
	if err != nil {
		return nil, err
	}
	list, err := store.List(ctx, n)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []types.Schedule{}
	}
	return list, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"defaultQuota": s.defaultQuota,
	}

	if s.started {
		stats["queueLength"] = s.jobs.Len(ctx)
		if n, err := s.store.Count(ctx); err == nil {
			stats["storedSchedules"] = n
		}
	}

	return stats
}
