// Package matching assigns sessions to teams with a deferred-acceptance
// process: sessions propose to their preferred team, teams accept, swap or
// reject based on the quality of their whole schedule, and displaced
// sessions go back into the pool until every team reaches its quota.
package matching

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/okian/slotmatch/internal/domain/model"
	"github.com/okian/slotmatch/internal/domain/preference"
	"github.com/okian/slotmatch/internal/domain/quality"
	"github.com/okian/slotmatch/pkg/logger"
	"github.com/okian/slotmatch/pkg/metrics"
)

// Run outcome labels.
const (
	outcomeCompleted = "completed"
	outcomeInvalid   = "invalid"
	outcomeFailed    = "failed"
)

// Stats summarises a run.
type Stats struct {
	Iterations       int           `json:"iterations"`
	Commits          int           `json:"commits"`
	Swaps            int           `json:"swaps"`
	Rejections       int           `json:"rejections"`
	UnfilledSessions int           `json:"unfilled_sessions"`
	Duration         time.Duration `json:"duration"`
}

// Result holds the mutated teams and sessions of a finished run.
type Result struct {
	Teams    []*model.Team
	Sessions []*model.Session
	Seed     int64
	Stats    Stats
}

// Matcher runs the proposal loop. A Matcher owns its random source and is
// not safe for concurrent use; create one per run.
type Matcher struct {
	prefs         preference.Set
	quality       quality.Metric
	rng           *rand.Rand
	seed          int64
	maxIterations int
	logger        logger.Logger
}

// New creates a matcher with the default preference set, the minimum gap
// quality metric and a time-based seed.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		prefs:   preference.NewSet(),
		quality: quality.MinimumGap,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.seed = defaultSeed()
		m.rng = rand.New(rand.NewSource(m.seed))
	}
	if m.logger == nil {
		m.logger = logger.Get().Named("matcher")
	}
	return m
}

// Seed returns the seed the matcher was built with. It is meaningless when
// the random source came from WithRand.
func (m *Matcher) Seed() int64 { return m.seed }

// Run matches sessions to teams until every team holds quota sessions. Teams
// and sessions are mutated in place and returned in the Result. Sessions
// already held when Run starts keep their holder unless displaced.
//
// The loop has no suspension points; ctx only carries logging values.
func (m *Matcher) Run(ctx context.Context, teams []*model.Team, sessions []*model.Session, quota int) (*Result, error) {
	start := time.Now()
	if err := CheckSupply(teams, sessions, quota); err != nil {
		metrics.RecordRun(outcomeInvalid, 0, 0)
		return nil, err
	}

	var stats Stats
	queue := unresolvedSessions(sessions)
	remaining := unresolvedTeams(teams, quota)
	metrics.UpdateUnresolved(remaining, len(queue))

	fail := func(err error) (*Result, error) {
		stats.Duration = time.Since(start)
		metrics.RecordRun(outcomeFailed, float64(stats.Duration.Milliseconds()), stats.Iterations)
		metrics.RecordErrorByComponent("matcher", "run_failed")
		m.logger.Error(ctx, "matching failed",
			logger.Int("iterations", stats.Iterations),
			logger.Int("unresolved_teams", remaining),
			logger.Int("queued_sessions", len(queue)),
			logger.Error(err),
		)
		return nil, err
	}

	for remaining > 0 {
		if len(queue) == 0 {
			return fail(fmt.Errorf("%w: %d teams below quota after %d proposals",
				ErrSessionsExhausted, remaining, stats.Iterations))
		}
		if m.maxIterations > 0 && stats.Iterations >= m.maxIterations {
			return fail(fmt.Errorf("%w: %d proposals, %d teams below quota",
				ErrIterationLimit, stats.Iterations, remaining))
		}

		i := m.rng.Intn(len(queue))
		session := queue[i]
		queue[i] = queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		score, err := m.prefs.For(session.Kind)
		if err != nil {
			return fail(fmt.Errorf("session %s: %w", session.ID, err))
		}
		team, err := BestCandidate(session, Eligible(teams, session, quota), score, m.rng)
		if err != nil {
			return fail(err)
		}

		out := Resolve(team, session, m.quality)
		stats.Iterations++
		switch out.Resolution {
		case Committed:
			stats.Commits++
		case Swapped:
			stats.Swaps++
		case Rejected:
			stats.Rejections++
		}
		metrics.RecordProposal(session.Kind.String(), out.Resolution.String())
		m.logger.Debug(ctx, "proposal settled",
			logger.String("session", session.ID),
			logger.String("kind", session.Kind.String()),
			logger.Int("team", team.Number),
			logger.String("resolution", out.Resolution.String()),
		)

		if out.Requeue != nil {
			queue = append(queue, out.Requeue)
		}
		remaining = unresolvedTeams(teams, quota)
		metrics.UpdateUnresolved(remaining, len(queue))
	}

	stats.Duration = time.Since(start)
	stats.UnfilledSessions = len(unresolvedSessions(sessions))
	metrics.RecordRun(outcomeCompleted, float64(stats.Duration.Milliseconds()), stats.Iterations)
	metrics.UpdateUnfilledSessions(stats.UnfilledSessions)
	m.logger.Info(ctx, "matching completed",
		logger.Int("teams", len(teams)),
		logger.Int("sessions", len(sessions)),
		logger.Int("quota", quota),
		logger.Int("iterations", stats.Iterations),
		logger.Int("swaps", stats.Swaps),
		logger.Int("unfilled_sessions", stats.UnfilledSessions),
		logger.Duration("duration", stats.Duration),
	)

	return &Result{Teams: teams, Sessions: sessions, Seed: m.seed, Stats: stats}, nil
}

func unresolvedSessions(sessions []*model.Session) []*model.Session {
	queue := make([]*model.Session, 0, len(sessions))
	for _, s := range sessions {
		if !s.Holder.IsHeld() {
			queue = append(queue, s)
		}
	}
	return queue
}

func unresolvedTeams(teams []*model.Team, quota int) int {
	n := 0
	for _, t := range teams {
		if len(t.Sessions) != quota {
			n++
		}
	}
	return n
}
