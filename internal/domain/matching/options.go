package matching

import (
	"math/rand"
	"time"

	"github.com/okian/slotmatch/internal/domain/preference"
	"github.com/okian/slotmatch/internal/domain/quality"
	"github.com/okian/slotmatch/pkg/logger"
)

// Option applies a configuration option to the Matcher.
type Option func(*Matcher)

// WithSeed makes the run reproducible: the same seed and inputs produce the
// same assignment.
func WithSeed(seed int64) Option {
	return func(m *Matcher) {
		m.rng = rand.New(rand.NewSource(seed))
		m.seed = seed
	}
}

// WithRand uses r for both the queue pick and the candidate shuffle.
func WithRand(r *rand.Rand) Option {
	return func(m *Matcher) {
		if r != nil {
			m.rng = r
		}
	}
}

// WithPreferences sets the per-kind rating functions.
func WithPreferences(set preference.Set) Option {
	return func(m *Matcher) {
		m.prefs = set
	}
}

// WithQuality sets the schedule quality metric used for swap decisions.
func WithQuality(metric quality.Metric) Option {
	return func(m *Matcher) {
		if metric != nil {
			m.quality = metric
		}
	}
}

// WithMaxIterations aborts a run with ErrIterationLimit after n proposals.
// Zero disables the limit.
func WithMaxIterations(n int) Option {
	return func(m *Matcher) {
		if n >= 0 {
			m.maxIterations = n
		}
	}
}

// WithLogger sets a custom logger for the matcher.
func WithLogger(l logger.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

func defaultSeed() int64 {
	return time.Now().UnixNano()
}
