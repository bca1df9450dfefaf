// Package quality rates a team's whole schedule. The matcher compares the
// rating of a team's current sessions with a hypothetical swap and only
// accepts strict improvements.
package quality

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/slotmatch/internal/domain/model"
)

// Metric maps a sequence of sessions to a comparable score, higher is better.
// Implementations must be total and must not modify the sessions.
type Metric func(sessions []*model.Session) float64

// Gaps returns the minutes between consecutive sessions ordered by start
// time. Overlapping sessions produce negative gaps.
func Gaps(sessions []*model.Session) []float64 {
	if len(sessions) < 2 {
		return nil
	}
	ordered := make([]*model.Session, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start.Before(ordered[j].Start)
	})

	gaps := make([]float64, len(ordered)-1)
	for i := 1; i < len(ordered); i++ {
		gaps[i-1] = ordered[i].Start.Sub(ordered[i-1].End).Minutes()
	}
	return gaps
}

// MinimumGap scores a schedule by its tightest turnaround: the smallest gap
// between two consecutive sessions. A schedule with fewer than two sessions
// has no turnaround and scores +Inf.
func MinimumGap(sessions []*model.Session) float64 {
	gaps := Gaps(sessions)
	if len(gaps) == 0 {
		return math.Inf(1)
	}
	return floats.Min(gaps)
}

// Balanced returns a metric that adds meanWeight times the mean gap to the
// minimum gap, so that among schedules with equal worst-case turnaround the
// more evenly rested one wins. A zero weight is equivalent to MinimumGap.
func Balanced(meanWeight float64) Metric {
	if meanWeight == 0 {
		return MinimumGap
	}
	return func(sessions []*model.Session) float64 {
		gaps := Gaps(sessions)
		if len(gaps) == 0 {
			return math.Inf(1)
		}
		return floats.Min(gaps) + meanWeight*stat.Mean(gaps, nil)
	}
}
