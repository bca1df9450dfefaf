// Package preference defines how each kind of session rates a team as a
// candidate, and maps a session's kind to its rating function.
package preference

import (
	"fmt"
	"math"

	"github.com/okian/slotmatch/internal/domain/model"
)

// Default weight constants.
const (
	defaultNeedBonus            = 1_000_000
	defaultGapWeight            = 1.0
	defaultLoadWeight           = 10.0
	defaultPracticeOrderPenalty = 500.0

	// gapHorizonMinutes caps the turnaround term so a team with an empty
	// schedule does not dominate on gap alone.
	gapHorizonMinutes = 24 * 60
)

// Func rates team as a candidate for session; higher is better. It must not
// modify either argument.
type Func func(session *model.Session, team *model.Team) float64

// Weights tunes the built-in rating functions.
type Weights struct {
	// NeedBonus is added when the team has no session at the event index yet.
	NeedBonus float64
	// GapWeight multiplies the minutes to the team's nearest other session.
	GapWeight float64
	// LoadWeight is subtracted per session the team already holds (matches only).
	LoadWeight float64
	// PracticeOrderPenalty is subtracted from a practice match when the team
	// already plays a ranking match earlier.
	PracticeOrderPenalty float64
}

// DefaultWeights returns the weights used when none are configured.
func DefaultWeights() Weights {
	return Weights{
		NeedBonus:            defaultNeedBonus,
		GapWeight:            defaultGapWeight,
		LoadWeight:           defaultLoadWeight,
		PracticeOrderPenalty: defaultPracticeOrderPenalty,
	}
}

// Set holds one rating function per activity kind.
type Set struct {
	judging       Func
	rankingMatch  Func
	practiceMatch Func
}

// NewSet builds a Set from the built-in functions with default weights and
// applies opts on top.
func NewSet(opts ...Option) Set {
	w := DefaultWeights()
	s := Set{
		judging:       Judging(w),
		rankingMatch:  RankingMatch(w),
		practiceMatch: PracticeMatch(w),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// For returns the rating function for kind. An unknown kind means the
// session was built outside ParseActivityKind and is reported as
// ErrUnknownActivity.
func (s Set) For(kind model.ActivityKind) (Func, error) {
	var f Func
	switch kind {
	case model.KindJudging:
		f = s.judging
	case model.KindRankingMatch:
		f = s.rankingMatch
	case model.KindPracticeMatch:
		f = s.practiceMatch
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownActivity, kind)
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingFunction, kind)
	}
	return f, nil
}

// Judging rates a team by need and by how far the session sits from the
// team's other commitments.
func Judging(w Weights) Func {
	return func(session *model.Session, team *model.Team) float64 {
		return need(w, session, team) + w.GapWeight*nearestGap(session, team)
	}
}

// RankingMatch is Judging plus a penalty per session already held, spreading
// matches across teams.
func RankingMatch(w Weights) Func {
	return func(session *model.Session, team *model.Team) float64 {
		return need(w, session, team) +
			w.GapWeight*nearestGap(session, team) -
			w.LoadWeight*float64(len(team.Sessions))
	}
}

// PracticeMatch is RankingMatch with an extra penalty when the team would
// practice after already playing a ranking match.
func PracticeMatch(w Weights) Func {
	ranking := RankingMatch(w)
	return func(session *model.Session, team *model.Team) float64 {
		score := ranking(session, team)
		if playsRankingBefore(team, session) {
			score -= w.PracticeOrderPenalty
		}
		return score
	}
}

func need(w Weights, session *model.Session, team *model.Team) float64 {
	if team.SessionAt(session.EventIndex) == nil {
		return w.NeedBonus
	}
	return 0
}

// nearestGap returns the minutes between session and the closest session the
// team holds at another event index, negative on overlap, capped at the
// horizon.
func nearestGap(session *model.Session, team *model.Team) float64 {
	nearest := float64(gapHorizonMinutes)
	for _, other := range team.Sessions {
		if other == session || other.EventIndex == session.EventIndex {
			continue
		}
		after := other.Start.Sub(session.End).Minutes()
		before := session.Start.Sub(other.End).Minutes()
		nearest = math.Min(nearest, math.Max(after, before))
	}
	return nearest
}

func playsRankingBefore(team *model.Team, session *model.Session) bool {
	for _, other := range team.Sessions {
		if other.Kind == model.KindRankingMatch && other.Start.Before(session.Start) {
			return true
		}
	}
	return false
}
