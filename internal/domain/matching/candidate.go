package matching

import (
	"fmt"
	"math/rand"

	"github.com/okian/slotmatch/internal/domain/model"
	"github.com/okian/slotmatch/internal/domain/preference"
)

// BestCandidate shuffles a copy of pool with rng and returns the team with
// the strictly highest score. Ties go to the earliest team in the shuffled
// order. Neither pool nor the teams are modified.
func BestCandidate(session *model.Session, pool []*model.Team, score preference.Func, rng *rand.Rand) (*model.Team, error) {
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyTeamPool, session.ID)
	}

	order := make([]*model.Team, len(pool))
	copy(order, pool)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	best := order[0]
	bestScore := score(session, best)
	for _, team := range order[1:] {
		if s := score(session, team); s > bestScore {
			best, bestScore = team, s
		}
	}
	return best, nil
}

// Eligible returns the teams that may receive session without breaking the
// quota: every team below quota, plus saturated teams that already hold a
// session at the same event index and could swap it. The result shares the
// team pointers with teams.
func Eligible(teams []*model.Team, session *model.Session, quota int) []*model.Team {
	out := make([]*model.Team, 0, len(teams))
	for _, t := range teams {
		if !t.Saturated(quota) || t.SessionAt(session.EventIndex) != nil {
			out = append(out, t)
		}
	}
	return out
}
