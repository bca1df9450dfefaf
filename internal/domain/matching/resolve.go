package matching

import (
	"github.com/okian/slotmatch/internal/domain/model"
	"github.com/okian/slotmatch/internal/domain/quality"
)

// Resolution is the result of settling one proposal.
type Resolution uint8

// Possible resolutions.
const (
	// Committed means the team had a free slot at the event index.
	Committed Resolution = iota
	// Swapped means the team traded a same-index session for the proposal.
	Swapped
	// Rejected means the team kept its schedule.
	Rejected
)

// String returns the metric label of the resolution.
func (r Resolution) String() string {
	switch r {
	case Committed:
		return "committed"
	case Swapped:
		return "swapped"
	default:
		return "rejected"
	}
}

// Outcome reports how a proposal was settled and which session, if any,
// must go back into the unresolved queue.
type Outcome struct {
	Resolution Resolution
	// Requeue is the displaced session after a swap, the proposed session
	// after a rejection, and nil after a commit.
	Requeue *model.Session
	// Before and After are the quality of the team's schedule around a swap
	// decision. Both are zero for commits.
	Before float64
	After  float64
}

// Resolve settles a proposal of session to team and mutates both (and the
// displaced session, if any) accordingly.
func Resolve(team *model.Team, session *model.Session, metric quality.Metric) Outcome {
	old := team.SessionAt(session.EventIndex)
	if old == nil {
		team.Sessions = append(team.Sessions, session)
		session.Assign(team.Number)
		return Outcome{Resolution: Committed}
	}

	swapped := team.WithSwap(old, session)
	before := metric(team.Sessions)
	after := metric(swapped)
	if after > before {
		old.Vacate()
		team.Sessions = swapped
		session.Assign(team.Number)
		return Outcome{Resolution: Swapped, Requeue: old, Before: before, After: after}
	}

	session.Reject(team.Number)
	return Outcome{Resolution: Rejected, Requeue: session, Before: before, After: after}
}
