package matching

import (
	"errors"
	"fmt"

	"github.com/okian/slotmatch/internal/domain/model"
)

// CheckSupply rejects inputs that can never reach quota for every team and
// inputs whose pre-assignments disagree between teams and sessions. Passing
// it is a necessary condition only: inputs can still churn forever when
// event indices are unevenly covered, which WithMaxIterations bounds.
func CheckSupply(teams []*model.Team, sessions []*model.Session, quota int) error {
	if quota < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuota, quota)
	}
	if len(teams) == 0 {
		return ErrNoTeams
	}
	if need := len(teams) * quota; len(sessions) < need {
		return fmt.Errorf("%w: %d sessions for %d teams at quota %d (need %d)",
			ErrInsufficientSessions, len(sessions), len(teams), quota, need)
	}

	indices := make(map[int]struct{}, quota)
	for _, s := range sessions {
		indices[s.EventIndex] = struct{}{}
	}
	if len(indices) < quota {
		return fmt.Errorf("%w: %d distinct event indices for quota %d",
			ErrInsufficientSessions, len(indices), quota)
	}

	var errs []error
	for _, t := range teams {
		if len(t.Sessions) > quota {
			errs = append(errs, fmt.Errorf("%w: team %d pre-assigned %d sessions above quota %d",
				ErrInconsistent, t.Number, len(t.Sessions), quota))
		}
	}
	errs = append(errs, consistency(teams, sessions)...)
	return errors.Join(errs...)
}

// Verify checks a finished assignment: every team holds exactly quota
// sessions with distinct event indices, every held session appears in its
// holder's schedule and in no other, and no vacated session points at a
// team. All violations are reported together.
func Verify(teams []*model.Team, sessions []*model.Session, quota int) error {
	var errs []error
	for _, t := range teams {
		if len(t.Sessions) != quota {
			errs = append(errs, fmt.Errorf("%w: team %d holds %d sessions, quota %d",
				ErrInconsistent, t.Number, len(t.Sessions), quota))
		}
	}
	errs = append(errs, consistency(teams, sessions)...)
	return errors.Join(errs...)
}

// consistency reports every disagreement between team schedules and
// session holders. A session is consistent when it is held by exactly the
// team that lists it, or unheld and listed by nobody.
func consistency(teams []*model.Team, sessions []*model.Session) []error {
	var errs []error
	owner := make(map[*model.Session]int, len(sessions))

	for _, t := range teams {
		seen := make(map[int]string, len(t.Sessions))
		for _, s := range t.Sessions {
			if prev, dup := seen[s.EventIndex]; dup {
				errs = append(errs, fmt.Errorf("%w: team %d holds %s and %s at event index %d",
					ErrInconsistent, t.Number, prev, s.ID, s.EventIndex))
			}
			seen[s.EventIndex] = s.ID
			if other, taken := owner[s]; taken {
				errs = append(errs, fmt.Errorf("%w: session %s held by teams %d and %d",
					ErrInconsistent, s.ID, other, t.Number))
			}
			owner[s] = t.Number
		}
	}

	known := make(map[*model.Session]struct{}, len(sessions))
	for _, s := range sessions {
		if _, dup := known[s]; dup {
			errs = append(errs, fmt.Errorf("%w: session %s listed twice", ErrInconsistent, s.ID))
			continue
		}
		known[s] = struct{}{}
		holder, held := s.Holder.Team()
		number, listed := owner[s]
		switch {
		case held && !listed:
			errs = append(errs, fmt.Errorf("%w: session %s held by team %d but not in its schedule",
				ErrInconsistent, s.ID, holder))
		case held && holder != number:
			errs = append(errs, fmt.Errorf("%w: session %s held by team %d but scheduled for team %d",
				ErrInconsistent, s.ID, holder, number))
		case !held && listed:
			errs = append(errs, fmt.Errorf("%w: session %s is %s but scheduled for team %d",
				ErrInconsistent, s.ID, s.Holder.State(), number))
		}
	}

	for _, t := range teams {
		for _, s := range t.Sessions {
			if _, ok := known[s]; !ok {
				errs = append(errs, fmt.Errorf("%w: session %s scheduled for team %d is not among the sessions",
					ErrInconsistent, s.ID, t.Number))
			}
		}
	}
	return errs
}
