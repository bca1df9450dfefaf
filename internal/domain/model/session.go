package model

import (
	"errors"
	"time"
)

// ErrUnknownKind is returned when an activity kind name is not recognised.
var ErrUnknownKind = errors.New("unknown activity kind")

// Session is a schedulable slot (judging session, ranking match or practice
// match) that must be filled by exactly one team.
type Session struct {
	ID         string
	Kind       ActivityKind
	EventIndex int    // schedule slot/round; a team holds at most one per index
	Location   string // room or table
	Start      time.Time
	End        time.Time

	Holder     Holder
	RejectedBy []int // team numbers that turned this session down, in order
}

// Duration returns the length of the session.
func (s *Session) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Assign marks the session as held by team.
func (s *Session) Assign(team int) {
	s.Holder = HeldBy(team)
}

// Reject records that team turned the session down. The holder is left
// untouched.
func (s *Session) Reject(team int) {
	s.RejectedBy = append(s.RejectedBy, team)
}

// Vacate releases the session. A real previous holder is added to the
// rejection history.
func (s *Session) Vacate() {
	if team, ok := s.Holder.Team(); ok {
		s.RejectedBy = append(s.RejectedBy, team)
	}
	s.Holder = VacatedHolder()
}
