// Package types contains the views shared by the service, the store, the
// HTTP API and the CLI.
package types

import (
	"sort"
	"time"

	"github.com/okian/slotmatch/internal/domain/matching"
	"github.com/okian/slotmatch/internal/domain/model"
)

// Status is the lifecycle state of a schedule run.
type Status string

// Schedule run states.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Done reports whether the run reached a final state.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SessionView is the serialisable form of a session.
type SessionView struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	EventIndex int       `json:"event_index"`
	Location   string    `json:"location,omitempty"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	State      string    `json:"state"`
	Team       *int      `json:"team,omitempty"`
	RejectedBy []int     `json:"rejected_by,omitempty"`
}

// TeamView is a team and its sessions ordered by start time.
type TeamView struct {
	Number   int           `json:"number"`
	Name     string        `json:"name,omitempty"`
	Sessions []SessionView `json:"sessions"`
}

// Assignment is the outcome of a successful run.
type Assignment struct {
	Quota    int            `json:"quota"`
	Seed     int64          `json:"seed"`
	Teams    []TeamView     `json:"teams"`
	Sessions []SessionView  `json:"sessions"`
	Stats    matching.Stats `json:"stats"`
}

// Schedule is a submitted run and, once completed, its assignment.
type Schedule struct {
	ID          string      `json:"id"`
	Name        string      `json:"name,omitempty"`
	Status      Status      `json:"status"`
	Error       string      `json:"error,omitempty"`
	SubmittedAt time.Time   `json:"submitted_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Result      *Assignment `json:"result,omitempty"`
}

// NewSessionView converts a session.
func NewSessionView(s *model.Session) SessionView {
	v := SessionView{
		ID:         s.ID,
		Kind:       s.Kind.String(),
		EventIndex: s.EventIndex,
		Location:   s.Location,
		Start:      s.Start,
		End:        s.End,
		State:      s.Holder.State().String(),
	}
	if team, ok := s.Holder.Team(); ok {
		v.Team = &team
	}
	if len(s.RejectedBy) > 0 {
		v.RejectedBy = append([]int(nil), s.RejectedBy...)
	}
	return v
}

// NewTeamView converts a team, ordering its sessions by start time.
func NewTeamView(t *model.Team) TeamView {
	v := TeamView{Number: t.Number, Name: t.Name, Sessions: make([]SessionView, 0, len(t.Sessions))}
	for _, s := range t.Sessions {
		v.Sessions = append(v.Sessions, NewSessionView(s))
	}
	sort.SliceStable(v.Sessions, func(i, j int) bool {
		return v.Sessions[i].Start.Before(v.Sessions[j].Start)
	})
	return v
}

// NewAssignment converts a finished run.
func NewAssignment(res *matching.Result, quota int) *Assignment {
	a := &Assignment{
		Quota:    quota,
		Seed:     res.Seed,
		Teams:    make([]TeamView, 0, len(res.Teams)),
		Sessions: make([]SessionView, 0, len(res.Sessions)),
		Stats:    res.Stats,
	}
	for _, t := range res.Teams {
		a.Teams = append(a.Teams, NewTeamView(t))
	}
	for _, s := range res.Sessions {
		a.Sessions = append(a.Sessions, NewSessionView(s))
	}
	return a
}

// Team returns the view of team number, if present.
func (a *Assignment) Team(number int) (TeamView, bool) {
	for _, t := range a.Teams {
		if t.Number == number {
			return t, true
		}
	}
	return TeamView{}, false
}
