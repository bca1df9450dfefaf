package model

import "strconv"

// HolderState tells whether a session has never been assigned, was given up
// by a team, or is currently held.
type HolderState uint8

// Holder states.
const (
	Unassigned HolderState = iota
	Vacated
	Held
)

// String returns the wire name of the state.
func (s HolderState) String() string {
	switch s {
	case Vacated:
		return "vacated"
	case Held:
		return "held"
	default:
		return "unassigned"
	}
}

// Holder records who, if anyone, holds a session. The zero value is
// Unassigned.
type Holder struct {
	state HolderState
	team  int
}

// NoHolder returns the initial, never-assigned holder.
func NoHolder() Holder { return Holder{} }

// VacatedHolder returns the holder of a session a team gave up.
func VacatedHolder() Holder { return Holder{state: Vacated} }

// HeldBy returns a holder pointing at team.
func HeldBy(team int) Holder { return Holder{state: Held, team: team} }

// State returns the holder state.
func (h Holder) State() HolderState { return h.state }

// Team returns the holding team number and true when the session is held.
func (h Holder) Team() (int, bool) {
	if h.state != Held {
		return 0, false
	}
	return h.team, true
}

// IsHeld reports whether a real team holds the session.
func (h Holder) IsHeld() bool { return h.state == Held }

// String renders the holder for logs.
func (h Holder) String() string {
	if h.state == Held {
		return "team " + strconv.Itoa(h.team)
	}
	return h.state.String()
}
