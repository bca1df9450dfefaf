package model

// Team is a tournament team and the sessions it currently holds.
type Team struct {
	Number   int
	Name     string
	Sessions []*Session
}

// SessionAt returns the held session at eventIndex, or nil.
func (t *Team) SessionAt(eventIndex int) *Session {
	var found *Session
	for _, s := range t.Sessions {
		if s.EventIndex == eventIndex {
			found = s
		}
	}
	return found
}

// Holds reports whether s is among the team's sessions.
func (t *Team) Holds(s *Session) bool {
	for _, held := range t.Sessions {
		if held == s {
			return true
		}
	}
	return false
}

// WithSwap returns a copy of the team's sessions with old removed and
// replacement appended. The team is not modified.
func (t *Team) WithSwap(old, replacement *Session) []*Session {
	out := make([]*Session, 0, len(t.Sessions))
	for _, s := range t.Sessions {
		if s != old {
			out = append(out, s)
		}
	}
	return append(out, replacement)
}

// Saturated reports whether the team holds quota sessions or more.
func (t *Team) Saturated(quota int) bool {
	return len(t.Sessions) >= quota
}
