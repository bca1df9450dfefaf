// Package model contains the scheduling entities shared by the matcher,
// the plan loader and the service layer.
package model

import (
	"fmt"
	"strings"
)

// ActivityKind selects the preference function a session uses to rate teams.
// The zero value is deliberately not a valid kind so that an unset field is
// caught by Valid.
type ActivityKind uint8

// Known activity kinds.
const (
	KindJudging ActivityKind = iota + 1
	KindRankingMatch
	KindPracticeMatch
)

// Kinds lists every valid activity kind in display order.
var Kinds = []ActivityKind{KindJudging, KindRankingMatch, KindPracticeMatch}

// String returns the wire name of the kind.
func (k ActivityKind) String() string {
	switch k {
	case KindJudging:
		return "judging"
	case KindRankingMatch:
		return "ranking_match"
	case KindPracticeMatch:
		return "practice_match"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the known kinds.
func (k ActivityKind) Valid() bool {
	return k >= KindJudging && k <= KindPracticeMatch
}

// ParseActivityKind converts a wire name into an ActivityKind. Besides the
// canonical names it accepts "ranking" and "practice".
func ParseActivityKind(s string) (ActivityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "judging", "judging_session":
		return KindJudging, nil
	case "ranking_match", "ranking", "match":
		return KindRankingMatch, nil
	case "practice_match", "practice":
		return KindPracticeMatch, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}
