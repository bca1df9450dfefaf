// Package plan reads tournament plans (teams, sessions and quota) from YAML
// or JSON and turns them into model entities ready for matching.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/okian/slotmatch/internal/domain/model"
)

// idNamespace scopes the name-based IDs derived for sessions without one.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/okian/slotmatch/session"))

// Plan is the on-disk and on-the-wire description of a tournament.
type Plan struct {
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Quota    int       `json:"quota" yaml:"quota"`
	Seed     *int64    `json:"seed,omitempty" yaml:"seed,omitempty"`
	Teams    []Team    `json:"teams" yaml:"teams"`
	Sessions []Session `json:"sessions" yaml:"sessions"`
}

// Team describes one team.
type Team struct {
	Number int    `json:"number" yaml:"number"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Session describes one schedulable slot. Team pre-assigns it.
type Session struct {
	ID              string `json:"id,omitempty" yaml:"id,omitempty"`
	Kind            string `json:"kind" yaml:"kind"`
	EventIndex      int    `json:"event_index" yaml:"event_index"`
	Location        string `json:"location,omitempty" yaml:"location,omitempty"`
	Start           string `json:"start" yaml:"start"`
	DurationMinutes int    `json:"duration_minutes" yaml:"duration_minutes"`
	Team            *int   `json:"team,omitempty" yaml:"team,omitempty"`
}

// Tournament is a built plan: linked model entities and the quota.
type Tournament struct {
	Name     string
	Quota    int
	Teams    []*model.Team
	Sessions []*model.Session
}

// LoadFile reads a plan from path. The format follows the extension.
func LoadFile(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan: %w", err)
	}
	defer func() { _ = f.Close() }()

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return Decode(f, ext)
}

// Decode reads a plan from r in the given format ("yaml", "yml" or "json").
func Decode(r io.Reader, format string) (*Plan, error) {
	var p Plan
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return &p, nil
}

// WithDefaults fills an unset quota with quota.
func (p *Plan) WithDefaults(quota int) *Plan {
	if p.Quota == 0 {
		p.Quota = quota
	}
	return p
}

// Build validates the plan and creates fresh model entities. Pre-assigned
// sessions are held by their team and listed in its schedule. All problems
// are reported at once.
func (p *Plan) Build() (*Tournament, error) {
	var errs []error
	if p.Quota < 1 {
		errs = append(errs, fmt.Errorf("quota must be at least 1, got %d", p.Quota))
	}
	if len(p.Teams) == 0 {
		errs = append(errs, errors.New("no teams"))
	}

	teams := make([]*model.Team, 0, len(p.Teams))
	byNumber := make(map[int]*model.Team, len(p.Teams))
	for _, t := range p.Teams {
		if _, dup := byNumber[t.Number]; dup {
			errs = append(errs, fmt.Errorf("duplicate team number %d", t.Number))
			continue
		}
		team := &model.Team{Number: t.Number, Name: t.Name}
		byNumber[t.Number] = team
		teams = append(teams, team)
	}

	sessions := make([]*model.Session, 0, len(p.Sessions))
	ids := make(map[string]int, len(p.Sessions))
	for i, entry := range p.Sessions {
		s, err := entry.build(i)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if prev, dup := ids[s.ID]; dup {
			errs = append(errs, fmt.Errorf("session %d: duplicate id %q (first at %d)", i, s.ID, prev))
			continue
		}
		ids[s.ID] = i

		if entry.Team != nil {
			team, ok := byNumber[*entry.Team]
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("session %q: pre-assigned to unknown team %d", s.ID, *entry.Team))
			case team.SessionAt(s.EventIndex) != nil:
				errs = append(errs, fmt.Errorf("session %q: team %d already holds event index %d",
					s.ID, team.Number, s.EventIndex))
			default:
				team.Sessions = append(team.Sessions, s)
				s.Assign(team.Number)
			}
		}
		sessions = append(sessions, s)
	}

	for _, team := range teams {
		if p.Quota > 0 && len(team.Sessions) > p.Quota {
			errs = append(errs, fmt.Errorf("team %d: %d pre-assigned sessions above quota %d",
				team.Number, len(team.Sessions), p.Quota))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	return &Tournament{Name: p.Name, Quota: p.Quota, Teams: teams, Sessions: sessions}, nil
}

func (s Session) build(pos int) (*model.Session, error) {
	kind, err := model.ParseActivityKind(s.Kind)
	if err != nil {
		return nil, fmt.Errorf("session %d: %w", pos, err)
	}
	start, err := time.Parse(time.RFC3339, s.Start)
	if err != nil {
		return nil, fmt.Errorf("session %d: start: %w", pos, err)
	}
	if s.DurationMinutes <= 0 {
		return nil, fmt.Errorf("session %d: duration_minutes must be positive, got %d", pos, s.DurationMinutes)
	}
	if s.EventIndex < 0 {
		return nil, fmt.Errorf("session %d: negative event_index %d", pos, s.EventIndex)
	}

	id := s.ID
	if id == "" {
		id = DeriveID(kind, s.EventIndex, s.Location, start, pos)
	}
	return &model.Session{
		ID:         id,
		Kind:       kind,
		EventIndex: s.EventIndex,
		Location:   s.Location,
		Start:      start,
		End:        start.Add(time.Duration(s.DurationMinutes) * time.Minute),
	}, nil
}

// DeriveID returns a stable ID for a session that has none, so the same plan
// always yields the same IDs.
func DeriveID(kind model.ActivityKind, eventIndex int, location string, start time.Time, pos int) string {
	name := strings.Join([]string{
		kind.String(),
		strconv.Itoa(eventIndex),
		location,
		start.UTC().Format(time.RFC3339),
		strconv.Itoa(pos),
	}, "|")
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}
