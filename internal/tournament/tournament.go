// Package tournament is the per-match orchestration engine for automated
// tournament matches: it tracks who showed up, runs the roll/ban/pick
// protocol and decides when the tiebreaker is due.
package tournament

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/osuripple/fokabot/internal/api"
	"github.com/osuripple/fokabot/pkg/osu"
)

// State of the per-match state machine.
type State int

const (
	StateWaiting State = iota
	StateMissingPlayers
	StateRolling
	StateBanning
	StatePicking
	StateConfirming
	StatePlaying
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateMissingPlayers:
		return "missing_players"
	case StateRolling:
		return "rolling"
	case StateBanning:
		return "banning"
	case StatePicking:
		return "picking"
	case StateConfirming:
		return "confirming"
	case StatePlaying:
		return "playing"
	case StateEnd:
		return "end"
	}
	return "unknown"
}

// Side identifies one of the two teams.
type Side int

const (
	SideA Side = iota
	SideB
)

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// BanchoTeam maps the side to the room team colour: team A plays blue,
// team B plays red.
func (s Side) BanchoTeam() osu.Team {
	if s == SideA {
		return osu.TeamBlue
	}
	return osu.TeamRed
}

var (
	ErrAlreadyRolled  = errors.New("tournament: team already rolled")
	ErrNotRolling     = errors.New("tournament: match is not in the rolling phase")
	ErrNotYourTurn    = errors.New("tournament: not this team's turn")
	ErrWrongPhase     = errors.New("tournament: operation not valid in this phase")
	ErrUnknownBeatmap = errors.New("tournament: no such beatmap in the pool")
	ErrBeatmapTaken   = errors.New("tournament: beatmap already banned or played")
	ErrNoPending      = errors.New("tournament: nothing awaiting confirmation")
	ErrNotPlayer      = errors.New("tournament: user is not a player in this match")
)

// Beatmap is one pool entry, addressable as <GROUP><index> (NM1, HD2, TB1).
type Beatmap struct {
	ID         int
	Name       string
	Mods       osu.Mod
	Group      string
	Index      int
	Tiebreaker bool
}

// Code renders the short pool code.
func (b Beatmap) Code() string {
	return fmt.Sprintf("%s%d", b.Group, b.Index)
}

// Team is one side of the match.
type Team struct {
	ID      int
	Name    string
	Members []int
	Captain int
	Side    Side

	inMatch map[int]struct{}
	roll    *int
}

// CaptainInMatch reports whether the captain showed up.
func (t *Team) CaptainInMatch() bool {
	_, ok := t.inMatch[t.Captain]
	return ok
}

// MembersInMatch returns the user ids currently present.
func (t *Team) MembersInMatch() []int {
	out := make([]int, 0, len(t.inMatch))
	for id := range t.inMatch {
		out = append(out, id)
	}
	return out
}

// HasMember reports whether the user is on this team's roster.
func (t *Team) HasMember(userID int) bool {
	for _, m := range t.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Roll returns the stored roll, if any.
func (t *Team) Roll() (int, bool) {
	if t.roll == nil {
		return 0, false
	}
	return *t.roll, true
}

// setRoll stores the team's roll. A team rolls exactly once.
func (t *Team) setRoll(v int) error {
	if t.roll != nil {
		return ErrAlreadyRolled
	}
	t.roll = &v
	return nil
}

// Meta is the tournament a match belongs to.
type Meta struct {
	ID           int
	Name         string
	Abbreviation string
	GameMode     osu.GameMode
	TeamSize     int
}

// IsSolo reports a 1v1 tournament.
func (m Meta) IsSolo() bool { return m.TeamSize == 1 }

type actionKind int

const (
	actionBan actionKind = iota
	actionPick
)

type pendingAction struct {
	kind    actionKind
	side    Side
	beatmap Beatmap
}

// Match is one orchestrated tournament match. All methods serialize on the
// match mutex; one match never blocks another.
type Match struct {
	mu sync.Mutex

	ID         int // misirlou match id
	BanchoID   int
	Tournament Meta
	TeamA      *Team
	TeamB      *Team
	Password   string
	Usernames  map[int]string

	state      State
	paused     State
	turn       Side
	bans       int
	pool       map[string][]Beatmap
	groups     []string
	tiebreaker Beatmap
	banned     map[int]struct{}
	played     map[int]struct{}
	pending    *pendingAction
	current    *Beatmap
}

// groupLabel names a pool group from its mod mask. Only masks with a
// dedicated pool code keep their acronym; every other combination is
// freemod, so each pool code stays bannable and pickable in chat.
func groupLabel(mods osu.Mod) string {
	switch mods {
	case osu.ModNoMod:
		return "NM"
	case osu.ModHidden:
		return "HD"
	case osu.ModHardRock:
		return "HR"
	case osu.ModDoubleTime:
		return "DT"
	}
	return "FM"
}

// FromAPI builds a match from the tournament API payload. The pool must
// contain exactly one tiebreaker.
func FromAPI(m api.MisirlouMatch, password string) (*Match, error) {
	match := &Match{
		ID: m.ID,
		Tournament: Meta{
			ID:           m.Tournament.ID,
			Name:         m.Tournament.Name,
			Abbreviation: m.Tournament.Abbreviation,
			GameMode:     m.Tournament.GameMode,
			TeamSize:     m.Tournament.TeamSize,
		},
		Password:  password,
		Usernames: make(map[int]string),
		state:     StateWaiting,
		pool:      make(map[string][]Beatmap),
		banned:    make(map[int]struct{}),
		played:    make(map[int]struct{}),
	}
	match.TeamA = teamFromAPI(m.TeamA, SideA)
	match.TeamB = teamFromAPI(m.TeamB, SideB)

	haveTiebreaker := false
	for _, b := range m.Tournament.Pool {
		if b.Tiebreaker {
			if haveTiebreaker {
				return nil, errors.New("tournament: more than one tiebreaker in the pool")
			}
			haveTiebreaker = true
			match.tiebreaker = Beatmap{
				ID: b.ID, Name: b.Name, Mods: b.Mods,
				Group: "TB", Index: 1, Tiebreaker: true,
			}
			continue
		}
		group := groupLabel(b.Mods)
		entry := Beatmap{
			ID: b.ID, Name: b.Name, Mods: b.Mods,
			Group: group, Index: len(match.pool[group]) + 1,
		}
		if len(match.pool[group]) == 0 {
			match.groups = append(match.groups, group)
		}
		match.pool[group] = append(match.pool[group], entry)
	}
	if !haveTiebreaker {
		return nil, errors.New("tournament: no tiebreaker in the pool")
	}
	return match, nil
}

func teamFromAPI(t api.MisirlouTeam, side Side) *Team {
	return &Team{
		ID:      t.ID,
		Name:    t.Name,
		Members: append([]int(nil), t.Members...),
		Captain: t.Captain,
		Side:    side,
		inMatch: make(map[int]struct{}),
	}
}

// ChatChannel is the room's chat channel name.
func (m *Match) ChatChannel() string {
	return fmt.Sprintf("#multi_%d", m.BanchoID)
}

// State returns the current phase.
func (m *Match) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Turn returns whose action is expected.
func (m *Match) Turn() Side {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.turn
}

// Team returns the team on a side.
func (m *Match) Team(side Side) *Team {
	if side == SideA {
		return m.TeamA
	}
	return m.TeamB
}

// UserTeam returns the team a user plays for, or nil.
func (m *Match) UserTeam(userID int) *Team {
	if m.TeamA.HasMember(userID) {
		return m.TeamA
	}
	if m.TeamB.HasMember(userID) {
		return m.TeamB
	}
	return nil
}

// CaptainOrTeamName is the preferred way to address a team in chat.
func (m *Match) CaptainOrTeamName(t *Team) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.CaptainInMatch() {
		return m.Usernames[t.Captain]
	}
	return "Team " + t.Name
}

// CaptainOrTeamMembers addresses whoever may act for the team.
func (m *Match) CaptainOrTeamMembers(t *Team) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.CaptainInMatch() {
		return m.Usernames[t.Captain]
	}
	names := make([]string, 0, len(t.inMatch))
	for id := range t.inMatch {
		names = append(names, m.Usernames[id])
	}
	return strings.Join(names, ", ") + fmt.Sprintf(" (%s's members)", t.Name)
}

// CaptainPresent reports whether the team's captain is in the room.
func (m *Match) CaptainPresent(t *Team) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return t.CaptainInMatch()
}

// RollCallLine addresses both teams for the roll phase announcement.
func (m *Match) RollCallLine() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sb strings.Builder
	for i, t := range []*Team{m.TeamA, m.TeamB} {
		if t.CaptainInMatch() {
			sb.WriteString(m.Usernames[t.Captain])
			if !m.Tournament.IsSolo() {
				fmt.Fprintf(&sb, " (%s's captain)", t.Name)
			}
		} else {
			names := make([]string, 0, len(t.inMatch))
			for id := range t.inMatch {
				names = append(names, m.Usernames[id])
			}
			sb.WriteString(strings.Join(names, ", "))
			fmt.Fprintf(&sb, " (%s's members)", t.Name)
		}
		if i == 0 {
			sb.WriteString(" - ")
		}
	}
	sb.WriteString(", any of you, please roll with the !roll command.")
	return sb.String()
}

// CanCommit reports whether the user may commit actions for the team:
// the captain when present, any present member otherwise.
func (m *Match) CanCommit(t *Team, userID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.CaptainInMatch() {
		return userID == t.Captain
	}
	_, present := t.inMatch[userID]
	return present
}

// Pool returns the groups in registration order with their beatmaps.
func (m *Match) Pool() [][]Beatmap {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]Beatmap, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, append([]Beatmap(nil), m.pool[g]...))
	}
	return out
}

// Tiebreaker returns the pool's tiebreaker map.
func (m *Match) Tiebreaker() Beatmap {
	return m.tiebreaker
}

// CurrentBeatmap returns the map being played, if any.
func (m *Match) CurrentBeatmap() (Beatmap, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Beatmap{}, false
	}
	return *m.current, true
}

// resolveLocked maps a pool code like "HD2" to its beatmap.
func (m *Match) resolveLocked(group string, index int) (Beatmap, error) {
	group = strings.ToUpper(group)
	if group == "TB" {
		if index != 1 {
			return Beatmap{}, ErrUnknownBeatmap
		}
		return m.tiebreaker, nil
	}
	maps, ok := m.pool[group]
	if !ok || index < 1 || index > len(maps) {
		return Beatmap{}, ErrUnknownBeatmap
	}
	return maps[index-1], nil
}

func (m *Match) takenLocked(b Beatmap) bool {
	if _, banned := m.banned[b.ID]; banned {
		return true
	}
	_, played := m.played[b.ID]
	return played
}

// remainingLocked counts playable non-tiebreaker maps.
func (m *Match) remainingLocked() int {
	n := 0
	for _, maps := range m.pool {
		for _, b := range maps {
			if !m.takenLocked(b) {
				n++
			}
		}
	}
	return n
}
