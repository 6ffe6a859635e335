package tournament

import (
	"fmt"
)

// RollKind classifies the outcome of a team roll.
type RollKind int

const (
	// RollStored means the roll was recorded and the other team still has
	// to roll.
	RollStored RollKind = iota
	// RollTie means the roll matched the other team's and was not stored;
	// the team must roll again.
	RollTie
	// RollComplete means both teams have rolled and banning starts.
	RollComplete
)

// RollOutcome is what happened after a roll was fed to the match.
type RollOutcome struct {
	Kind   RollKind
	Team   *Team
	Winner *Team
	Loser  *Team
}

// SetBanchoID links the match to its created room.
func (m *Match) SetBanchoID(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BanchoID = id
}

// JoinVerdict is what should happen to a user who entered the room.
type JoinVerdict int

const (
	// JoinedPlayer: seat the user in their team's half and colour them.
	JoinedPlayer JoinVerdict = iota
	// JoinedStaff: move the user to the last slot, no team.
	JoinedStaff
	// RejectedTeamFull: kick, the team already has enough players.
	RejectedTeamFull
	// RejectedIntruder: kick, the user has no business in this match.
	RejectedIntruder
)

// UserJoined classifies a user who entered the room and records players'
// presence. The caller performs the resulting room operations.
func (m *Match) UserJoined(userID int, username string, isStaff bool) (JoinVerdict, *Team) {
	m.mu.Lock()
	defer m.mu.Unlock()

	team := m.userTeamLocked(userID)
	if team == nil {
		if isStaff {
			return JoinedStaff, nil
		}
		return RejectedIntruder, nil
	}
	if len(team.inMatch) >= m.Tournament.TeamSize {
		return RejectedTeamFull, team
	}
	team.inMatch[userID] = struct{}{}
	m.Usernames[userID] = username
	m.refreshReadinessLocked()
	return JoinedPlayer, team
}

// UserLeft records a player leaving the room. Reports whether the match
// paused because a team is no longer complete.
func (m *Match) UserLeft(userID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	team := m.userTeamLocked(userID)
	if team == nil {
		return false
	}
	delete(team.inMatch, userID)
	wasActive := m.state > StateMissingPlayers && m.state < StateEnd
	m.refreshReadinessLocked()
	return wasActive && m.state == StateMissingPlayers
}

// SyncPresence reconciles the recorded player presence against the room's
// slot listing. It returns the usernames of the players who disappeared and
// whether the match paused as a result.
func (m *Match) SyncPresence(present map[int]struct{}) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var departed []string
	for _, t := range []*Team{m.TeamA, m.TeamB} {
		for id := range t.inMatch {
			if _, ok := present[id]; !ok {
				delete(t.inMatch, id)
				departed = append(departed, m.Usernames[id])
			}
		}
	}
	if len(departed) == 0 {
		return nil, false
	}
	wasActive := m.state > StateMissingPlayers && m.state < StateEnd
	m.refreshReadinessLocked()
	return departed, wasActive && m.state == StateMissingPlayers
}

func (m *Match) userTeamLocked(userID int) *Team {
	if m.TeamA.HasMember(userID) {
		return m.TeamA
	}
	if m.TeamB.HasMember(userID) {
		return m.TeamB
	}
	return nil
}

// refreshReadinessLocked moves the match between the waiting states and the
// protocol states as players come and go. The protocol position itself
// (rolls, bans, turn) is never reset by presence changes.
func (m *Match) refreshReadinessLocked() {
	full := len(m.TeamA.inMatch) >= m.Tournament.TeamSize &&
		len(m.TeamB.inMatch) >= m.Tournament.TeamSize

	switch {
	case m.state == StateWaiting && full:
		m.state = StateRolling
	case m.state == StateMissingPlayers && full:
		m.state = m.resumeStateLocked()
	case m.state > StateMissingPlayers && m.state < StateEnd && !full:
		m.paused = m.state
		m.state = StateMissingPlayers
	case m.state == StateWaiting && !full:
		// still gathering
	}
}

// resumeStateLocked picks the protocol state to return to once both teams
// are complete again.
func (m *Match) resumeStateLocked() State {
	if m.paused != StateWaiting {
		return m.paused
	}
	return StateRolling
}

// Ready reports whether both teams are complete.
func (m *Match) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.TeamA.inMatch) >= m.Tournament.TeamSize &&
		len(m.TeamB.inMatch) >= m.Tournament.TeamSize
}

// RecordRoll feeds a !roll result into the match. Each team rolls exactly
// once; a tie is discarded and the second roller rolls again.
func (m *Match) RecordRoll(userID, value int) (RollOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateRolling {
		return RollOutcome{}, ErrNotRolling
	}
	team := m.userTeamLocked(userID)
	if team == nil {
		return RollOutcome{}, ErrNotPlayer
	}
	if !m.canCommitLocked(team, userID) {
		return RollOutcome{}, ErrNotYourTurn
	}
	if _, rolled := team.Roll(); rolled {
		return RollOutcome{}, ErrAlreadyRolled
	}

	other := m.Team(team.Side.Other())
	if otherRoll, ok := other.Roll(); ok && otherRoll == value {
		return RollOutcome{Kind: RollTie, Team: team}, nil
	}
	if err := team.setRoll(value); err != nil {
		return RollOutcome{}, err
	}
	if _, ok := other.Roll(); !ok {
		return RollOutcome{Kind: RollStored, Team: team}, nil
	}

	winner, loser := m.rollRankLocked()
	m.state = StateBanning
	m.turn = winner.Side
	return RollOutcome{Kind: RollComplete, Team: team, Winner: winner, Loser: loser}, nil
}

func (m *Match) rollRankLocked() (winner, loser *Team) {
	a, _ := m.TeamA.Roll()
	b, _ := m.TeamB.Roll()
	if a > b {
		return m.TeamA, m.TeamB
	}
	return m.TeamB, m.TeamA
}

// RollWinner returns the roll winner once both teams rolled.
func (m *Match) RollWinner() (*Team, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.TeamA.Roll(); !ok {
		return nil, false
	}
	if _, ok := m.TeamB.Roll(); !ok {
		return nil, false
	}
	w, _ := m.rollRankLocked()
	return w, true
}

// RollLoser returns the roll loser once both teams rolled.
func (m *Match) RollLoser() (*Team, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.TeamA.Roll(); !ok {
		return nil, false
	}
	if _, ok := m.TeamB.Roll(); !ok {
		return nil, false
	}
	_, l := m.rollRankLocked()
	return l, true
}

func (m *Match) canCommitLocked(t *Team, userID int) bool {
	if t.CaptainInMatch() {
		return userID == t.Captain
	}
	_, present := t.inMatch[userID]
	return present
}

// ProposeBan stages a ban for confirmation. Only the team whose turn it is
// may propose, the tiebreaker can never be banned.
func (m *Match) ProposeBan(userID int, group string, index int) (Beatmap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateBanning {
		return Beatmap{}, ErrWrongPhase
	}
	team := m.userTeamLocked(userID)
	if team == nil {
		return Beatmap{}, ErrNotPlayer
	}
	if team.Side != m.turn || !m.canCommitLocked(team, userID) {
		return Beatmap{}, ErrNotYourTurn
	}
	b, err := m.resolveLocked(group, index)
	if err != nil {
		return Beatmap{}, err
	}
	if b.Tiebreaker {
		return Beatmap{}, ErrUnknownBeatmap
	}
	if m.takenLocked(b) {
		return Beatmap{}, ErrBeatmapTaken
	}
	m.pending = &pendingAction{kind: actionBan, side: team.Side, beatmap: b}
	return b, nil
}

// ProposePick stages a pick for confirmation and moves the match to the
// confirming phase.
func (m *Match) ProposePick(userID int, group string, index int) (Beatmap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StatePicking {
		return Beatmap{}, ErrWrongPhase
	}
	team := m.userTeamLocked(userID)
	if team == nil {
		return Beatmap{}, ErrNotPlayer
	}
	if team.Side != m.turn || !m.canCommitLocked(team, userID) {
		return Beatmap{}, ErrNotYourTurn
	}
	b, err := m.resolveLocked(group, index)
	if err != nil {
		return Beatmap{}, err
	}
	if b.Tiebreaker {
		return Beatmap{}, ErrUnknownBeatmap
	}
	if m.takenLocked(b) {
		return Beatmap{}, ErrBeatmapTaken
	}
	m.pending = &pendingAction{kind: actionPick, side: team.Side, beatmap: b}
	m.state = StateConfirming
	return b, nil
}

// ConfirmResult is what a confirmation reply caused.
type ConfirmResult int

const (
	// Declined: the staged action was dropped, the same team goes again.
	Declined ConfirmResult = iota
	// BanCommitted: the map is banned, the other team bans next.
	BanCommitted
	// BansComplete: both teams banned, the roll loser picks first.
	BansComplete
	// PickCommitted: the map is loaded and the match plays it.
	PickCommitted
	// TiebreakerForced: the bans exhausted the pool, the tiebreaker plays.
	TiebreakerForced
)

// Confirm applies or drops the staged ban/pick. Only the proposing team
// answers the confirmation.
func (m *Match) Confirm(userID int, accept bool) (ConfirmResult, Beatmap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == nil {
		return Declined, Beatmap{}, ErrNoPending
	}
	team := m.userTeamLocked(userID)
	if team == nil {
		return Declined, Beatmap{}, ErrNotPlayer
	}
	if team.Side != m.pending.side || !m.canCommitLocked(team, userID) {
		return Declined, Beatmap{}, ErrNotYourTurn
	}

	staged := *m.pending
	m.pending = nil
	if !accept {
		if staged.kind == actionPick {
			m.state = StatePicking
		}
		return Declined, staged.beatmap, nil
	}

	switch staged.kind {
	case actionBan:
		m.banned[staged.beatmap.ID] = struct{}{}
		m.bans++
		if m.remainingLocked() == 0 {
			m.current = &m.tiebreaker
			m.state = StatePlaying
			return TiebreakerForced, m.tiebreaker, nil
		}
		if m.bans >= 2 {
			m.state = StatePicking
			_, loser := m.rollRankLocked()
			m.turn = loser.Side
			return BansComplete, staged.beatmap, nil
		}
		m.turn = m.turn.Other()
		return BanCommitted, staged.beatmap, nil
	default:
		b := staged.beatmap
		m.current = &b
		m.state = StatePlaying
		return PickCommitted, b, nil
	}
}

// FinishResult is what follows a completed map.
type FinishResult int

const (
	// NextPick: the other team picks the next map.
	NextPick FinishResult = iota
	// TiebreakerNext: the pool is exhausted, the tiebreaker plays.
	TiebreakerNext
	// MatchOver: the tiebreaker was played, the match is done.
	MatchOver
)

// MapFinished records that the loaded map was played and advances the
// protocol.
func (m *Match) MapFinished() (FinishResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StatePlaying || m.current == nil {
		return 0, ErrWrongPhase
	}
	if m.current.Tiebreaker {
		m.current = nil
		m.state = StateEnd
		return MatchOver, nil
	}

	m.played[m.current.ID] = struct{}{}
	m.current = nil
	m.turn = m.turn.Other()
	if m.remainingLocked() == 0 {
		m.current = &m.tiebreaker
		return TiebreakerNext, nil
	}
	m.state = StatePicking
	return NextPick, nil
}

// RoomName renders the room title for a match.
func (m *Match) RoomName() string {
	return fmt.Sprintf("%s: (%s) vs (%s)", m.Tournament.Abbreviation, m.TeamA.Name, m.TeamB.Name)
}
