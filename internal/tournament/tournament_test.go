package tournament

import (
	"errors"
	"testing"

	"github.com/osuripple/fokabot/internal/api"
	"github.com/osuripple/fokabot/pkg/osu"
)

func testMatch(t *testing.T, teamSize int) *Match {
	t.Helper()
	m, err := FromAPI(api.MisirlouMatch{
		ID: 42,
		TeamA: api.MisirlouTeam{
			ID: 1, Name: "Red Pandas", Members: []int{100, 101}, Captain: 100,
		},
		TeamB: api.MisirlouTeam{
			ID: 2, Name: "Blue Whales", Members: []int{200, 201}, Captain: 200,
		},
		Tournament: api.MisirlouTournament{
			ID: 7, Name: "Spring Cup", Abbreviation: "SC", TeamSize: teamSize,
			Pool: []api.MisirlouBeatmap{
				{ID: 1001, Name: "map nm1", Mods: osu.ModNoMod},
				{ID: 1002, Name: "map nm2", Mods: osu.ModNoMod},
				{ID: 1003, Name: "map hd1", Mods: osu.ModHidden},
				{ID: 1004, Name: "map hr1", Mods: osu.ModHardRock},
				{ID: 1005, Name: "map tb", Mods: osu.ModNoMod, Tiebreaker: true},
			},
		},
	}, "s3cret_x")
	if err != nil {
		t.Fatalf("FromAPI: %v", err)
	}
	m.SetBanchoID(55)
	return m
}

// seat fills both teams with their first teamSize members.
func seat(t *testing.T, m *Match) {
	t.Helper()
	for i := 0; i < m.Tournament.TeamSize; i++ {
		if v, _ := m.UserJoined(100+i, "a", false); v != JoinedPlayer {
			t.Fatalf("team A member %d not seated: %v", 100+i, v)
		}
		if v, _ := m.UserJoined(200+i, "b", false); v != JoinedPlayer {
			t.Fatalf("team B member %d not seated: %v", 200+i, v)
		}
	}
}

func TestPoolGroupsAndCodes(t *testing.T) {
	m := testMatch(t, 1)
	pool := m.Pool()
	if len(pool) != 3 {
		t.Fatalf("groups = %d, want 3", len(pool))
	}
	if got := pool[0][1].Code(); got != "NM2" {
		t.Errorf("second nomod map code = %q", got)
	}
	if got := pool[1][0].Code(); got != "HD1" {
		t.Errorf("hidden map code = %q", got)
	}
	if tb := m.Tiebreaker(); tb.ID != 1005 || tb.Code() != "TB1" {
		t.Errorf("tiebreaker = %+v", tb)
	}
}

func TestMultiModPoolEntriesAreFreemod(t *testing.T) {
	m, err := FromAPI(api.MisirlouMatch{
		Tournament: api.MisirlouTournament{
			Pool: []api.MisirlouBeatmap{
				{ID: 1, Name: "map hdhr", Mods: osu.ModHidden | osu.ModHardRock},
				{ID: 2, Name: "map hddt", Mods: osu.ModHidden | osu.ModDoubleTime},
				{ID: 3, Name: "map fl", Mods: osu.ModFlashlight},
				{ID: 4, Name: "map tb", Tiebreaker: true},
			},
		},
	}, "pw")
	if err != nil {
		t.Fatalf("FromAPI: %v", err)
	}
	pool := m.Pool()
	if len(pool) != 1 {
		t.Fatalf("groups = %d, want a single FM group", len(pool))
	}
	for i, want := range []string{"FM1", "FM2", "FM3"} {
		if got := pool[0][i].Code(); got != want {
			t.Errorf("pool[0][%d].Code() = %q, want %q", i, got, want)
		}
	}
}

func TestFromAPIRequiresTiebreaker(t *testing.T) {
	_, err := FromAPI(api.MisirlouMatch{
		Tournament: api.MisirlouTournament{
			Pool: []api.MisirlouBeatmap{{ID: 1, Mods: osu.ModNoMod}},
		},
	}, "pw")
	if err == nil {
		t.Fatal("pool without tiebreaker accepted")
	}
}

func TestRoomName(t *testing.T) {
	m := testMatch(t, 1)
	if got := m.RoomName(); got != "SC: (Red Pandas) vs (Blue Whales)" {
		t.Errorf("room name = %q", got)
	}
}

func TestGeneratePassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		pw, err := GeneratePassword()
		if err != nil {
			t.Fatalf("GeneratePassword: %v", err)
		}
		if len(pw) != 8 {
			t.Fatalf("password %q is not 8 chars", pw)
		}
		for _, c := range pw {
			if c == ' ' {
				t.Fatalf("password %q contains a space", pw)
			}
		}
		seen[pw] = true
	}
	if len(seen) < 2 {
		t.Error("passwords are not random")
	}
}

func TestJoinClassification(t *testing.T) {
	m := testMatch(t, 1)

	if v, team := m.UserJoined(100, "capA", false); v != JoinedPlayer || team.Side != SideA {
		t.Fatalf("captain A: verdict=%v team=%v", v, team)
	}
	// Second member of a 1-player team bounces.
	if v, _ := m.UserJoined(101, "mateA", false); v != RejectedTeamFull {
		t.Errorf("extra team A member verdict = %v", v)
	}
	// Staff without a team is seated apart.
	if v, _ := m.UserJoined(999, "referee", true); v != JoinedStaff {
		t.Errorf("staff verdict = %v", v)
	}
	// Strangers get kicked.
	if v, _ := m.UserJoined(777, "rando", false); v != RejectedIntruder {
		t.Errorf("intruder verdict = %v", v)
	}
}

func TestBothTeamsPresentStartsRolling(t *testing.T) {
	m := testMatch(t, 2)
	if m.State() != StateWaiting {
		t.Fatalf("initial state = %v", m.State())
	}
	seat(t, m)
	if m.State() != StateRolling {
		t.Errorf("state after full seating = %v, want rolling", m.State())
	}
}

func TestLeaveDuringProtocolPausesAndResumes(t *testing.T) {
	m := testMatch(t, 1)
	seat(t, m)
	rollBoth(t, m, 80, 20)
	if m.State() != StateBanning {
		t.Fatalf("state = %v", m.State())
	}

	if paused := m.UserLeft(200); !paused {
		t.Fatal("leave did not pause the match")
	}
	if m.State() != StateMissingPlayers {
		t.Fatalf("state after leave = %v", m.State())
	}

	m.UserJoined(200, "capB", false)
	if m.State() != StateBanning {
		t.Errorf("state after rejoin = %v, want banning (protocol position kept)", m.State())
	}
}

// rollBoth drives both captains' rolls. a and b must differ.
func rollBoth(t *testing.T, m *Match, a, b int) {
	t.Helper()
	if out, err := m.RecordRoll(100, a); err != nil || out.Kind != RollStored {
		t.Fatalf("roll A: out=%+v err=%v", out, err)
	}
	out, err := m.RecordRoll(200, b)
	if err != nil || out.Kind != RollComplete {
		t.Fatalf("roll B: out=%+v err=%v", out, err)
	}
}

func TestRollProtocol(t *testing.T) {
	m := testMatch(t, 1)
	seat(t, m)

	out, err := m.RecordRoll(100, 64)
	if err != nil || out.Kind != RollStored {
		t.Fatalf("first roll: out=%+v err=%v", out, err)
	}
	// Rolling twice is refused.
	if _, err := m.RecordRoll(100, 90); !errors.Is(err, ErrAlreadyRolled) {
		t.Errorf("second roll err = %v, want ErrAlreadyRolled", err)
	}
	// A tie is not stored.
	out, err = m.RecordRoll(200, 64)
	if err != nil || out.Kind != RollTie {
		t.Fatalf("tie roll: out=%+v err=%v", out, err)
	}
	if _, rolled := m.TeamB.Roll(); rolled {
		t.Fatal("tie roll was stored")
	}
	// The re-roll completes the phase; the higher roll bans first.
	out, err = m.RecordRoll(200, 12)
	if err != nil || out.Kind != RollComplete {
		t.Fatalf("re-roll: out=%+v err=%v", out, err)
	}
	if out.Winner.Side != SideA || out.Loser.Side != SideB {
		t.Errorf("winner=%v loser=%v", out.Winner.Side, out.Loser.Side)
	}
	if m.State() != StateBanning || m.Turn() != SideA {
		t.Errorf("state=%v turn=%v after rolls", m.State(), m.Turn())
	}
}

func TestRollOutsideRollingPhase(t *testing.T) {
	m := testMatch(t, 1)
	if _, err := m.RecordRoll(100, 50); !errors.Is(err, ErrNotRolling) {
		t.Errorf("err = %v, want ErrNotRolling", err)
	}
}

func TestStrangerRollIgnored(t *testing.T) {
	m := testMatch(t, 1)
	seat(t, m)
	if _, err := m.RecordRoll(777, 50); !errors.Is(err, ErrNotPlayer) {
		t.Errorf("err = %v, want ErrNotPlayer", err)
	}
}

// banOne drives one ban (propose + confirm) for the captain of the given side.
func banOne(t *testing.T, m *Match, captain int, group string, index int) ConfirmResult {
	t.Helper()
	if _, err := m.ProposeBan(captain, group, index); err != nil {
		t.Fatalf("ProposeBan(%s%d): %v", group, index, err)
	}
	res, _, err := m.Confirm(captain, true)
	if err != nil {
		t.Fatalf("Confirm ban: %v", err)
	}
	return res
}

func TestBanPhase(t *testing.T) {
	m := testMatch(t, 1)
	seat(t, m)
	rollBoth(t, m, 80, 20) // A bans first

	// The loser cannot ban out of turn.
	if _, err := m.ProposeBan(200, "NM", 1); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("out-of-turn ban err = %v", err)
	}
	// The tiebreaker cannot be banned.
	if _, err := m.ProposeBan(100, "TB", 1); !errors.Is(err, ErrUnknownBeatmap) {
		t.Errorf("tiebreaker ban err = %v", err)
	}

	if res := banOne(t, m, 100, "NM", 1); res != BanCommitted {
		t.Fatalf("first ban result = %v", res)
	}
	if m.Turn() != SideB {
		t.Fatal("turn did not pass to the loser after the winner's ban")
	}

	// Banning a banned map is refused.
	if _, err := m.ProposeBan(200, "NM", 1); !errors.Is(err, ErrBeatmapTaken) {
		t.Errorf("double ban err = %v", err)
	}

	if res := banOne(t, m, 200, "HD", 1); res != BansComplete {
		t.Fatalf("second ban result = %v", res)
	}
	if m.State() != StatePicking || m.Turn() != SideB {
		t.Errorf("state=%v turn=%v, want picking with the loser first", m.State(), m.Turn())
	}
}

func TestBanDeclineKeepsTurn(t *testing.T) {
	m := testMatch(t, 1)
	seat(t, m)
	rollBoth(t, m, 80, 20)

	if _, err := m.ProposeBan(100, "NM", 1); err != nil {
		t.Fatal(err)
	}
	res, _, err := m.Confirm(100, false)
	if err != nil || res != Declined {
		t.Fatalf("decline: res=%v err=%v", res, err)
	}
	if m.State() != StateBanning || m.Turn() != SideA {
		t.Errorf("state=%v turn=%v after decline", m.State(), m.Turn())
	}
	// The other team cannot answer someone else's confirmation.
	if _, err := m.ProposeBan(100, "NM", 1); err != nil {
		t.Fatal(err)
	}
	if _, _, err := m.Confirm(200, true); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("foreign confirm err = %v", err)
	}
}

func pickOne(t *testing.T, m *Match, captain int, group string, index int) Beatmap {
	t.Helper()
	b, err := m.ProposePick(captain, group, index)
	if err != nil {
		t.Fatalf("ProposePick(%s%d): %v", group, index, err)
	}
	if m.State() != StateConfirming {
		t.Fatalf("state after propose = %v, want confirming", m.State())
	}
	if res, _, err := m.Confirm(captain, true); err != nil || res != PickCommitted {
		t.Fatalf("Confirm pick: res=%v err=%v", res, err)
	}
	return b
}

func TestFullMatchFlow(t *testing.T) {
	m := testMatch(t, 1)
	seat(t, m)
	rollBoth(t, m, 80, 20)

	banOne(t, m, 100, "NM", 1) // winner bans
	banOne(t, m, 200, "HD", 1) // loser bans

	// Loser picks first.
	b := pickOne(t, m, 200, "NM", 2)
	if b.ID != 1002 || m.State() != StatePlaying {
		t.Fatalf("pick = %+v state = %v", b, m.State())
	}
	res, err := m.MapFinished()
	if err != nil || res != NextPick {
		t.Fatalf("first map finished: res=%v err=%v", res, err)
	}
	if m.Turn() != SideA {
		t.Fatal("pick did not alternate to the winner")
	}

	// Last playable map: finishing it forces the tiebreaker.
	pickOne(t, m, 100, "HR", 1)
	res, err = m.MapFinished()
	if err != nil || res != TiebreakerNext {
		t.Fatalf("pool exhausted: res=%v err=%v", res, err)
	}
	cur, ok := m.CurrentBeatmap()
	if !ok || !cur.Tiebreaker {
		t.Fatalf("current = %+v, want the tiebreaker", cur)
	}

	res, err = m.MapFinished()
	if err != nil || res != MatchOver {
		t.Fatalf("tiebreaker finished: res=%v err=%v", res, err)
	}
	if m.State() != StateEnd {
		t.Errorf("final state = %v", m.State())
	}
}

func TestBansExhaustingPoolForceTiebreaker(t *testing.T) {
	m, err := FromAPI(api.MisirlouMatch{
		ID:    43,
		TeamA: api.MisirlouTeam{ID: 1, Name: "A", Members: []int{100}, Captain: 100},
		TeamB: api.MisirlouTeam{ID: 2, Name: "B", Members: []int{200}, Captain: 200},
		Tournament: api.MisirlouTournament{
			Abbreviation: "X", TeamSize: 1,
			Pool: []api.MisirlouBeatmap{
				{ID: 1, Name: "nm1", Mods: osu.ModNoMod},
				{ID: 2, Name: "nm2", Mods: osu.ModNoMod},
				{ID: 3, Name: "tb", Mods: osu.ModNoMod, Tiebreaker: true},
			},
		},
	}, "pw")
	if err != nil {
		t.Fatal(err)
	}
	seat(t, m)
	rollBoth(t, m, 80, 20)

	banOne(t, m, 100, "NM", 1)
	if _, err := m.ProposeBan(200, "NM", 2); err != nil {
		t.Fatal(err)
	}
	res, b, err := m.Confirm(200, true)
	if err != nil || res != TiebreakerForced {
		t.Fatalf("res=%v err=%v", res, err)
	}
	if !b.Tiebreaker || m.State() != StatePlaying {
		t.Errorf("beatmap=%+v state=%v", b, m.State())
	}
}

func TestNonCaptainCannotCommitWhenCaptainPresent(t *testing.T) {
	m := testMatch(t, 2)
	seat(t, m)
	if _, err := m.RecordRoll(101, 30); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("teammate roll with captain present err = %v", err)
	}
}

func TestTeammateActsWhenCaptainAbsent(t *testing.T) {
	m := testMatch(t, 1)
	// Captains never show; the other roster member plays instead.
	m.TeamA.Captain = 101
	m.TeamB.Captain = 201
	if v, _ := m.UserJoined(100, "mateA", false); v != JoinedPlayer {
		t.Fatal("mate A not seated")
	}
	if v, _ := m.UserJoined(200, "mateB", false); v != JoinedPlayer {
		t.Fatal("mate B not seated")
	}
	if out, err := m.RecordRoll(100, 10); err != nil || out.Kind != RollStored {
		t.Fatalf("mate roll: out=%+v err=%v", out, err)
	}
}

func TestRegistryDedupAndLookup(t *testing.T) {
	r := NewRegistry()
	m := testMatch(t, 1)

	if !r.Add(m) {
		t.Fatal("first Add refused")
	}
	if r.Add(m) {
		t.Error("duplicate misirlou id accepted")
	}
	if !r.Tracked(42) {
		t.Error("match not tracked")
	}
	got, ok := r.ByBancho(55)
	if !ok || got != m {
		t.Errorf("ByBancho = %v, %v", got, ok)
	}
	r.Remove(m)
	if r.Tracked(42) {
		t.Error("match still tracked after Remove")
	}
}

func TestChatChannelName(t *testing.T) {
	m := testMatch(t, 1)
	if got := m.ChatChannel(); got != "#multi_55" {
		t.Errorf("chat channel = %q", got)
	}
}

func TestSyncPresencePausesAndReportsDeparted(t *testing.T) {
	m := testMatch(t, 2)
	m.UserJoined(100, "cap_a", false)
	m.UserJoined(101, "mate_a", false)
	m.UserJoined(200, "cap_b", false)
	m.UserJoined(201, "mate_b", false)
	rollBoth(t, m, 70, 30)

	// mate_a vanished from the slot listing.
	departed, paused := m.SyncPresence(map[int]struct{}{
		100: {}, 200: {}, 201: {},
	})
	if len(departed) != 1 || departed[0] != "mate_a" {
		t.Fatalf("departed = %v, want [mate_a]", departed)
	}
	if !paused {
		t.Error("match did not pause")
	}
	if m.State() != StateMissingPlayers {
		t.Errorf("state = %v, want missing_players", m.State())
	}

	// Nothing changed: no departures, no second pause.
	if departed, paused := m.SyncPresence(map[int]struct{}{
		100: {}, 200: {}, 201: {},
	}); len(departed) != 0 || paused {
		t.Errorf("idempotent sync = %v, %v", departed, paused)
	}

	// The player comes back, the protocol resumes where it stopped.
	m.UserJoined(101, "mate_a", false)
	if m.State() != StateBanning {
		t.Errorf("state after return = %v, want banning", m.State())
	}
}

func TestRollCallLine(t *testing.T) {
	m := testMatch(t, 2)
	m.UserJoined(101, "mate_a", false) // captain 100 absent
	m.UserJoined(200, "cap_b", false)
	m.UserJoined(201, "mate_b", false)

	got := m.RollCallLine()
	want := "mate_a (Red Pandas's members) - cap_b (Blue Whales's captain)" +
		", any of you, please roll with the !roll command."
	if got != want {
		t.Errorf("roll call line:\n got %q\nwant %q", got, want)
	}
}

func TestRollCallLineSolo(t *testing.T) {
	m := testMatch(t, 1)
	m.UserJoined(100, "alice", false)
	m.UserJoined(200, "bob", false)

	got := m.RollCallLine()
	want := "alice - bob, any of you, please roll with the !roll command."
	if got != want {
		t.Errorf("roll call line = %q, want %q", got, want)
	}
}
