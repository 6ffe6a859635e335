package osu

// GameMode is the ruleset a score or match is played under.
type GameMode int

const (
	ModeStandard GameMode = iota
	ModeTaiko
	ModeCatchTheBeat
	ModeMania
)

var modeNames = map[GameMode]string{
	ModeStandard:     "std",
	ModeTaiko:        "taiko",
	ModeCatchTheBeat: "ctb",
	ModeMania:        "mania",
}

func (m GameMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "std"
}

// ParseGameMode resolves the db-style short name. Unknown names map to
// standard.
func ParseGameMode(s string) GameMode {
	for m, name := range modeNames {
		if name == s {
			return m
		}
	}
	return ModeStandard
}

// Team is the colour assigned to a slot in a team-vs match.
type Team int

const (
	TeamNeutral Team = iota
	TeamBlue
	TeamRed
)

// SlotStatus is the bitmask state of a multiplayer match slot.
type SlotStatus int

const (
	SlotOpen       SlotStatus = 1
	SlotLocked     SlotStatus = 2
	SlotNotReady   SlotStatus = 4
	SlotReady      SlotStatus = 8
	SlotNoMap      SlotStatus = 16
	SlotPlaying    SlotStatus = 32
	SlotOccupied   SlotStatus = 124
	SlotQuit       SlotStatus = 128
)

// Has reports whether all bits of other are set.
func (s SlotStatus) Has(other SlotStatus) bool {
	return s&other == other
}

// TeamType is the match team arrangement.
type TeamType int

const (
	TeamTypeHeadToHead TeamType = iota
	TeamTypeTagCoop
	TeamTypeTeamVS
	TeamTypeTagTeamVS
)

// ScoringType is the match win condition.
type ScoringType int

const (
	ScoringScore ScoringType = iota
	ScoringAccuracy
	ScoringCombo
	ScoringScoreV2
)

// RankedStatus is the cheesegull ranked state of a beatmap set.
type RankedStatus int

const (
	StatusGraveyard RankedStatus = -2
	StatusWIP       RankedStatus = -1
	StatusPending   RankedStatus = 0
	StatusRanked    RankedStatus = 1
	StatusApproved  RankedStatus = 2
	StatusQualified RankedStatus = 3
	StatusLoved     RankedStatus = 4
)
