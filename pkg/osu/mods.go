package osu

import "strings"

// Mod is the game modifier bitmask.
type Mod int64

const (
	ModNoMod       Mod = 0
	ModNoFail      Mod = 1
	ModEasy        Mod = 2
	ModTouchscreen Mod = 4
	ModHidden      Mod = 8
	ModHardRock    Mod = 16
	ModSuddenDeath Mod = 32
	ModDoubleTime  Mod = 64
	ModRelax       Mod = 128
	ModHalfTime    Mod = 256
	ModNightcore   Mod = 512
	ModFlashlight  Mod = 1024
	ModAutoplay    Mod = 2048
	ModSpunOut     Mod = 4096
	ModAutopilot   Mod = 8192
	ModPerfect     Mod = 16384
	ModKey4        Mod = 32768
	ModKey5        Mod = 65536
	ModKey6        Mod = 131072
	ModKey7        Mod = 262144
	ModKey8        Mod = 524288
	ModFadeIn      Mod = 1048576
	ModRandom      Mod = 2097152
	ModLastMod     Mod = 4194304
	ModKey9        Mod = 16777216
	ModKeyCoop     Mod = 33554432
	ModKey1        Mod = 67108864
	ModKey3        Mod = 134217728
	ModKey2        Mod = 268435456
	ModScoreV2     Mod = 536870912
)

// ordered list for stable acronym rendering
var modAcronyms = []struct {
	mod     Mod
	acronym string
}{
	{ModNoFail, "NF"},
	{ModEasy, "EZ"},
	{ModHidden, "HD"},
	{ModHardRock, "HR"},
	{ModSuddenDeath, "SD"},
	{ModDoubleTime, "DT"},
	{ModRelax, "RX"},
	{ModHalfTime, "HT"},
	{ModFlashlight, "FL"},
	{ModSpunOut, "SO"},
	{ModAutopilot, "AP"},
	{ModPerfect, "PF"},
	{ModKey4, "4K"},
	{ModKey5, "5K"},
	{ModKey6, "6K"},
	{ModKey7, "7K"},
	{ModKey8, "8K"},
	{ModFadeIn, "FI"},
	{ModKey9, "9K"},
	{ModKey1, "1K"},
	{ModKey3, "3K"},
	{ModKey2, "2K"},
}

// Readable renders the mod combination as concatenated acronyms ("HDDT").
// ModNoMod renders as an empty string.
func (m Mod) Readable() string {
	var b strings.Builder
	for _, x := range modAcronyms {
		if m&x.mod != 0 {
			b.WriteString(x.acronym)
		}
	}
	return b.String()
}

// namedMods maps the long names used in /np action messages.
var namedMods = map[string]Mod{
	"Easy":       ModEasy,
	"NoFail":     ModNoFail,
	"Hidden":     ModHidden,
	"HardRock":   ModHardRock,
	"Nightcore":  ModDoubleTime,
	"DoubleTime": ModDoubleTime,
	"HalfTime":   ModHalfTime,
	"Flashlight": ModFlashlight,
	"SpunOut":    ModSpunOut,
}

// ParseNamedMod resolves a long mod name ("Hidden", "DoubleTime") to its
// bit. Unknown names yield ModNoMod.
func ParseNamedMod(name string) Mod {
	return namedMods[name]
}

// ParseAcronyms parses a concatenated acronym string ("HDHR") into a mod
// bitmask. Unknown pairs are skipped.
func ParseAcronyms(s string) Mod {
	s = strings.ToUpper(s)
	m := ModNoMod
	for i := 0; i+2 <= len(s); i += 2 {
		pair := s[i : i+2]
		for _, x := range modAcronyms {
			if x.acronym == pair {
				m |= x.mod
				break
			}
		}
	}
	return m
}
