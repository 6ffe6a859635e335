package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/osuripple/fokabot/pkg/osu"
)

// LetsClient talks to the score server's PP calculator.
type LetsClient struct {
	c *client
}

// NewLets creates a lets client. The PP handler is unauthenticated.
func NewLets(base string, timeout time.Duration) *LetsClient {
	lc := newClient(base, "", "", timeout)
	lc.checkCode = false
	return &LetsClient{c: lc}
}

// PPResponse is the calculator's reply. PP holds either one value (when a
// specific accuracy was requested) or the 100/99/98/95% series.
type PPResponse struct {
	SongName string       `json:"song_name"`
	PP       ppValues     `json:"pp"`
	Length   int          `json:"length"`
	Stars    float64      `json:"stars"`
	AR       float64      `json:"ar"`
	BPM      int          `json:"bpm"`
	GameMode osu.GameMode `json:"game_mode"`

	// Request context, not part of the wire reply.
	Mods     osu.Mod `json:"-"`
	Accuracy float64 `json:"-"`
}

type ppValues []float64

func (p *ppValues) UnmarshalJSON(data []byte) error {
	var many []float64
	if err := json.Unmarshal(data, &many); err == nil {
		*p = many
		return nil
	}
	var one float64
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*p = []float64{one}
	return nil
}

// HasMultiplePP reports whether the standard accuracy series was returned.
func (r *PPResponse) HasMultiplePP() bool { return len(r.PP) > 1 }

// ModdedAR applies EZ/HR to the approach rate.
func (r *PPResponse) ModdedAR() float64 {
	switch {
	case r.Mods&osu.ModEasy != 0:
		return max(0, r.AR/2)
	case r.Mods&osu.ModHardRock != 0:
		return min(10, r.AR*1.4)
	}
	return r.AR
}

// String renders the one-line chat reply for the response.
func (r *PPResponse) String() string {
	var sb strings.Builder
	sb.WriteString(r.SongName)
	sb.WriteString(fmt.Sprintf(" <%s>", r.GameMode))
	if r.Mods != osu.ModNoMod {
		sb.WriteString("+" + r.Mods.Readable())
	}
	sb.WriteString("  ")
	if r.HasMultiplePP() {
		percs := []int{100, 99, 98, 95}
		parts := make([]string, 0, len(r.PP))
		for i, pp := range r.PP {
			if i >= len(percs) {
				break
			}
			parts = append(parts, fmt.Sprintf("%d%%: %.2fpp", percs[i], pp))
		}
		sb.WriteString(strings.Join(parts, " | "))
	} else if len(r.PP) == 1 {
		sb.WriteString(fmt.Sprintf("%.2f%%: %.2fpp", r.Accuracy, r.PP[0]))
	}
	sb.WriteString(fmt.Sprintf(" | ♪ %d", r.BPM))
	sb.WriteString(fmt.Sprintf(" | AR %g", r.AR))
	if modded := r.ModdedAR(); modded != r.AR {
		sb.WriteString(fmt.Sprintf(" (%.2f)", modded))
	}
	sb.WriteString(fmt.Sprintf(" | ★ %.2f", r.Stars))
	return sb.String()
}

// GetPP computes PP for a beatmap. accuracy < 0 requests the standard
// 100/99/98/95% series instead of one specific accuracy.
func (l *LetsClient) GetPP(ctx context.Context, beatmapID int, mode osu.GameMode, mods osu.Mod, accuracy float64) (*PPResponse, error) {
	params := url.Values{
		"b": {strconv.Itoa(beatmapID)},
		"m": {strconv.FormatInt(int64(mods), 10)},
		"g": {strconv.Itoa(int(mode))},
	}
	if accuracy >= 0 {
		params.Set("a", strconv.FormatFloat(accuracy, 'f', -1, 64))
	}

	var resp struct {
		PPResponse
		Status  int    `json:"status"`
		Message string `json:"message"`
	}
	if err := l.c.get(ctx, "v1/pp", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != 200 {
		return nil, &ResponseError{Code: resp.Status, Message: resp.Message}
	}
	out := resp.PPResponse
	out.Mods = mods
	out.Accuracy = accuracy
	return &out, nil
}
