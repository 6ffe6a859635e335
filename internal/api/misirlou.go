package api

import (
	"context"
	"time"

	"github.com/osuripple/fokabot/pkg/osu"
)

// MisirlouClient talks to the tournament management API.
type MisirlouClient struct {
	c *client
}

// NewMisirlou creates a tournament API client. Auth uses the Authorization
// header and replies are bare JSON (no ripple envelope).
func NewMisirlou(base, token string, timeout time.Duration) *MisirlouClient {
	mc := newClient(base+"/api/fokabot", token, "Authorization", timeout)
	mc.checkCode = false
	return &MisirlouClient{c: mc}
}

// MisirlouBeatmap is one pool entry of a tournament.
type MisirlouBeatmap struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Mods       osu.Mod `json:"mods"`
	Tiebreaker bool    `json:"tiebreaker"`
}

// MisirlouTeam is one side of a scheduled match.
type MisirlouTeam struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Members []int  `json:"members"`
	Captain int    `json:"captain"`
}

// MisirlouTournament is the tournament a match belongs to.
type MisirlouTournament struct {
	ID           int               `json:"id"`
	Name         string            `json:"name"`
	Abbreviation string            `json:"abbreviation"`
	GameMode     osu.GameMode      `json:"game_mode"`
	TeamSize     int               `json:"team_size"`
	Pool         []MisirlouBeatmap `json:"pool"`
}

// MisirlouMatch is one scheduled match pending creation.
type MisirlouMatch struct {
	ID         int                `json:"id"`
	Timestamp  string             `json:"timestamp"`
	TeamA      MisirlouTeam       `json:"team_a"`
	TeamB      MisirlouTeam       `json:"team_b"`
	Tournament MisirlouTournament `json:"tournament"`
}

// GetMatches lists the matches scheduled to start soon.
func (m *MisirlouClient) GetMatches(ctx context.Context) ([]MisirlouMatch, error) {
	var resp []MisirlouMatch
	if err := m.c.get(ctx, "matches", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
