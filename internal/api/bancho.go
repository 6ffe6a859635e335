package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/osuripple/fokabot/pkg/osu"
)

// BanchoClient talks to the presence/match API (v2): connected clients,
// channels, alerts, moderation and multiplayer room management.
type BanchoClient struct {
	c *client
}

// NewBancho creates a v2 client.
func NewBancho(base, token string, timeout time.Duration) *BanchoClient {
	return &BanchoClient{c: newClient(base+"/api/v2", token, "X-Ripple-Token", timeout)}
}

// Channel is one public chat channel.
type Channel struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Moderated   bool   `json:"moderated"`
}

// ClientInfo is one connected client of a user.
type ClientInfo struct {
	APIIdentifier string         `json:"api_identifier"`
	UserID        int            `json:"user_id"`
	Type          osu.ClientType `json:"type"`
}

// SystemInfo mirrors the v2 system handler.
type SystemInfo struct {
	DeltaVersion  string `json:"delta_version"`
	UptimeSeconds int    `json:"uptime_seconds"`
	ScoresServer  struct {
		Type    string `json:"type"`
		Version string `json:"version"`
	} `json:"scores_server"`
}

// MatchBeatmap pins a beatmap on a multiplayer room.
type MatchBeatmap struct {
	ID       int    `json:"id"`
	MD5      string `json:"md5"`
	SongName string `json:"song_name"`
}

// CreateMatchRequest describes a new multiplayer room.
type CreateMatchRequest struct {
	Name     string        `json:"name"`
	Password string        `json:"password,omitempty"`
	Slots    int           `json:"slots,omitempty"`
	GameMode *osu.GameMode `json:"game_mode,omitempty"`
	Seed     int           `json:"seed,omitempty"`
	Beatmap  *MatchBeatmap `json:"beatmap,omitempty"`
}

// MatchInfo is one entry of the all-matches listing.
type MatchInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GetAllChannels lists every chat channel, including unjoined ones.
func (b *BanchoClient) GetAllChannels(ctx context.Context) ([]Channel, error) {
	var resp struct {
		Channels []Channel `json:"channels"`
	}
	if err := b.c.get(ctx, "chat_channels", url.Values{"filter": {"all"}}, &resp); err != nil {
		return nil, err
	}
	return resp.Channels, nil
}

// GetClients lists every connected client of a user.
func (b *BanchoClient) GetClients(ctx context.Context, userID int) ([]ClientInfo, error) {
	var resp struct {
		Clients []ClientInfo `json:"clients"`
	}
	if err := b.c.get(ctx, "clients/"+strconv.Itoa(userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Clients, nil
}

// GetClient returns the user's first client, or nil if they are offline.
// gameOnly skips IRC clients.
func (b *BanchoClient) GetClient(ctx context.Context, userID int, gameOnly bool) (*ClientInfo, error) {
	clients, err := b.GetClients(ctx, userID)
	if IsCode(err, 400) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range clients {
		if !gameOnly || clients[i].Type == osu.ClientOsu {
			return &clients[i], nil
		}
	}
	return nil, nil
}

// IsOnline reports whether the user has a connected client.
func (b *BanchoClient) IsOnline(ctx context.Context, userID int, gameOnly bool) (bool, error) {
	client, err := b.GetClient(ctx, userID, gameOnly)
	if err != nil {
		return false, err
	}
	return client != nil, nil
}

// Alert sends a server announcement to one connected game client.
func (b *BanchoClient) Alert(ctx context.Context, apiIdentifier, message string) error {
	return b.c.post(ctx, "clients/"+apiIdentifier+"/alert", map[string]string{"message": message}, nil)
}

// MassAlert sends a server announcement to every connected user.
func (b *BanchoClient) MassAlert(ctx context.Context, message string) error {
	return b.c.post(ctx, "system/mass_alert", map[string]string{"message": message}, nil)
}

// Kick disconnects a client.
func (b *BanchoClient) Kick(ctx context.Context, apiIdentifier string) error {
	return b.c.post(ctx, "clients/"+apiIdentifier+"/kick", nil, nil)
}

// RTX sends the rtx packet to a game client.
func (b *BanchoClient) RTX(ctx context.Context, apiIdentifier, message string) error {
	return b.c.post(ctx, "clients/"+apiIdentifier+"/rtx", map[string]string{"message": message}, nil)
}

// Moderated toggles moderated mode on a channel. The leading # is optional.
func (b *BanchoClient) Moderated(ctx context.Context, channel string, moderated bool) error {
	for len(channel) > 0 && channel[0] == '#' {
		channel = channel[1:]
	}
	return b.c.post(ctx, "chat_channels/"+channel, map[string]bool{"moderated": moderated}, nil)
}

// SystemInfo fetches information about the running bancho server.
func (b *BanchoClient) SystemInfo(ctx context.Context) (*SystemInfo, error) {
	var resp SystemInfo
	if err := b.c.get(ctx, "system", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GracefulShutdown asks bancho to restart once everyone disconnects.
// Returns false when a shutdown is already in progress.
func (b *BanchoClient) GracefulShutdown(ctx context.Context) (bool, error) {
	err := b.c.post(ctx, "system/graceful_shutdown", nil, nil)
	if IsCode(err, 409) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CancelGracefulShutdown cancels a pending graceful shutdown. Returns false
// when no shutdown was in progress.
func (b *BanchoClient) CancelGracefulShutdown(ctx context.Context) (bool, error) {
	err := b.c.delete(ctx, "system/graceful_shutdown", nil, nil)
	if IsCode(err, 409) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateMatch creates a multiplayer room and returns its id.
func (b *BanchoClient) CreateMatch(ctx context.Context, req CreateMatchRequest) (int, error) {
	var resp struct {
		MatchID int `json:"match_id"`
	}
	if err := b.c.post(ctx, "multiplayer", req, &resp); err != nil {
		return 0, err
	}
	return resp.MatchID, nil
}

// EditMatch changes team type and scoring type of a room.
func (b *BanchoClient) EditMatch(ctx context.Context, matchID int, teamType osu.TeamType, scoringType osu.ScoringType) error {
	return b.c.post(ctx, matchHandler(matchID, "settings"), map[string]int{
		"team_type":    int(teamType),
		"scoring_type": int(scoringType),
	}, nil)
}

// FreezeMatch locks (or unlocks) a room so only the bot can change it.
func (b *BanchoClient) FreezeMatch(ctx context.Context, matchID int, enable bool) error {
	return b.c.post(ctx, matchHandler(matchID, "freeze"), map[string]bool{"enable": enable}, nil)
}

// JoinMatch makes a client join a room.
func (b *BanchoClient) JoinMatch(ctx context.Context, apiIdentifier string, matchID int, password string) error {
	body := map[string]any{"match_id": matchID}
	if password != "" {
		body["password"] = password
	}
	return b.c.post(ctx, "clients/"+apiIdentifier+"/join_match", body, nil)
}

// MatchKick removes a client from a room.
func (b *BanchoClient) MatchKick(ctx context.Context, matchID int, apiIdentifier string) error {
	return b.c.post(ctx, matchHandler(matchID, "kick"), map[string]string{
		"api_identifier": apiIdentifier,
	}, nil)
}

// MatchMoveUser moves a client to a slot.
func (b *BanchoClient) MatchMoveUser(ctx context.Context, matchID int, apiIdentifier string, slot int) error {
	return b.c.post(ctx, matchHandler(matchID, "move_user"), map[string]any{
		"api_identifier": apiIdentifier,
		"slot":           slot,
	}, nil)
}

// SetTeam assigns a client to the blue or red team.
func (b *BanchoClient) SetTeam(ctx context.Context, matchID int, apiIdentifier string, team osu.Team) error {
	return b.c.post(ctx, matchHandler(matchID, "team"), map[string]any{
		"api_identifier": apiIdentifier,
		"team":           int(team),
	}, nil)
}

// GetAllMatches lists every active multiplayer room.
func (b *BanchoClient) GetAllMatches(ctx context.Context) ([]MatchInfo, error) {
	var resp struct {
		Matches []MatchInfo `json:"matches"`
	}
	if err := b.c.get(ctx, "multiplayer", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

func matchHandler(matchID int, sub string) string {
	return fmt.Sprintf("multiplayer/%d/%s", matchID, sub)
}
