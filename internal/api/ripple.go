package api

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/osuripple/fokabot/pkg/osu"
)

// RippleClient talks to the platform API (v1): user lookup, moderation
// actions, score history.
type RippleClient struct {
	c *client
}

// NewRipple creates a v1 client. Auth uses the X-Ripple-Token header.
func NewRipple(base, token string, timeout time.Duration) *RippleClient {
	return &RippleClient{c: newClient(base+"/api/v1", token, "X-Ripple-Token", timeout)}
}

// User is the subset of the v1 users handler the bot consumes.
type User struct {
	ID             int    `json:"id"`
	Username       string `json:"username"`
	RegisteredOn   string `json:"registered_on"`
	Privileges     int64  `json:"privileges"`
	LatestActivity string `json:"latest_activity"`
	Country        string `json:"country"`
}

// ScoreBeatmap is the beatmap block embedded in a score.
type ScoreBeatmap struct {
	BeatmapID   int                `json:"beatmap_id"`
	SongName    string             `json:"song_name"`
	MaxCombo    int                `json:"max_combo"`
	Difficulty2 map[string]float64 `json:"difficulty2"`
}

// Score is one entry of the recent/best score handlers.
type Score struct {
	Beatmap   ScoreBeatmap `json:"beatmap"`
	PlayMode  osu.GameMode `json:"play_mode"`
	Mods      osu.Mod      `json:"mods"`
	Accuracy  float64      `json:"accuracy"`
	Rank      string       `json:"rank"`
	MaxCombo  int          `json:"max_combo"`
	FullCombo bool         `json:"full_combo"`
	PP        float64      `json:"pp"`
}

// Difficulty returns the first positive per-mode star rating.
func (s Score) Difficulty() float64 {
	for _, v := range s.Beatmap.Difficulty2 {
		if v > 0 {
			return v
		}
	}
	return 0
}

// WhatID resolves a username (normal or ircified) to a user id.
// Returns ErrNotFound when no such user exists.
func (r *RippleClient) WhatID(ctx context.Context, username string) (int, error) {
	var resp struct {
		ID int `json:"id"`
	}
	err := r.c.get(ctx, "users/whatid", url.Values{"name": {username}}, &resp)
	if IsCode(err, 404) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// LookupUser fetches a user record by username. ErrNotFound when missing.
func (r *RippleClient) LookupUser(ctx context.Context, username string) (*User, error) {
	return r.user(ctx, url.Values{"nname": {username}})
}

// GetUser fetches a user record by id. ErrNotFound when missing.
func (r *RippleClient) GetUser(ctx context.Context, userID int) (*User, error) {
	return r.user(ctx, url.Values{"iid": {strconv.Itoa(userID)}})
}

func (r *RippleClient) user(ctx context.Context, params url.Values) (*User, error) {
	var resp struct {
		Users []User `json:"users"`
	}
	err := r.c.get(ctx, "users", params, &resp)
	if IsCode(err, 404) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Users[0], nil
}

// SetAllowed changes a user's allowed flag (2 = restore, 0 = ban, …).
func (r *RippleClient) SetAllowed(ctx context.Context, userID, allowed int) error {
	return r.c.post(ctx, "users/manage/set_allowed", map[string]int{
		"user_id": userID,
		"allowed": allowed,
	}, nil)
}

// Silence silences a user until end with the given reason.
func (r *RippleClient) Silence(ctx context.Context, userID int, reason string, end time.Time) error {
	return r.c.post(ctx, "users/edit", map[string]any{
		"id": userID,
		"silence_info": map[string]string{
			"reason": reason,
			"end":    end.UTC().Format("2006-01-02T15:04:05+00:00"),
		},
	}, nil)
}

// RecentScores returns the user's most recent scores, newest first.
func (r *RippleClient) RecentScores(ctx context.Context, username string) ([]Score, error) {
	return r.scores(ctx, "recent", username)
}

// BestScores returns the user's top scores.
func (r *RippleClient) BestScores(ctx context.Context, username string) ([]Score, error) {
	return r.scores(ctx, "best", username)
}

func (r *RippleClient) scores(ctx context.Context, sub, username string) ([]Score, error) {
	var resp struct {
		Scores []Score `json:"scores"`
	}
	if err := r.c.get(ctx, "users/scores/"+sub, url.Values{"name": {username}}, &resp); err != nil {
		return nil, err
	}
	return resp.Scores, nil
}

// Ping verifies the token and returns the bot's own privileges.
func (r *RippleClient) Ping(ctx context.Context) (osu.Privileges, error) {
	var resp struct {
		Privileges int64 `json:"privileges"`
	}
	if err := r.c.get(ctx, "ping", nil, &resp); err != nil {
		return 0, err
	}
	return osu.Privileges(resp.Privileges), nil
}
