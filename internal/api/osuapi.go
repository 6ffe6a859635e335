package api

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// OsuClient is a minimal osu! API v1 client, used as a metadata fallback
// when the mirror does not know a beatmap.
type OsuClient struct {
	c   *client
	key string
}

// NewOsu creates an osu! API v1 client.
func NewOsu(base, key string, timeout time.Duration) *OsuClient {
	oc := newClient(base+"/api", "", "", timeout)
	oc.checkCode = false
	return &OsuClient{c: oc, key: key}
}

// OsuBeatmap is the subset of get_beatmaps the bot consumes. The v1 API
// returns every field as a string.
type OsuBeatmap struct {
	BeatmapID    string `json:"beatmap_id"`
	BeatmapsetID string `json:"beatmapset_id"`
	Title        string `json:"title"`
	Version      string `json:"version"`
}

// SetID parses the set id field.
func (b OsuBeatmap) SetID() (int, error) {
	return strconv.Atoi(b.BeatmapsetID)
}

// GetBeatmap looks a single beatmap up by id. ErrNotFound when the API
// returns an empty list.
func (o *OsuClient) GetBeatmap(ctx context.Context, beatmapID int) (*OsuBeatmap, error) {
	params := url.Values{
		"k":     {o.key},
		"b":     {strconv.Itoa(beatmapID)},
		"limit": {"1"},
	}
	var resp []OsuBeatmap
	if err := o.c.get(ctx, "get_beatmaps", params, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, ErrNotFound
	}
	return &resp[0], nil
}
