package api

import (
	"context"
	"strconv"
	"time"

	"github.com/osuripple/fokabot/pkg/osu"
)

// CheesegullClient talks to the beatmap mirror's metadata API.
type CheesegullClient struct {
	c *client
}

// NewCheesegull creates a mirror metadata client.
func NewCheesegull(base string, timeout time.Duration) *CheesegullClient {
	cc := newClient(base+"/api", "", "", timeout)
	cc.checkCode = false
	return &CheesegullClient{c: cc}
}

// CheesegullBeatmap is one difficulty of a set.
type CheesegullBeatmap struct {
	BeatmapID   int     `json:"BeatmapID"`
	ParentSetID int     `json:"ParentSetID"`
	DiffName    string  `json:"DiffName"`
	Mode        int     `json:"Mode"`
	Difficulty  float64 `json:"DifficultyRating"`
}

// CheesegullSet is one beatmap set.
type CheesegullSet struct {
	SetID        int                 `json:"SetID"`
	RankedStatus osu.RankedStatus    `json:"RankedStatus"`
	Artist       string              `json:"Artist"`
	Title        string              `json:"Title"`
	ChildrenMaps []CheesegullBeatmap `json:"ChildrenBeatmaps"`
}

// GetBeatmap fetches one difficulty by beatmap id. The mirror answers an
// unknown id with a JSON null; that maps to ErrNotFound.
func (cg *CheesegullClient) GetBeatmap(ctx context.Context, beatmapID int) (*CheesegullBeatmap, error) {
	var resp *CheesegullBeatmap
	if err := cg.c.get(ctx, "b/"+strconv.Itoa(beatmapID), nil, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNotFound
	}
	return resp, nil
}

// GetSet fetches a beatmap set by set id. ErrNotFound for unknown sets.
func (cg *CheesegullClient) GetSet(ctx context.Context, setID int) (*CheesegullSet, error) {
	var resp *CheesegullSet
	if err := cg.c.get(ctx, "s/"+strconv.Itoa(setID), nil, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNotFound
	}
	return resp, nil
}
