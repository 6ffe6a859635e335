package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// BeatconnectClient talks to the beatconnect mirror's search API.
type BeatconnectClient struct {
	c *client
}

// NewBeatconnect creates a beatconnect client. Auth uses the Token header.
func NewBeatconnect(base, token string, timeout time.Duration) *BeatconnectClient {
	bc := newClient(base+"/api", token, "Token", timeout)
	bc.checkCode = false
	return &BeatconnectClient{c: bc}
}

// BeatconnectSet is one search result.
type BeatconnectSet struct {
	ID       int    `json:"id"`
	UniqueID string `json:"unique_id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
}

// Search queries the mirror. The query can be free text or a set id.
func (b *BeatconnectClient) Search(ctx context.Context, query string) ([]BeatconnectSet, error) {
	// Beatconnect handlers want a trailing slash.
	params := url.Values{
		"s": {"all"},
		"m": {"all"},
		"q": {query},
		"p": {"0"},
	}
	var resp struct {
		Beatmaps []BeatconnectSet `json:"beatmaps"`
	}
	if err := b.c.get(ctx, "search/", params, &resp); err != nil {
		return nil, err
	}
	return resp.Beatmaps, nil
}

// GetDownloadLink resolves a set id to a direct download link.
// ErrNotFound when the mirror does not carry the set.
func (b *BeatconnectClient) GetDownloadLink(ctx context.Context, setID int) (string, error) {
	sets, err := b.Search(ctx, strconv.Itoa(setID))
	if err != nil {
		return "", err
	}
	if len(sets) == 0 {
		return "", ErrNotFound
	}
	return fmt.Sprintf("https://beatconnect.io/b/%d/%s", setID, sets[0].UniqueID), nil
}
