// Package npcache stores per-client "now playing" context in redis so that
// follow-up commands (!with, !acc, !mode) can reuse the last /np beatmap.
// The keys are shared with other bot instances; the TTL keeps stale context
// from leaking into unrelated sessions.
package npcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/osuripple/fokabot/pkg/osu"
)

const keyPrefix = "fokabot:np:"

// TTL is how long an /np context stays usable.
const TTL = 180 * time.Second

// ErrNoContext is returned when the client has no cached /np context.
var ErrNoContext = errors.New("npcache: no now-playing context")

// Info is the cached now-playing context of one client.
type Info struct {
	BeatmapID int          `json:"beatmap_id"`
	GameMode  osu.GameMode `json:"game_mode"`
	Mods      osu.Mod      `json:"mods"`
	Accuracy  float64      `json:"accuracy"`
}

// Cache is the redis-backed store.
type Cache struct {
	rdb redis.UniversalClient
}

// New wraps a redis client.
func New(rdb redis.UniversalClient) *Cache {
	return &Cache{rdb: rdb}
}

// Set stores the /np context for a client, refreshing the TTL.
func (c *Cache) Set(ctx context.Context, apiIdentifier string, info Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("npcache: encode: %w", err)
	}
	return c.rdb.Set(ctx, keyPrefix+apiIdentifier, data, TTL).Err()
}

// Get fetches the /np context for a client. ErrNoContext when absent or
// expired.
func (c *Cache) Get(ctx context.Context, apiIdentifier string) (Info, error) {
	data, err := c.rdb.Get(ctx, keyPrefix+apiIdentifier).Bytes()
	if errors.Is(err, redis.Nil) {
		return Info{}, ErrNoContext
	}
	if err != nil {
		return Info{}, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("npcache: decode: %w", err)
	}
	return info, nil
}

// Update fetches, mutates and re-stores the context in one call, keeping the
// beatmap while changing mods, accuracy or mode.
func (c *Cache) Update(ctx context.Context, apiIdentifier string, mutate func(*Info)) (Info, error) {
	info, err := c.Get(ctx, apiIdentifier)
	if err != nil {
		return Info{}, err
	}
	mutate(&info)
	if err := c.Set(ctx, apiIdentifier, info); err != nil {
		return Info{}, err
	}
	return info, nil
}
