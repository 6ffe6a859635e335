// Package beatmaps watches multiplayer rooms and posts a mirror download
// link whenever the selected beatmap changes to one the official client
// cannot download.
package beatmaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/osuripple/fokabot/internal/api"
	"github.com/osuripple/fokabot/internal/bot"
	"github.com/osuripple/fokabot/internal/session"
	"github.com/osuripple/fokabot/pkg/osu"
	"github.com/osuripple/fokabot/pkg/wire"
)

func init() {
	bot.RegisterPlugin("beatmaps", Setup)
}

type watcher struct {
	bot *bot.Bot

	mu   sync.Mutex
	last map[int]int // match id -> last seen beatmap id
}

// Setup subscribes to the lobby and to every room, and watches beatmap
// changes.
func Setup(b *bot.Bot) error {
	w := &watcher{bot: b, last: make(map[int]int)}
	b.Bus.On(session.EventReady, w.onReady)
	b.Bus.On("msg:"+wire.TypeLobbyMatchAdded, w.onMatchAdded)
	b.Bus.On("msg:"+wire.TypeLobbyMatchRemoved, w.onMatchRemoved)
	b.Bus.On("msg:"+wire.TypeMatchUpdate, w.onMatchUpdate)
	return nil
}

// onReady subscribes to all rooms that already exist, then to the lobby for
// rooms created later.
func (w *watcher) onReady(ctx context.Context, _ any) error {
	matches, err := w.bot.Bancho.GetAllMatches(ctx)
	if err != nil {
		return fmt.Errorf("beatmaps: list matches: %w", err)
	}
	for _, m := range matches {
		if err := w.bot.Transport.Send(wire.SubscribeMatch(m.ID)); err != nil {
			return err
		}
	}
	return w.bot.Transport.Send(wire.Subscribe(wire.EventLobby))
}

func (w *watcher) onMatchAdded(ctx context.Context, data any) error {
	p, err := lobbyPayload(data)
	if err != nil {
		return err
	}
	slog.Info("match added", "match_id", p.ID)
	return w.bot.Transport.Send(wire.SubscribeMatch(p.ID))
}

func (w *watcher) onMatchRemoved(ctx context.Context, data any) error {
	p, err := lobbyPayload(data)
	if err != nil {
		return err
	}
	slog.Info("match removed", "match_id", p.ID)
	// The server drops the subscription on its own.
	w.mu.Lock()
	delete(w.last, p.ID)
	w.mu.Unlock()
	return nil
}

func (w *watcher) onMatchUpdate(ctx context.Context, data any) error {
	msg, ok := data.(wire.Message)
	if !ok {
		return fmt.Errorf("beatmaps: unexpected payload %T", data)
	}
	var p wire.MatchUpdatePayload
	if err := json.Unmarshal(msg.Data, &p); err != nil {
		return fmt.Errorf("beatmaps: decode match_update: %w", err)
	}
	if p.Beatmap.ID <= 0 {
		// The host is still browsing their song list.
		return nil
	}

	w.mu.Lock()
	changed := w.last[p.ID] != p.Beatmap.ID
	w.last[p.ID] = p.Beatmap.ID
	w.mu.Unlock()
	if !changed {
		return nil
	}

	setID, err := w.unrankedSetID(ctx, p.Beatmap.ID)
	if err != nil {
		slog.Error("beatmap lookup failed", "beatmap_id", p.Beatmap.ID, "error", err)
		return nil
	}
	if setID <= 0 {
		return nil
	}
	return w.bot.SendMessage(
		w.downloadMessage(ctx, setID, p.Beatmap.Name),
		fmt.Sprintf("#multi_%d", p.ID),
	)
}

// unrankedSetID returns the parent set id when the beatmap cannot be served
// by the default mirror, zero when no link is warranted.
func (w *watcher) unrankedSetID(ctx context.Context, beatmapID int) (int, error) {
	beatmap, err := w.bot.Cheesegull.GetBeatmap(ctx, beatmapID)
	if err == nil {
		set, serr := w.bot.Cheesegull.GetSet(ctx, beatmap.ParentSetID)
		if serr == nil {
			if set.RankedStatus < osu.StatusRanked {
				return beatmap.ParentSetID, nil
			}
			return 0, nil
		}
		if !errors.Is(serr, api.ErrNotFound) {
			return 0, serr
		}
	} else if !errors.Is(err, api.ErrNotFound) {
		return 0, err
	}

	// The mirror does not know this map at all; ask the osu! API.
	fallback, err := w.bot.Osu.GetBeatmap(ctx, beatmapID)
	if errors.Is(err, api.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return fallback.SetID()
}

// downloadMessage prefers a direct beatconnect link and falls back to
// bloodcat when beatconnect does not carry the set.
func (w *watcher) downloadMessage(ctx context.Context, setID int, name string) string {
	link, err := w.bot.Beatconnect.GetDownloadLink(ctx, setID)
	if err == nil {
		return fmt.Sprintf("Download [%s %s] from Beatconnect", link, name)
	}
	if !errors.Is(err, api.ErrNotFound) {
		slog.Error("beatconnect lookup failed", "set_id", setID, "error", err)
	}
	return fmt.Sprintf("Download [https://bloodcat.com/osu/s/%d %s] from Bloodcat", setID, name)
}

func lobbyPayload(data any) (wire.LobbyMatchPayload, error) {
	msg, ok := data.(wire.Message)
	if !ok {
		return wire.LobbyMatchPayload{}, fmt.Errorf("beatmaps: unexpected payload %T", data)
	}
	var p wire.LobbyMatchPayload
	if err := json.Unmarshal(msg.Data, &p); err != nil {
		return wire.LobbyMatchPayload{}, fmt.Errorf("beatmaps: decode lobby payload: %w", err)
	}
	return p, nil
}
